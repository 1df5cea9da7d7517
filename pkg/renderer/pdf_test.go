package renderer

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type fakeEngine struct {
	xhtml string
	err   error
}

func (f *fakeEngine) PrintPDF(_ context.Context, xhtml string) (pdf []byte, err error) {
	f.xhtml = xhtml
	if f.err != nil {
		return pdf, f.err
	}
	pdf = []byte("%PDF-1.4 fake")
	return pdf, err
}

// wellFormed decodes every token of doc, failing on the first XML error.
func wellFormed(t *testing.T, doc string) {
	t.Helper()
	decoder := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("Document is not well-formed XML: %v\n%s", err, doc)
		}
	}
}

func TestToXHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "void elements self close",
			input:    "<p>line one<br>line two</p><hr>",
			contains: []string{"<br />", "<hr />"},
		},
		{
			name:     "namespace on root",
			input:    "<p>text</p>",
			contains: []string{`<html xmlns="http://www.w3.org/1999/xhtml">`},
		},
		{
			name:     "attributes quoted and escaped",
			input:    `<a href=https://example.com/?a=1&b=2>link</a>`,
			contains: []string{`href="https://example.com/?a=1&amp;b=2"`},
		},
		{
			name:     "text escaped",
			input:    "<p>5 &lt; 6 &amp; R&amp;D</p>",
			contains: []string{"5 &lt; 6 &amp; R&amp;D"},
		},
		{
			name:     "unclosed tags repaired",
			input:    "<ul><li>one<li>two</ul><p>open",
			contains: []string{"<li>one</li>", "<li>two</li>", "<p>open</p>"},
		},
		{
			name:     "head defaults injected",
			input:    "<h1>Title</h1>",
			contains: []string{"charset=UTF-8", "<style", "@page"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xhtml, err := ToXHTML(tt.input)
			if err != nil {
				t.Fatalf("Failed to convert: %v", err)
			}

			wellFormed(t, xhtml)

			for _, want := range tt.contains {
				if !strings.Contains(xhtml, want) {
					t.Errorf("Expected output to contain '%s', got:\n%s", want, xhtml)
				}
			}
		})
	}
}

func TestToXHTMLDropsControlCharacters(t *testing.T) {
	r := NewPDFRenderer(&fakeEngine{}, nil)

	fragment, err := r.ToHTML("Skills\x0b Go and \x1b Rust\n\n<!-- note\x01 -->\n\n[link](https://x.io/?q=\x07)\n")
	if err != nil {
		t.Fatalf("Failed to render HTML: %v", err)
	}

	xhtml, err := ToXHTML(fragment)
	if err != nil {
		t.Fatalf("Failed to convert: %v", err)
	}

	wellFormed(t, xhtml)

	if !strings.Contains(xhtml, "Go and") {
		t.Errorf("Expected text around control characters to survive, got:\n%s", xhtml)
	}

	for _, bad := range []string{"\x0b", "\x1b", "\x01", "\x07"} {
		if strings.Contains(xhtml, bad) {
			t.Errorf("Expected control character %q to be dropped, got:\n%s", bad, xhtml)
		}
	}
}

func TestPDFRendererRender(t *testing.T) {
	engine := &fakeEngine{}
	r := NewPDFRenderer(engine, nil)

	pdf, err := r.Render(context.Background(), "# Jane Doe\n\n- Go\n- **Kubernetes**\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Errorf("Expected engine output to be returned, got %q", string(pdf))
	}

	wellFormed(t, engine.xhtml)

	for _, want := range []string{"<h1>Jane Doe</h1>", "<strong>Kubernetes</strong>", "<table>"} {
		if !strings.Contains(engine.xhtml, want) {
			t.Errorf("Expected page to contain '%s'", want)
		}
	}
}

func TestPDFRendererConvertFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		engine  PageEngine
		wantOK  bool
		wantOut bool
	}{
		{name: "engine succeeds", engine: &fakeEngine{}, wantOK: true, wantOut: true},
		{name: "engine fails", engine: &fakeEngine{err: errors.New("chrome crashed")}, wantOK: false, wantOut: false},
		{name: "no engine", engine: nil, wantOK: false, wantOut: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "-")+".pdf")
			r := NewPDFRenderer(tt.engine, nil)

			ok := r.ConvertFile(context.Background(), "# Title", out)
			if ok != tt.wantOK {
				t.Errorf("Expected ok=%v, got %v", tt.wantOK, ok)
			}

			_, err := os.Stat(out)
			if tt.wantOut && err != nil {
				t.Errorf("Expected output file, got: %v", err)
			}
			if !tt.wantOut && err == nil {
				t.Error("Expected no output file")
			}
		})
	}

	if ext := NewPDFRenderer(nil, nil).Extension(); ext != ".pdf" {
		t.Errorf("Expected '.pdf', got '%s'", ext)
	}
}
