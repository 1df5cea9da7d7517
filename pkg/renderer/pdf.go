package renderer

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const xhtmlNamespace = "http://www.w3.org/1999/xhtml"

// pageStyle is injected into every document before layout.
const pageStyle = `@page { size: A4; margin: 18mm 16mm; }
body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 10.5pt; line-height: 1.4; color: #222; }
h1 { font-size: 20pt; margin: 0 0 6pt; }
h2 { font-size: 14pt; margin: 14pt 0 4pt; border-bottom: 1px solid #999; }
h3 { font-size: 11.5pt; margin: 10pt 0 2pt; }
ul { margin: 2pt 0 6pt 14pt; padding: 0; }
code { font-family: Menlo, Consolas, monospace; }`

// voidElements never have children and are serialized self-closed.
var voidElements = map[string]bool{ //nolint:gochecknoglobals // lookup table
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// PageEngine lays out an XHTML document as PDF bytes.
type PageEngine interface {
	PrintPDF(ctx context.Context, xhtml string) (pdf []byte, err error)
}

// PDFRenderer converts markdown to PDF via HTML and XHTML.
type PDFRenderer struct {
	engine   PageEngine
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// NewPDFRenderer creates a PDF renderer laying pages out with engine.
func NewPDFRenderer(engine PageEngine, logger *slog.Logger) (r *PDFRenderer) {
	if logger == nil {
		logger = slog.Default()
	}
	r = &PDFRenderer{
		engine:   engine,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
	return r
}

// Extension returns the file extension produced by this renderer.
func (r *PDFRenderer) Extension() (ext string) {
	ext = ".pdf"
	return ext
}

// Render converts markdown to PDF bytes.
func (r *PDFRenderer) Render(ctx context.Context, markdown string) (pdf []byte, err error) {
	var fragment string
	fragment, err = r.ToHTML(markdown)
	if err != nil {
		return pdf, err
	}

	var xhtml string
	xhtml, err = ToXHTML(fragment)
	if err != nil {
		return pdf, err
	}

	if r.engine == nil {
		err = errors.New("no page engine configured")
		return pdf, err
	}

	pdf, err = r.engine.PrintPDF(ctx, xhtml)
	if err != nil {
		err = errors.Wrap(err, "failed to lay out PDF")
		return pdf, err
	}

	return pdf, err
}

// ConvertFile renders markdown into outputPath, logging and returning false on failure.
func (r *PDFRenderer) ConvertFile(ctx context.Context, markdown, outputPath string) (ok bool) {
	pdf, err := r.Render(ctx, markdown)
	if err != nil {
		r.logger.Error("unable to render PDF", slog.String("path", outputPath), slog.Any("error", err))
		return ok
	}

	err = WriteFile(pdf, outputPath)
	if err != nil {
		r.logger.Error("unable to save PDF file", slog.String("path", outputPath), slog.Any("error", err))
		return ok
	}

	r.logger.Info("PDF saved", slog.String("path", outputPath))
	ok = true
	return ok
}

// ToHTML converts markdown to an HTML fragment.
func (r *PDFRenderer) ToHTML(markdown string) (fragment string, err error) {
	var buf bytes.Buffer
	err = r.markdown.Convert([]byte(markdown), &buf)
	if err != nil {
		err = errors.Wrap(err, "failed to convert markdown to HTML")
		return fragment, err
	}
	fragment = buf.String()
	return fragment, err
}

// ToXHTML parses HTML into a complete document and serializes it as well-formed XHTML.
func ToXHTML(source string) (xhtml string, err error) {
	var doc *html.Node
	doc, err = html.Parse(strings.NewReader(source))
	if err != nil {
		err = errors.Wrap(err, "failed to parse HTML")
		return xhtml, err
	}

	root := findElement(doc, atom.Html)
	if root == nil {
		err = errors.New("parsed document has no html element")
		return xhtml, err
	}

	if head := findElement(root, atom.Head); head != nil {
		addHeadDefaults(head)
	}

	var buf strings.Builder
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	writeXHTML(&buf, root, true)
	xhtml = buf.String()

	return xhtml, err
}

// addHeadDefaults adds the charset declaration and page stylesheet.
func addHeadDefaults(head *html.Node) {
	meta := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Meta,
		Data:     "meta",
		Attr: []html.Attribute{
			{Key: "http-equiv", Val: "Content-Type"},
			{Key: "content", Val: "text/html; charset=UTF-8"},
		},
	}
	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: pageStyle})

	head.AppendChild(meta)
	head.AppendChild(style)
}

// findElement returns the first element of kind a in a depth-first walk from n.
func findElement(n *html.Node, a atom.Atom) (found *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == a {
		found = n
		return found
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		found = findElement(c, a)
		if found != nil {
			return found
		}
	}
	return found
}

// writeXHTML serializes n and its children as XML.
func writeXHTML(buf *strings.Builder, n *html.Node, isRoot bool) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(escapeXML(n.Data, false))
	case html.CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(strings.ReplaceAll(strings.Map(xmlChar, n.Data), "--", "- -"))
		buf.WriteString("-->")
	case html.ElementNode:
		buf.WriteString("<")
		buf.WriteString(n.Data)
		if isRoot {
			buf.WriteString(` xmlns="` + xhtmlNamespace + `"`)
		}
		for _, attr := range n.Attr {
			if attr.Namespace != "" || attr.Key == "xmlns" {
				continue
			}
			buf.WriteString(" ")
			buf.WriteString(attr.Key)
			buf.WriteString(`="`)
			buf.WriteString(escapeXML(attr.Val, true))
			buf.WriteString(`"`)
		}

		if voidElements[n.Data] {
			buf.WriteString(" />")
			return
		}

		buf.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXHTML(buf, c, false)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteString(">")
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXHTML(buf, c, false)
		}
	}
}

// escapeXML escapes the five XML special characters; quotes only matter inside attributes.
func escapeXML(text string, attr bool) (escaped string) {
	replacements := []string{"&", "&amp;", "<", "&lt;", ">", "&gt;"}
	if attr {
		replacements = append(replacements, `"`, "&quot;", "'", "&#39;")
	}
	escaped = strings.NewReplacer(replacements...).Replace(strings.Map(xmlChar, text))
	return escaped
}

// xmlChar drops runes outside the XML 1.0 Char production, which no escape can carry.
func xmlChar(r rune) (kept rune) {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r < 0x20, r == 0xFFFE, r == 0xFFFF:
		return -1
	}
	return r
}
