package renderer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Heading sizes in half-points, and the bullet indent in twips.
const (
	Heading1HalfPoints = 56
	Heading2HalfPoints = 48
	Heading3HalfPoints = 40
	BulletIndentTwips  = 720
	BulletGlyph        = "• "
)

// boldSpan matches one **bold** span, non-greedy.
var boldSpan = regexp.MustCompile(`\*\*(.*?)\*\*`) //nolint:gochecknoglobals // compiled once

// inlineMarkers flatten the non-bold spans of a paragraph to their text, applied in order.
var inlineMarkers = []struct { //nolint:gochecknoglobals // compiled once
	span *regexp.Regexp
	keep string
}{
	{span: regexp.MustCompile(`__(.*?)__`), keep: "$1"},
	{span: regexp.MustCompile(`\*(.*?)\*`), keep: "$1"},
	{span: regexp.MustCompile(`_(.*?)_`), keep: "$1"},
	{span: regexp.MustCompile("`(.*?)`"), keep: "$1"},
	{span: regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), keep: "$1"},
}

// docxEpoch is stamped on every zip entry so identical input yields identical bytes.
var docxEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // constant time value

// Run is a span of text sharing one format.
type Run struct {
	Text       string
	Bold       bool
	HalfPoints int
}

// Paragraph is one block of the flow document.
type Paragraph struct {
	Runs        []Run
	IndentTwips int
}

// blockRule pairs a block predicate with the paragraph builder used when it matches.
type blockRule struct {
	name  string
	match func(block string) bool
	build func(block string) Paragraph
}

// blockRules are evaluated in order; the first match wins.
func blockRules() (rules []blockRule) {
	rules = []blockRule{
		{name: "heading1", match: hasPrefix("# "), build: heading("# ", Heading1HalfPoints)},
		{name: "heading2", match: hasPrefix("## "), build: heading("## ", Heading2HalfPoints)},
		{name: "heading3", match: hasPrefix("### "), build: heading("### ", Heading3HalfPoints)},
		{name: "bullet", match: hasPrefix("- ", "* "), build: bullet},
		{name: "paragraph", match: func(string) bool { return true }, build: inlineParagraph},
	}
	return rules
}

func hasPrefix(prefixes ...string) func(string) bool {
	return func(block string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(block, p) {
				return true
			}
		}
		return false
	}
}

func heading(marker string, halfPoints int) func(string) Paragraph {
	return func(block string) Paragraph {
		return Paragraph{
			Runs: []Run{{Text: strings.TrimPrefix(block, marker), Bold: true, HalfPoints: halfPoints}},
		}
	}
}

func bullet(block string) (p Paragraph) {
	p = Paragraph{
		Runs:        []Run{{Text: BulletGlyph + block[2:]}},
		IndentTwips: BulletIndentTwips,
	}
	return p
}

// inlineParagraph emits alternating plain and bold runs in source order.
// Italic, code and link markers are dropped and their text kept.
func inlineParagraph(block string) (p Paragraph) {
	last := 0
	for _, loc := range boldSpan.FindAllStringSubmatchIndex(block, -1) {
		if loc[0] > last {
			p = appendPlain(p, block[last:loc[0]])
		}
		p.Runs = append(p.Runs, Run{Text: flatten(block[loc[2]:loc[3]]), Bold: true})
		last = loc[1]
	}
	if last < len(block) {
		p = appendPlain(p, block[last:])
	}
	return p
}

func appendPlain(p Paragraph, text string) (out Paragraph) {
	out = p
	if text = flatten(text); text != "" {
		out.Runs = append(out.Runs, Run{Text: text})
	}
	return out
}

// flatten strips italic, code and link markup from text.
func flatten(text string) (plain string) {
	plain = text
	for _, m := range inlineMarkers {
		plain = m.span.ReplaceAllString(plain, m.keep)
	}
	return plain
}

// Reduce converts markdown into flow-document paragraphs.
func Reduce(markdown string) (paragraphs []Paragraph) {
	rules := blockRules()
	for _, block := range splitBlocks(markdown) {
		for _, rule := range rules {
			if rule.match(block) {
				paragraphs = append(paragraphs, rule.build(block))
				break
			}
		}
	}
	return paragraphs
}

// splitBlocks cuts text at every newline that is immediately followed by another newline,
// then trims each piece and drops the empty ones.
func splitBlocks(text string) (blocks []string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	start := 0
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '\n' && text[i+1] == '\n' {
			blocks = appendBlock(blocks, text[start:i])
			start = i + 1
		}
	}
	blocks = appendBlock(blocks, text[start:])

	return blocks
}

func appendBlock(blocks []string, raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return blocks
	}
	return append(blocks, trimmed)
}

// DocxRenderer writes markdown as a minimal Office Open XML word-processing package.
type DocxRenderer struct {
	logger *slog.Logger
}

// NewDocxRenderer creates a DOCX renderer.
func NewDocxRenderer(logger *slog.Logger) (r *DocxRenderer) {
	if logger == nil {
		logger = slog.Default()
	}
	r = &DocxRenderer{logger: logger}
	return r
}

// Extension returns the file extension produced by this renderer.
func (r *DocxRenderer) Extension() (ext string) {
	ext = ".docx"
	return ext
}

// ConvertFile renders markdown into outputPath, logging and returning false on failure.
func (r *DocxRenderer) ConvertFile(_ context.Context, markdown, outputPath string) (ok bool) {
	data, err := r.Render(markdown)
	if err != nil {
		r.logger.Error("unable to render DOCX", slog.String("path", outputPath), slog.Any("error", err))
		return ok
	}

	err = WriteFile(data, outputPath)
	if err != nil {
		r.logger.Error("unable to save DOCX file", slog.String("path", outputPath), slog.Any("error", err))
		return ok
	}

	r.logger.Info("DOCX saved", slog.String("path", outputPath))
	ok = true
	return ok
}

// Render converts markdown to DOCX bytes. Identical input yields identical output.
func (r *DocxRenderer) Render(markdown string) (data []byte, err error) {
	var document string
	document, err = documentXML(Reduce(markdown))
	if err != nil {
		return data, err
	}

	parts := []struct {
		name    string
		content string
	}{
		{name: "[Content_Types].xml", content: contentTypesXML},
		{name: "_rels/.rels", content: rootRelsXML},
		{name: "word/_rels/document.xml.rels", content: documentRelsXML},
		{name: "word/document.xml", content: document},
		{name: "word/styles.xml", content: stylesXML},
		{name: "docProps/core.xml", content: corePropsXML},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, part := range parts {
		header := &zip.FileHeader{
			Name:     part.name,
			Method:   zip.Deflate,
			Modified: docxEpoch,
		}

		var w io.Writer
		w, err = zw.CreateHeader(header)
		if err != nil {
			err = errors.Wrapf(err, "failed to add %s", part.name)
			return data, err
		}

		_, err = w.Write([]byte(part.content))
		if err != nil {
			err = errors.Wrapf(err, "failed to write %s", part.name)
			return data, err
		}
	}

	err = zw.Close()
	if err != nil {
		err = errors.Wrap(err, "failed to finish DOCX package")
		return data, err
	}

	data = buf.Bytes()
	return data, err
}

// documentXML serializes paragraphs as the body of word/document.xml.
func documentXML(paragraphs []Paragraph) (document string, err error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for _, p := range paragraphs {
		b.WriteString("<w:p>")
		if p.IndentTwips > 0 {
			b.WriteString(`<w:pPr><w:ind w:left="` + strconv.Itoa(p.IndentTwips) + `"/></w:pPr>`)
		}
		for _, run := range p.Runs {
			err = writeRun(&b, run)
			if err != nil {
				return document, err
			}
		}
		b.WriteString("</w:p>")
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`)
	document = b.String()

	return document, err
}

// writeRun emits one w:r element; newlines inside the text become line breaks.
func writeRun(b *strings.Builder, run Run) (err error) {
	b.WriteString("<w:r>")
	if run.Bold || run.HalfPoints > 0 {
		b.WriteString("<w:rPr>")
		if run.Bold {
			b.WriteString("<w:b/>")
		}
		if run.HalfPoints > 0 {
			size := strconv.Itoa(run.HalfPoints)
			b.WriteString(`<w:sz w:val="` + size + `"/><w:szCs w:val="` + size + `"/>`)
		}
		b.WriteString("</w:rPr>")
	}

	for i, line := range strings.Split(run.Text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		err = xml.EscapeText(b, []byte(line))
		if err != nil {
			err = errors.Wrap(err, "failed to escape run text")
			return err
		}
		b.WriteString("</w:t>")
	}

	b.WriteString("</w:r>")
	return err
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const rootRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

const documentRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

const stylesXML = xml.Header + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/>` +
	`<w:sz w:val="22"/><w:szCs w:val="22"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="120"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`</w:styles>`

const corePropsXML = xml.Header + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
	`xmlns:dc="http://purl.org/dc/elements/1.1/">` +
	`<dc:title>Generated document</dc:title><dc:creator>resume-optimizer</dc:creator>` +
	`</cp:coreProperties>`
