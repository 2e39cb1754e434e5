package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	pageMarginMM   = 20.0
	bodyLineHeight = 5.5
)

// documentEpoch stamps every artifact so identical content yields identical bytes.
var documentEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDFRenderer lays out letterhead, title and body on A4 pages.
type PDFRenderer struct {
	Author string
}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer(author string) *PDFRenderer {
	return &PDFRenderer{Author: author}
}

// Render produces a PDF for content and re-reads it to make sure every page made it out.
func (r *PDFRenderer) Render(ctx context.Context, content Content) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ArtifactRenderError{Err: err}
	}
	if strings.TrimSpace(content.Body) == "" {
		return nil, &ArtifactRenderError{Err: fmt.Errorf("body is empty")}
	}
	if bad := unsupportedRunes(r.Author, content.Title, content.Header, content.Body); len(bad) > 0 {
		return nil, &ArtifactRenderError{Err: fmt.Errorf("characters not supported by the document fonts: %q", string(bad))}
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(documentEpoch)
	doc.SetModificationDate(documentEpoch)
	doc.SetCatalogSort(true)
	doc.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	doc.SetAutoPageBreak(true, pageMarginMM)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetTitle(tr(content.Title), false)
	if r.Author != "" {
		doc.SetAuthor(tr(r.Author), false)
	}
	doc.AddPage()

	if header := strings.TrimSpace(content.Header); header != "" {
		doc.SetFont("Helvetica", "", 9)
		doc.MultiCell(0, 4.5, tr(header), "", "L", false)
		doc.Ln(2)
		y := doc.GetY()
		pageWidth, _ := doc.GetPageSize()
		doc.Line(pageMarginMM, y, pageWidth-pageMarginMM, y)
		doc.Ln(6)
	}

	if title := strings.TrimSpace(content.Title); title != "" {
		doc.SetFont("Helvetica", "B", 16)
		doc.MultiCell(0, 8, tr(title), "", "C", false)
		doc.Ln(4)
	}

	doc.SetFont("Times", "", 11)
	for _, para := range paragraphs(content.Body) {
		if para == "" {
			doc.Ln(bodyLineHeight)
			continue
		}
		doc.MultiCell(0, bodyLineHeight, tr(para), "", "L", false)
		doc.Ln(1.5)
	}

	if err := doc.Error(); err != nil {
		return nil, &ArtifactRenderError{Err: err}
	}
	expectedPages := doc.PageNo()

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &ArtifactRenderError{Err: err}
	}

	pages, err := Inspect(buf.Bytes())
	if err != nil {
		return nil, &ArtifactRenderError{Err: err}
	}
	if pages != expectedPages {
		return nil, &ArtifactRenderError{Err: fmt.Errorf("rendered %d pages, file has %d", expectedPages, pages)}
	}
	return buf.Bytes(), nil
}

// unsupportedRunes lists, in first-seen order, the runes the cp1252 encoding
// of the core fonts cannot represent. Line breaks and tabs are layout only.
func unsupportedRunes(texts ...string) []rune {
	var out []rune
	seen := make(map[rune]bool)
	for _, text := range texts {
		for _, r := range text {
			if r == '\n' || r == '\r' || r == '\t' || seen[r] {
				continue
			}
			if _, ok := charmap.Windows1252.EncodeRune(r); ok && !unicode.IsControl(r) {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func paragraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return out
}

var _ Renderer = (*PDFRenderer)(nil)
