// Package pdftext extracts per-page text from PDF files.
package pdftext

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/config"
	"github.com/ledongthuc/pdf"
)

// Source yields the text of every page of a PDF, in page order.
// A page without extractable text yields an empty string.
type Source interface {
	Pages(path string) ([]string, error)
}

// Reader is a Source backed by github.com/ledongthuc/pdf.
type Reader struct {
	// Mode is config.TextRows or config.TextPlain.
	Mode string
}

// NewReader returns a Reader for the given text mode.
func NewReader(mode string) (*Reader, error) {
	switch mode {
	case "", config.TextRows:
		return &Reader{Mode: config.TextRows}, nil
	case config.TextPlain:
		return &Reader{Mode: config.TextPlain}, nil
	default:
		return nil, fmt.Errorf("unknown text mode %q", mode)
	}
}

// Pages opens path and returns the text of each page.
// The decoder may panic on malformed files; callers isolate that per file.
func (r *Reader) Pages(path string) ([]string, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := r.pageText(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (r *Reader) pageText(p pdf.Page) (string, error) {
	if r.Mode == config.TextRows {
		return rowText(p)
	}

	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		font := p.Font(name)
		fonts[name] = &font
	}
	return p.GetPlainText(fonts)
}

// rowText rebuilds each visual row and separates the text runs with spaces so
// adjacent fields never fuse into one token.
func rowText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, t := range row.Content {
			if s := strings.TrimSpace(t.S); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			continue
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
