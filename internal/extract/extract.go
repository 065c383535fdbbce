// Package extract pulls plain text out of uploaded PDF and DOCX files.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

// pageTimeout guards against pathological PDFs whose text extraction
// never returns.
const pageTimeout = 10 * time.Second

// ErrUnsupportedType is returned for file extensions other than .pdf and .docx
var ErrUnsupportedType = errors.New("unsupported file type")

// Page is the extracted text of one source page. DOCX extraction has
// no page boundaries and yields a single page.
type Page struct {
	Number  int
	Content string
}

// File extracts text from the file at path, dispatching on extension.
func File(path string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDF(path)
	case ".docx":
		return Docx(path)
	default:
		return nil, ErrUnsupportedType
	}
}

// PDF extracts per-page plain text. Pages that fail extraction are
// skipped rather than failing the whole document.
func PDF(path string) ([]Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []Page
	for i := 1; i <= f.NumPage(); i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := extractPage(page)
		if err != nil {
			continue
		}
		pages = append(pages, Page{Number: i, Content: content})
	}
	return pages, nil
}

// Docx extracts the full document text as a single page.
func Docx(path string) ([]Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract docx: %w", err)
	}
	return []Page{{Number: 1, Content: text}}, nil
}

// FullText joins extracted pages into one normalized string.
func FullText(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if s := strings.TrimSpace(p.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// extractPage runs GetPlainText under a timeout; the underlying parser
// can hang on malformed content streams.
func extractPage(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageTimeout):
		return "", errors.New("page extraction timed out")
	}
}
