package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

func (e *Extractor) extractPDF(ctx context.Context, content []byte) ([]rawPage, error) {
	f, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := e.protectExtract(ctx, page)
		if err != nil {
			// one bad page should not lose the rest of the document
			e.logger.WithTrace(ctx).Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, rawPage{Number: i, Content: text})
	}
	return pages, nil
}

// protectExtract bounds a single page; some malformed pages never return.
func (e *Extractor) protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page parser panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(e.pageTimeout):
		return "", errors.New("page extraction timeout")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// cat only reads from disk, so the bytes take a detour through a temp file.
func extractWithCat(content []byte) ([]rawPage, error) {
	ext := sniffWordExtension(content)
	tmp, err := os.CreateTemp("", "assist-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	text, err := cat.File(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to extract word document: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

// sniffWordExtension picks the extension cat dispatches on from the magic bytes.
func sniffWordExtension(content []byte) string {
	switch {
	case bytes.HasPrefix(content, []byte("{\\rtf")):
		return ".rtf"
	case bytes.HasPrefix(content, []byte("PK")):
		if bytes.Contains(content[:min(len(content), 4096)], []byte("opendocument")) {
			return ".odt"
		}
		return ".docx"
	default:
		return ".txt"
	}
}

func extractSpreadsheet(content []byte) ([]rawPage, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var pages []rawPage
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		var b strings.Builder
		b.WriteString(sheet)
		b.WriteString("\n\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		pages = append(pages, rawPage{Number: i + 1, Content: b.String()})
	}
	return pages, nil
}
