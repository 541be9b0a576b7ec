package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

type rawPage struct {
	Number  int
	Content string
}

// Extractor turns raw document bytes into plain text. Pages, sheets and
// slides are separated by blank lines.
type Extractor struct {
	logger      *logger_i.Logger
	pageTimeout time.Duration
}

func NewExtractor() *Extractor {
	return &Extractor{
		logger:      logger_i.NewLogger("Document Extraction"),
		pageTimeout: config.PageExtractTimeout,
	}
}

// ExtractText returns "" with a nil error when the file holds no text.
func (e *Extractor) ExtractText(ctx context.Context, content []byte, docType commonModels.DocType) (string, error) {
	log := e.logger.WithTrace(ctx).With("type", docType, "size", len(content))
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("extract_"+string(docType), time.Since(start)) }()

	if len(content) == 0 {
		return "", nil
	}

	var (
		pages []rawPage
		err   error
	)
	switch docType {
	case commonModels.PDF:
		pages, err = e.extractPDF(ctx, content)
	case commonModels.WORD:
		pages, err = extractWithCat(content)
	case commonModels.EXCEL:
		pages, err = extractSpreadsheet(content)
	case commonModels.POWERPOINT:
		pages, err = extractSlides(content)
	case commonModels.TEXT:
		pages = []rawPage{{Number: 1, Content: strings.ToValidUTF8(string(content), "")}}
	default:
		return "", fmt.Errorf("unsupported content type: %q", docType)
	}
	if err != nil {
		log.Warn("extraction failed", "error", err)
		return "", err
	}

	log.Debug("extracted document", "pages", len(pages))
	return joinPages(pages), nil
}

func joinPages(pages []rawPage) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if text := strings.TrimSpace(p.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
