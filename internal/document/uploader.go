package document

import (
	"bytes"
	"context"
	"io"

	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

// UploadResult is what the backend hands back once it accepted a file.
type UploadResult struct {
	BackendID string `json:"id"`
	FileURL   string `json:"url"`
}

// Uploader sends a document to the backend upload service. progress gets
// percentages in increasing order.
type Uploader interface {
	Upload(ctx context.Context, doc commonModels.Document, content []byte, progress func(int)) (UploadResult, error)
}

// progressReader reports how much of content has been consumed.
type progressReader struct {
	*bytes.Reader
	total  int64
	last   int
	report func(int)
}

func newProgressReader(content []byte, report func(int)) *progressReader {
	return &progressReader{Reader: bytes.NewReader(content), total: int64(len(content)), last: -1, report: report}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if r.total > 0 && r.report != nil {
		done := r.total - int64(r.Reader.Len())
		pct := int(done * 100 / r.total)
		if pct > r.last {
			r.last = pct
			r.report(pct)
		}
	}
	return n, err
}

var _ io.ReadSeeker = (*progressReader)(nil)
