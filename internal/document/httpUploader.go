package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/customHttpClient"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

const maxErrorBody = 512

// HTTPUploader posts the file as multipart form data and expects
// {"id": ..., "url": ...} back.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

func NewHTTPUploader(endpoint string) *HTTPUploader {
	return &HTTPUploader{endpoint: endpoint, client: customHttpClient.NewClient(config.UploadRequestTimeout)}
}

func (u *HTTPUploader) Upload(ctx context.Context, doc commonModels.Document, content []byte, progress func(int)) (UploadResult, error) {
	body, contentType := multipartBody(doc, content, progress)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", contentType)
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		req.Header.Set("X-Trace-ID", trace)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return UploadResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return UploadResult{}, fmt.Errorf("upload service returned %d: %s", resp.StatusCode, msg)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return UploadResult{}, fmt.Errorf("decoding upload response: %w", err)
	}
	if result.BackendID == "" {
		return UploadResult{}, fmt.Errorf("upload service returned no id")
	}
	return result, nil
}

// multipartBody streams the form through a pipe so progress follows what
// the transport has actually read.
func multipartBody(doc commonModels.Document, content []byte, progress func(int)) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if err := mw.WriteField("id", doc.Id); err != nil {
				return err
			}
			if err := mw.WriteField("type", string(doc.Type)); err != nil {
				return err
			}
			part, err := mw.CreateFormFile("file", doc.Name)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, newProgressReader(content, progress)); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}
