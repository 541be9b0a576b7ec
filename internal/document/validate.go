package document

import (
	"fmt"
	"strings"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

// Validate rejects files the pipeline must never see.
func Validate(name string, size int64) (commonModels.DocType, error) {
	if strings.TrimSpace(name) == "" {
		return commonModels.ERR, &commonModels.ValidationError{Field: "name", Message: "file name is required"}
	}
	if size < 0 {
		return commonModels.ERR, &commonModels.ValidationError{Field: "size", Message: "negative file size"}
	}
	if size > config.MaxUploadFileSize {
		return commonModels.ERR, &commonModels.ValidationError{
			Field:   "size",
			Message: fmt.Sprintf("file is %d bytes, the limit is %d", size, config.MaxUploadFileSize),
		}
	}
	docType := commonModels.GetDocType(name)
	if docType == commonModels.ERR {
		return commonModels.ERR, &commonModels.ValidationError{Field: "type", Message: fmt.Sprintf("unsupported file type %q", name)}
	}
	return docType, nil
}
