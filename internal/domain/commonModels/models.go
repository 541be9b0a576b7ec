package commonModels

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type DocType string

const (
	PDF        DocType = "pdf"
	WORD       DocType = "word"
	EXCEL      DocType = "excel"
	POWERPOINT DocType = "powerpoint"
	TEXT       DocType = "text"
	ERR        DocType = ""
)

var extensionTypes = map[string]DocType{
	".pdf":  PDF,
	".doc":  WORD,
	".docx": WORD,
	".odt":  WORD,
	".rtf":  WORD,
	".xls":  EXCEL,
	".xlsx": EXCEL,
	".ppt":  POWERPOINT,
	".pptx": POWERPOINT,
	".txt":  TEXT,
	".md":   TEXT,
	".csv":  TEXT,
}

// GetDocType maps a file name to its document type, ERR when unsupported.
func GetDocType(name string) DocType {
	return extensionTypes[strings.ToLower(filepath.Ext(name))]
}

type DocumentStatus string

const (
	StatusPendingUpload       DocumentStatus = "pending_upload"
	StatusUploadingToBackend  DocumentStatus = "uploading_to_backend"
	StatusPendingAIProcessing DocumentStatus = "pending_ai_processing"
	StatusAIProcessing        DocumentStatus = "ai_processing"
	StatusCompleted           DocumentStatus = "completed"
	StatusFailed              DocumentStatus = "failed"
)

var pipelineOrder = map[DocumentStatus]int{
	StatusPendingUpload:       0,
	StatusUploadingToBackend:  1,
	StatusPendingAIProcessing: 2,
	StatusAIProcessing:        3,
	StatusCompleted:           4,
	StatusFailed:              4,
}

func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s DocumentStatus) IsValid() bool {
	_, ok := pipelineOrder[s]
	return ok
}

// CanTransition reports whether from -> to follows the pipeline without
// skipping a stage. failed is reachable from every non-terminal state.
func CanTransition(from, to DocumentStatus) bool {
	if from.IsTerminal() || !from.IsValid() || !to.IsValid() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return pipelineOrder[to] == pipelineOrder[from]+1
}

// BackendReference is assigned once, when the upload service accepts the file.
type BackendReference struct {
	ID      string `json:"id"`
	FileURL string `json:"file_url,omitempty"`
}

type Document struct {
	Id         string            `json:"id"`
	Backend    *BackendReference `json:"backend,omitempty"`
	Name       string            `json:"name"`
	Type       DocType           `json:"type"`
	Size       int64             `json:"size"`
	UploadedAt time.Time         `json:"uploaded_at"`
	Status     DocumentStatus    `json:"status"`
	Progress   int               `json:"progress"`
	Summary    string            `json:"summary,omitempty"`
	Content    []byte            `json:"content,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Advance moves the document to status with the given progress. Within one
// status progress never decreases.
func (d *Document) Advance(status DocumentStatus, progress int) error {
	progress = clampProgress(progress)
	if status == d.Status {
		if d.Status.IsTerminal() {
			return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, d.Status)
		}
		if progress < d.Progress {
			return fmt.Errorf("%w: progress %d -> %d in %s", ErrInvalidTransition, d.Progress, progress, status)
		}
		d.Progress = progress
		return nil
	}
	if !CanTransition(d.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, status)
	}
	d.Status = status
	d.Progress = progress
	return nil
}

// Fail moves the document to failed keeping whatever backend reference it has.
func (d *Document) Fail(message string) error {
	if err := d.Advance(StatusFailed, d.Progress); err != nil {
		return err
	}
	d.Error = message
	return nil
}

// Reset puts a failed document back at pending_upload so a new run can
// start under the same id. It is the only way out of a terminal state.
func (d *Document) Reset() error {
	if d.Status != StatusFailed {
		return fmt.Errorf("%w: %s cannot restart", ErrInvalidTransition, d.Status)
	}
	d.Status = StatusPendingUpload
	d.Progress = 0
	d.Backend = nil
	d.Summary = ""
	d.Error = ""
	return nil
}

func (d Document) IsCompleted() bool {
	return d.Status == StatusCompleted
}

// Meta returns a copy without the raw content payload.
func (d Document) Meta() Document {
	d.Content = nil
	return d
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
