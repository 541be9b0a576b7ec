package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/akolanti/DocAssist/internal/adapter"
	"github.com/akolanti/DocAssist/internal/adapter/utils"
	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/document"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

const (
	uploadField     = "document"
	uploadNameField = "document_name"
	maxSearchLimit  = 20
)

// UploadDocument takes a multipart form with the file under "document".
// The pipeline runs in the background; poll the status url or listen on
// the event stream.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	log := logRH.WithTrace(r.Context())
	if !validateContext(r.Context(), log) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 2*config.MaxUploadFileSize)
	if err := r.ParseMultipartForm(config.MaxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = &commonModels.ValidationError{Field: "size", Message: fmt.Sprintf("file exceeds %d bytes", config.MaxUploadFileSize)}
		} else {
			err = &commonModels.ValidationError{Field: uploadField, Message: fmt.Sprintf("malformed multipart form: %v", err)}
		}
		writeError(w, r, "", err)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("could not remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, r, "", &commonModels.ValidationError{Field: uploadField, Message: "file is required"})
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue(uploadNameField))
	if name == "" {
		name = header.Filename
	}
	if _, err := document.Validate(name, header.Size); err != nil {
		writeError(w, r, "", err)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, config.MaxUploadFileSize+1))
	if err != nil {
		writeError(w, r, "", fmt.Errorf("reading upload: %w", err))
		return
	}

	doc, err := h.deps.Documents.Submit(r.Context(), document.FileUpload{Name: name, Size: header.Size, Content: content})
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	log.Info("document accepted", "documentId", doc.Id, "name", doc.Name, "size", doc.Size)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToUploadAccepted(doc))
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.deps.Documents.List(r.Context())
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	doc, err := h.deps.Documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if err := h.deps.Documents.Delete(r.Context(), id); err != nil {
		writeError(w, r, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryDocument restarts a failed document under its own id.
func (h *Handler) RetryDocument(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	doc, err := h.deps.Documents.Retry(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToUploadAccepted(doc))
}

func (h *Handler) CancelDocument(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if err := h.deps.Documents.Cancel(id); err != nil {
		writeError(w, r, id, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if err := requireField("q", query); err != nil {
		writeError(w, r, "", err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			writeError(w, r, "", &commonModels.ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxSearchLimit)})
			return
		}
		limit = n
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(query, h.deps.Index.Search(query, limit)))
}
