package handlers

import (
	"net/http"
	"strings"

	"github.com/akolanti/DocAssist/internal/adapter"
	"github.com/akolanti/DocAssist/internal/adapter/utils"
	"github.com/akolanti/DocAssist/internal/api"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

func validateTranslation(req api.TranslationRequest) error {
	if err := requireField("target_language", strings.TrimSpace(req.TargetLanguage)); err != nil {
		return err
	}
	if err := requireField("source", strings.TrimSpace(req.Source)); err != nil {
		return err
	}
	switch chatModel.TranslationType(req.Type) {
	case "", chatModel.TranslationText, chatModel.TranslationDocument:
		return nil
	default:
		return &commonModels.ValidationError{Field: "type", Message: "must be text or document"}
	}
}

func (h *Handler) ListTranslations(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.deps.Preferences.Translations(r.Context())
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	res := make([]api.TranslationResponse, 0, len(jobs))
	for _, j := range jobs {
		res = append(res, adapter.ToTranslationResponse(j))
	}
	writeJsonResponse(w, http.StatusOK, res)
}

func (h *Handler) CreateTranslation(w http.ResponseWriter, r *http.Request) {
	var req api.TranslationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "", err)
		return
	}
	if err := validateTranslation(req); err != nil {
		writeError(w, r, "", err)
		return
	}
	job, err := h.deps.Preferences.SaveTranslation(r.Context(), adapter.FromTranslationRequest(utils.GetNewUUID(), req))
	if err != nil {
		writeError(w, r, job.Id, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToTranslationResponse(job))
}

func (h *Handler) GetTranslation(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	job, err := h.deps.Preferences.Translation(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTranslationResponse(job))
}

// UpdateTranslation replaces the job's fields and keeps its creation time.
func (h *Handler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	existing, err := h.deps.Preferences.Translation(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	var req api.TranslationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, id, err)
		return
	}
	if err := validateTranslation(req); err != nil {
		writeError(w, r, id, err)
		return
	}
	job := adapter.FromTranslationRequest(id, req)
	job.CreatedAt = existing.CreatedAt
	job, err = h.deps.Preferences.SaveTranslation(r.Context(), job)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTranslationResponse(job))
}

func (h *Handler) DeleteTranslation(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if _, err := h.deps.Preferences.Translation(r.Context(), id); err != nil {
		writeError(w, r, id, err)
		return
	}
	if err := h.deps.Preferences.DeleteTranslation(r.Context(), id); err != nil {
		writeError(w, r, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.deps.Preferences.Settings(r.Context())
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSettingsResponse(settings))
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req api.SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "", err)
		return
	}
	settings, err := h.deps.Preferences.Settings(r.Context())
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	if req.DarkMode != nil {
		settings.DarkMode = *req.DarkMode
	}
	if req.Language != nil {
		settings.Language = strings.TrimSpace(*req.Language)
	}
	if err := h.deps.Preferences.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSettingsResponse(settings))
}
