package handlers

import (
	"net/http"
	"strings"

	"github.com/akolanti/DocAssist/internal/adapter"
	"github.com/akolanti/DocAssist/internal/adapter/utils"
	"github.com/akolanti/DocAssist/internal/api"
)

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.deps.Conversations.List(r.Context())
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConversationList(convs))
}

// CreateConversation accepts an empty body; the title then defaults.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req api.CreateConversationRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, "", err)
			return
		}
	}
	conv, err := h.deps.Conversations.Create(r.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToConversationResponse(conv, true))
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	conv, err := h.deps.Conversations.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConversationResponse(conv, true))
}

func (h *Handler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	var req api.RenameConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, id, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if err := requireField("title", title); err != nil {
		writeError(w, r, id, err)
		return
	}
	conv, err := h.deps.Conversations.Rename(r.Context(), id, title)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConversationResponse(conv, false))
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if err := h.deps.Conversations.Delete(r.Context(), id); err != nil {
		writeError(w, r, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetActiveConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.deps.Conversations.Active(r.Context())
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConversationResponse(conv, true))
}

// SetActiveConversation clears the pointer when conversation_id is empty.
func (h *Handler) SetActiveConversation(w http.ResponseWriter, r *http.Request) {
	var req api.SetActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "", err)
		return
	}
	if err := h.deps.Conversations.SetActive(r.Context(), req.ConversationID); err != nil {
		writeError(w, r, req.ConversationID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	log := logRH.WithTrace(r.Context())
	id := utils.GetChiURLParam(r, "id")
	if !validateContext(r.Context(), log) {
		return
	}

	var req api.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, id, err)
		return
	}
	if err := requireField("content", strings.TrimSpace(req.Content)); err != nil {
		writeError(w, r, id, err)
		return
	}

	reply, err := h.deps.Chat.SendMessage(r.Context(), id, req.Content, req.DocumentIDs)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	log.Debug("message answered", "conversationId", id, "documents", len(reply.Documents))
	writeJsonResponse(w, http.StatusOK, adapter.ToReplyResponse(reply))
}

func (h *Handler) DiscussDocument(w http.ResponseWriter, r *http.Request) {
	log := logRH.WithTrace(r.Context())
	id := utils.GetChiURLParam(r, "id")
	docID := utils.GetChiURLParam(r, "docId")
	if !validateContext(r.Context(), log) {
		return
	}

	var req api.DiscussRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, id, err)
		return
	}
	if err := requireField("query", strings.TrimSpace(req.Query)); err != nil {
		writeError(w, r, id, err)
		return
	}

	reply, err := h.deps.Chat.DiscussDocument(r.Context(), id, docID, req.Query)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToReplyResponse(reply))
}
