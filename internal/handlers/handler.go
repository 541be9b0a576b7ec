package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/akolanti/DocAssist/internal/api"
	"github.com/akolanti/DocAssist/internal/data/store"
	"github.com/akolanti/DocAssist/internal/document"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/internal/rag"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/gorilla/websocket"
)

var logRH = logger_i.NewLogger("Handlers")

type Conversations interface {
	Create(ctx context.Context, title string) (chatModel.Conversation, error)
	List(ctx context.Context) ([]chatModel.Conversation, error)
	Get(ctx context.Context, id string) (chatModel.Conversation, error)
	Rename(ctx context.Context, id, title string) (chatModel.Conversation, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) error
	Active(ctx context.Context) (chatModel.Conversation, error)
}

type Documents interface {
	Submit(ctx context.Context, upload document.FileUpload) (commonModels.Document, error)
	Get(ctx context.Context, id string) (commonModels.Document, error)
	List(ctx context.Context) ([]commonModels.Document, error)
	Delete(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) (commonModels.Document, error)
	Cancel(id string) error
}

type Searcher interface {
	Search(query string, limit int) []search.Result
	Len() int
}

// Preferences is the part of the store the handlers touch directly.
type Preferences interface {
	Status() store.Status
	Settings(ctx context.Context) (chatModel.Settings, error)
	SaveSettings(ctx context.Context, settings chatModel.Settings) error
	SaveTranslation(ctx context.Context, job chatModel.TranslationJob) (chatModel.TranslationJob, error)
	Translation(ctx context.Context, id string) (chatModel.TranslationJob, error)
	Translations(ctx context.Context) ([]chatModel.TranslationJob, error)
	DeleteTranslation(ctx context.Context, id string) error
}

type Dependencies struct {
	Conversations Conversations
	Documents     Documents
	Chat          rag.Service
	Index         Searcher
	Preferences   Preferences
	Bus           *notify.Bus

	// AllowAnyOrigin lets cross-site pages open the event stream. Only set
	// it when requests are authenticated.
	AllowAnyOrigin bool
}

// Handler serves the HTTP surface. Close ends every open event stream.
type Handler struct {
	deps      Dependencies
	upgrader  websocket.Upgrader
	closing   chan struct{}
	closeOnce sync.Once
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, upgrader: newUpgrader(deps.AllowAnyOrigin), closing: make(chan struct{})}
}

func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.deps.Preferences.Status()
	res := api.HealthResponse{
		Status:   "ok",
		Backend:  string(status.Backend),
		Location: status.Location,
		Degraded: status.Degraded,
		Reason:   status.Reason,
		Indexed:  h.deps.Index.Len(),
	}
	if status.Degraded {
		res.Status = "degraded"
	}
	writeJsonResponse(w, http.StatusOK, res)
}
