package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/handlers"
	"github.com/akolanti/DocAssist/internal/middleware"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	http   *http.Server
	logger *logger_i.Logger
}

type ShutdownParams struct {
	GracefulShutdown <-chan os.Signal
	StopExecution    chan bool
	// CloseServices runs after the listener has drained.
	CloseServices func()
}

// NewRouter mounts the API. mcp may be nil.
func NewRouter(h *handlers.Handler, mw *middleware.Chain, mcp http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", mw.Wrap(h.Health))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/events", mw.Wrap(h.Events))

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", mw.Wrap(h.ListConversations))
		r.Post("/", mw.Wrap(h.CreateConversation))
		r.Get("/active", mw.Wrap(h.GetActiveConversation))
		r.Put("/active", mw.Wrap(h.SetActiveConversation))
		r.Get("/{id}", mw.Wrap(h.GetConversation))
		r.Patch("/{id}", mw.Wrap(h.RenameConversation))
		r.Delete("/{id}", mw.Wrap(h.DeleteConversation))
		r.Post("/{id}/messages", mw.WrapLimited(h.SendMessage))
		r.Post("/{id}/documents/{docId}/discuss", mw.WrapLimited(h.DiscussDocument))
	})

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", mw.Wrap(h.ListDocuments))
		r.Post("/", mw.WrapLimited(h.UploadDocument))
		r.Get("/search", mw.Wrap(h.SearchDocuments))
		r.Get("/{id}", mw.Wrap(h.GetDocument))
		r.Delete("/{id}", mw.Wrap(h.DeleteDocument))
		r.Post("/{id}/retry", mw.WrapLimited(h.RetryDocument))
		r.Post("/{id}/cancel", mw.Wrap(h.CancelDocument))
	})

	r.Route("/translations", func(r chi.Router) {
		r.Get("/", mw.Wrap(h.ListTranslations))
		r.Post("/", mw.Wrap(h.CreateTranslation))
		r.Get("/{id}", mw.Wrap(h.GetTranslation))
		r.Put("/{id}", mw.Wrap(h.UpdateTranslation))
		r.Delete("/{id}", mw.Wrap(h.DeleteTranslation))
	})

	r.Get("/settings", mw.Wrap(h.GetSettings))
	r.Put("/settings", mw.Wrap(h.UpdateSettings))

	if mcp != nil {
		r.Handle("/mcp", mw.Wrap(mcp.ServeHTTP))
		r.Handle("/mcp/*", mw.Wrap(mcp.ServeHTTP))
	}
	return r
}

func New(listenAddr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

// Start blocks until the server stops.
func (s *Server) Start() {
	s.logger.Info("Server is listening at", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err.Error(), "addr", s.http.Addr)
	}
}

func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.http.SetKeepAlivesEnabled(false)

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Gracefully shut down")
	case <-ctx.Done():
		s.logger.Error("Force shut down")
		os.Exit(1)
	}
}
