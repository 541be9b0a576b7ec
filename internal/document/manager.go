package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/rag/llm"
	"github.com/akolanti/DocAssist/internal/worker"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/google/uuid"
)

const (
	msgCancelled   = "cancelled"
	msgInterrupted = "interrupted"
)

type Store interface {
	Document(ctx context.Context, id string) (commonModels.Document, error)
	Documents(ctx context.Context) ([]commonModels.Document, error)
	SaveDocument(ctx context.Context, doc commonModels.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

type Extractor interface {
	ExtractText(ctx context.Context, content []byte, docType commonModels.DocType) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) (llm.SummaryResult, error)
}

type Indexer interface {
	Add(ctx context.Context, doc commonModels.Document) error
	Remove(id string)
}

type Scheduler interface {
	Submit(ctx context.Context, task worker.Task) error
}

// FileUpload is a file picked by the user. Size falls back to the content
// length when zero.
type FileUpload struct {
	Name    string
	Size    int64
	Content []byte
}

type Dependencies struct {
	Store      Store
	Uploader   Uploader
	Extractor  Extractor
	Summarizer Summarizer
	Indexer    Indexer
	Scheduler  Scheduler
}

// Manager owns every running document pipeline.
type Manager struct {
	deps    Dependencies
	logger  *logger_i.Logger
	now     func() time.Time
	mu      sync.Mutex
	running map[string]*pipeline
}

func NewManager(deps Dependencies) *Manager {
	return &Manager{
		deps:    deps,
		logger:  logger_i.NewLogger("Document Manager"),
		now:     time.Now,
		running: make(map[string]*pipeline),
	}
}

// Submit validates the file, stores it as pending_upload and starts its
// pipeline in the background.
func (m *Manager) Submit(ctx context.Context, upload FileUpload) (commonModels.Document, error) {
	size := upload.Size
	if size == 0 {
		size = int64(len(upload.Content))
	}
	docType, err := Validate(upload.Name, size)
	if err != nil {
		return commonModels.Document{}, err
	}

	doc := commonModels.Document{
		Id:         uuid.NewString(),
		Name:       upload.Name,
		Type:       docType,
		Size:       size,
		UploadedAt: m.now(),
		Status:     commonModels.StatusPendingUpload,
		Progress:   0,
		Content:    upload.Content,
	}
	if err := m.deps.Store.SaveDocument(ctx, doc); err != nil {
		return commonModels.Document{}, err
	}
	if err := m.start(ctx, doc); err != nil {
		return doc.Meta(), err
	}
	m.logger.WithTrace(ctx).Info("document submitted", "documentId", doc.Id, "type", doc.Type, "size", size)
	return doc.Meta(), nil
}

func (m *Manager) start(ctx context.Context, doc commonModels.Document) error {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.PipelineTimeout)
	p := &pipeline{m: m, doc: doc, cancel: cancel, log: m.logger.WithTrace(ctx).With("documentId", doc.Id)}

	m.mu.Lock()
	if _, busy := m.running[doc.Id]; busy {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: %s", commonModels.ErrPipelineRunning, doc.Id)
	}
	m.running[doc.Id] = p
	m.mu.Unlock()

	err := m.deps.Scheduler.Submit(ctx, worker.Task{
		Name:  "document_pipeline",
		Ctx:   context.WithoutCancel(ctx),
		Run:   func(context.Context) { p.run(runCtx) },
		Heavy: true,
	})
	if err != nil {
		p.log.Error("could not schedule pipeline", "error", err)
		p.fail(runCtx, fmt.Sprintf("could not schedule processing: %v", err))
		p.finish()
		return err
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, id string) (commonModels.Document, error) {
	doc, err := m.deps.Store.Document(ctx, id)
	if err != nil {
		return commonModels.Document{}, err
	}
	return doc.Meta(), nil
}

func (m *Manager) List(ctx context.Context) ([]commonModels.Document, error) {
	docs, err := m.deps.Store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i] = docs[i].Meta()
	}
	return docs, nil
}

func (m *Manager) Running(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[id]
	return ok
}

// Cancel stops a running pipeline; the document ends failed.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	p, ok := m.running[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no running pipeline for %s: %w", id, commonModels.ErrNotFound)
	}
	p.cancel()
	return nil
}

// CancelAll stops every running pipeline and returns how many it stopped.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	running := make([]*pipeline, 0, len(m.running))
	for _, p := range m.running {
		running = append(running, p)
	}
	m.mu.Unlock()

	for _, p := range running {
		p.cancel()
	}
	return len(running)
}

// Delete removes the document. A running pipeline is stopped and none of
// its later writes reach the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.deps.Store.Document(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	p, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		p.markDeleted()
	}

	if err := m.deps.Store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if m.deps.Indexer != nil {
		m.deps.Indexer.Remove(id)
	}
	m.logger.WithTrace(ctx).Info("document deleted", "documentId", id)
	return nil
}

// Retry runs a failed document again from its retained content under the
// same id, so conversations that reference it keep resolving it.
func (m *Manager) Retry(ctx context.Context, id string) (commonModels.Document, error) {
	doc, err := m.deps.Store.Document(ctx, id)
	if err != nil {
		return commonModels.Document{}, err
	}
	if doc.Status != commonModels.StatusFailed {
		return commonModels.Document{}, &commonModels.ValidationError{Field: "status", Message: fmt.Sprintf("only failed documents can be retried, this one is %s", doc.Status)}
	}
	if len(doc.Content) == 0 {
		return commonModels.Document{}, &commonModels.ValidationError{Field: "content", Message: "no content was retained for this document"}
	}
	if m.Running(id) {
		return commonModels.Document{}, fmt.Errorf("%w: %s", commonModels.ErrPipelineRunning, id)
	}

	if err := doc.Reset(); err != nil {
		return commonModels.Document{}, err
	}
	if err := m.deps.Store.SaveDocument(ctx, doc); err != nil {
		return commonModels.Document{}, err
	}
	if err := m.start(ctx, doc); err != nil {
		return doc.Meta(), err
	}
	m.logger.WithTrace(ctx).Info("document retried", "documentId", id)
	return doc.Meta(), nil
}

// Resume fails documents a previous process left mid-pipeline and returns
// how many it touched.
func (m *Manager) Resume(ctx context.Context) (int, error) {
	docs, err := m.deps.Store.Documents(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, doc := range docs {
		if doc.Status.IsTerminal() || m.Running(doc.Id) {
			continue
		}
		if err := doc.Fail(msgInterrupted); err != nil {
			continue
		}
		if err := m.deps.Store.SaveDocument(ctx, doc); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		m.logger.WithTrace(ctx).Warn("marked interrupted documents failed", "count", count)
	}
	return count, nil
}

func (m *Manager) scheduleIndexing(ctx context.Context, doc commonModels.Document) {
	if m.deps.Indexer == nil {
		return
	}
	err := m.deps.Scheduler.Submit(ctx, worker.Task{
		Name: "document_index",
		Ctx:  context.WithoutCancel(ctx),
		Run: func(taskCtx context.Context) {
			if err := m.deps.Indexer.Add(taskCtx, doc); err != nil {
				m.logger.WithTrace(taskCtx).Warn("indexing failed", "error", err)
			}
		},
	})
	if err != nil && !errors.Is(err, worker.ErrPoolStopped) {
		m.logger.WithTrace(ctx).Warn("could not schedule indexing", "documentId", doc.Id, "error", err)
	}
}
