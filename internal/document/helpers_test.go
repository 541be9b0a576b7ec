package document

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/data/store"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/internal/rag/llm"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/internal/worker"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "doc-test")
}

type textExtractor struct {
	err error
}

func (e textExtractor) ExtractText(_ context.Context, content []byte, _ commonModels.DocType) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return string(content), nil
}

type mockSummarizer struct {
	OnSummarize func(ctx context.Context, content string) (llm.SummaryResult, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, content string) (llm.SummaryResult, error) {
	if m.OnSummarize != nil {
		return m.OnSummarize(ctx, content)
	}
	return llm.SummaryResult{Summary: "## Overview\nmocked summary"}, nil
}

// blockingUploader holds the upload until the run is cancelled.
type blockingUploader struct {
	once    sync.Once
	started chan struct{}
}

func newBlockingUploader() *blockingUploader {
	return &blockingUploader{started: make(chan struct{})}
}

func (u *blockingUploader) Upload(ctx context.Context, _ commonModels.Document, _ []byte, progress func(int)) (UploadResult, error) {
	progress(10)
	u.once.Do(func() { close(u.started) })
	<-ctx.Done()
	return UploadResult{}, ctx.Err()
}

type transition struct {
	status   commonModels.DocumentStatus
	progress int
}

type fixture struct {
	storage     *store.Storage
	index       *search.Index
	summarizer  *mockSummarizer
	manager     *Manager
	mu          sync.Mutex
	transitions map[string][]transition
}

func newFixture(t *testing.T, uploader Uploader, extractor Extractor) *fixture {
	t.Helper()
	bus := notify.NewBus()
	storage := store.New(store.NewMemoryBackend(), bus)

	pool := worker.NewPool(worker.Options{MinWorkers: 2, MaxWorkers: 4, RequestsPerWorker: 1, IdleTimeout: time.Minute, Buffer: 16})
	pool.Start()

	f := &fixture{
		storage:     storage,
		index:       search.NewIndex(extractor),
		summarizer:  &mockSummarizer{},
		transitions: make(map[string][]transition),
	}
	f.manager = NewManager(Dependencies{
		Store:      storage,
		Uploader:   uploader,
		Extractor:  extractor,
		Summarizer: f.summarizer,
		Indexer:    f.index,
		Scheduler:  pool,
	})

	bus.Subscribe(notify.TopicDocuments, func(ctx context.Context, e notify.Event) {
		doc, err := storage.Document(ctx, e.Key)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.transitions[doc.Id] = append(f.transitions[doc.Id], transition{doc.Status, doc.Progress})
		f.mu.Unlock()
	})

	t.Cleanup(func() {
		pool.Stop()
		_ = storage.Close()
	})
	return f
}

func (f *fixture) waitDone(t *testing.T, id string) commonModels.Document {
	t.Helper()
	require.Eventually(t, func() bool { return !f.manager.Running(id) }, 5*time.Second, 5*time.Millisecond)
	doc, err := f.storage.Document(testCtx(), id)
	require.NoError(t, err)
	return doc
}

func (f *fixture) history(id string) []transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transition(nil), f.transitions[id]...)
}

func fastUploader() *SimulatedUploader {
	return &SimulatedUploader{Step: time.Millisecond}
}
