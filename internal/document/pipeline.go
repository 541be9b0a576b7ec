package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

// pipeline is one run of a document through the lifecycle. The mutex
// guards doc because upload progress arrives from transport goroutines.
type pipeline struct {
	m       *Manager
	log     *logger_i.Logger
	cancel  context.CancelFunc
	mu      sync.Mutex
	doc     commonModels.Document
	deleted bool
}

func (p *pipeline) run(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("document_pipeline", time.Since(start))
		p.finish()
	}()

	content := p.doc.Content

	if err := p.advance(ctx, commonModels.StatusUploadingToBackend, 0); err != nil {
		p.failWith(ctx, err)
		return
	}
	stage := time.Now()
	result, err := p.m.deps.Uploader.Upload(ctx, p.snapshot(), content, func(pct int) {
		_ = p.advance(ctx, commonModels.StatusUploadingToBackend, pct)
	})
	metrics.CaptureStageMetrics("upload", time.Since(stage))
	if err != nil {
		p.failWith(ctx, &commonModels.UploadError{Err: err})
		return
	}
	p.attachBackend(result)
	_ = p.advance(ctx, commonModels.StatusUploadingToBackend, 100)

	if err := p.advance(ctx, commonModels.StatusPendingAIProcessing, config.ProgressAfterUpload); err != nil {
		p.failWith(ctx, err)
		return
	}
	if err := p.advance(ctx, commonModels.StatusAIProcessing, config.ProgressAfterUpload); err != nil {
		p.failWith(ctx, err)
		return
	}

	stage = time.Now()
	text, err := p.m.deps.Extractor.ExtractText(ctx, content, p.doc.Type)
	metrics.CaptureStageMetrics("extraction", time.Since(stage))
	if err != nil {
		p.failWith(ctx, &commonModels.ProcessingError{Stage: "extraction", Err: err})
		return
	}
	_ = p.advance(ctx, commonModels.StatusAIProcessing, config.ProgressAfterExtraction)

	input := strings.TrimSpace(text)
	if input == "" {
		p.log.Info("no text extracted, summarizing file details")
		input = describe(p.snapshot())
	}
	stage = time.Now()
	summary, err := p.m.deps.Summarizer.Summarize(ctx, search.Truncate(input, config.MaxIndexedContentLength))
	metrics.CaptureStageMetrics("summarization", time.Since(stage))
	if err == nil && strings.TrimSpace(summary.Summary) == "" {
		err = errors.New("empty summary")
	}
	if err != nil {
		p.failWith(ctx, &commonModels.ProcessingError{Stage: "summarization", Err: err})
		return
	}
	_ = p.advance(ctx, commonModels.StatusAIProcessing, config.ProgressAfterSummary)

	doc, ok := p.complete(ctx, summary.Summary)
	if ok {
		p.m.scheduleIndexing(ctx, doc)
	}
}

func (p *pipeline) snapshot() commonModels.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

func (p *pipeline) attachBackend(result UploadResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Backend = &commonModels.BackendReference{ID: result.BackendID, FileURL: result.FileURL}
}

// advance moves the document forward and persists it. Writes stop once the
// run is cancelled or the document was deleted.
func (p *pipeline) advance(ctx context.Context, status commonModels.DocumentStatus, progress int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return context.Canceled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if status == p.doc.Status && progress <= p.doc.Progress {
		return nil
	}
	if err := p.doc.Advance(status, progress); err != nil {
		return err
	}
	if err := p.m.deps.Store.SaveDocument(ctx, p.doc); err != nil {
		p.log.Error("progress not saved", "status", status, "progress", progress, "error", err)
	}
	return nil
}

func (p *pipeline) complete(ctx context.Context, summary string) (commonModels.Document, bool) {
	if ctx.Err() != nil {
		p.fail(ctx, msgCancelled)
		return commonModels.Document{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return commonModels.Document{}, false
	}
	p.doc.Summary = summary
	if err := p.doc.Advance(commonModels.StatusCompleted, 100); err != nil {
		p.log.Error("cannot complete document", "error", err)
		return commonModels.Document{}, false
	}
	if !p.terminalWrite(ctx) {
		return commonModels.Document{}, false
	}
	metrics.CaptureTerminalStatus(string(commonModels.StatusCompleted))
	p.log.Info("document completed")
	return p.doc, true
}

// failWith records err unless the run was cancelled, which wins.
func (p *pipeline) failWith(ctx context.Context, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		p.fail(ctx, msgCancelled)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		p.fail(ctx, fmt.Sprintf("timed out: %v", err))
		return
	}
	p.fail(ctx, err.Error())
}

func (p *pipeline) fail(ctx context.Context, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		p.log.Debug("document deleted, dropping failure", "reason", message)
		return
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && message == msgCancelled {
		message = "timed out"
	}
	if err := p.doc.Fail(message); err != nil {
		p.log.Debug("document already terminal", "error", err)
		return
	}
	if p.terminalWrite(ctx) {
		metrics.CaptureTerminalStatus(string(commonModels.StatusFailed))
		p.log.Warn("document failed", "reason", message)
	}
}

// terminalWrite persists the final state unless the document disappeared
// from the store meanwhile. Caller holds p.mu.
func (p *pipeline) terminalWrite(ctx context.Context) bool {
	writeCtx := context.WithoutCancel(ctx)
	if _, err := p.m.deps.Store.Document(writeCtx, p.doc.Id); errors.Is(err, commonModels.ErrNotFound) {
		p.log.Debug("document deleted, skipping terminal write")
		return false
	}
	if err := p.m.deps.Store.SaveDocument(writeCtx, p.doc); err != nil {
		p.log.Error("terminal state not saved", "status", p.doc.Status, "error", err)
		return false
	}
	return true
}

func (p *pipeline) markDeleted() {
	p.mu.Lock()
	p.deleted = true
	p.mu.Unlock()
	p.cancel()
}

func (p *pipeline) finish() {
	p.cancel()
	p.m.mu.Lock()
	if p.m.running[p.doc.Id] == p {
		delete(p.m.running, p.doc.Id)
	}
	p.m.mu.Unlock()
}

// describe stands in for document text when nothing could be extracted.
func describe(doc commonModels.Document) string {
	return fmt.Sprintf("The file %q is a %s document of %d bytes uploaded on %s. No text could be extracted from it.",
		doc.Name, doc.Type, doc.Size, doc.UploadedAt.Format(time.RFC1123))
}
