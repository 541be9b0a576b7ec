package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte, docType commonModels.DocType) (string, error)
}

// Entry is the indexed form of one completed document.
type Entry struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	IndexedAt  time.Time `json:"indexed_at"`
}

type Result struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Score      float64   `json:"score"`
	Sections   []Section `json:"sections"`
}

// Index keeps extracted text of completed documents in memory. It is
// rebuilt from storage at startup, so losing it only costs re-extraction.
type Index struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	extractor TextExtractor
	logger    *logger_i.Logger
	now       func() time.Time
}

func NewIndex(extractor TextExtractor) *Index {
	return &Index{
		entries:   make(map[string]Entry),
		extractor: extractor,
		logger:    logger_i.NewLogger("Search Index"),
		now:       time.Now,
	}
}

// Add indexes doc, replacing any previous entry. Only completed documents
// are accepted.
func (x *Index) Add(ctx context.Context, doc commonModels.Document) error {
	if !doc.IsCompleted() {
		return &commonModels.IndexingError{DocumentID: doc.Id, Err: errors.New("document is not completed")}
	}

	text := ""
	if len(doc.Content) > 0 {
		extracted, err := x.extractor.ExtractText(ctx, doc.Content, doc.Type)
		if err != nil {
			return &commonModels.IndexingError{DocumentID: doc.Id, Err: err}
		}
		text = extracted
	}
	if strings.TrimSpace(text) == "" {
		text = doc.Summary
	}
	if strings.TrimSpace(text) == "" {
		return &commonModels.IndexingError{DocumentID: doc.Id, Err: errors.New("no text to index")}
	}

	entry := Entry{
		DocumentID: doc.Id,
		Name:       doc.Name,
		Content:    Truncate(text, config.MaxIndexedContentLength),
		IndexedAt:  x.now(),
	}

	x.mu.Lock()
	x.entries[doc.Id] = entry
	n := len(x.entries)
	x.mu.Unlock()

	metrics.SetIndexEntries(n)
	x.logger.WithTrace(ctx).Debug("document indexed", "documentId", doc.Id, "length", len(entry.Content))
	return nil
}

func (x *Index) Remove(id string) {
	x.mu.Lock()
	delete(x.entries, id)
	n := len(x.entries)
	x.mu.Unlock()
	metrics.SetIndexEntries(n)
}

func (x *Index) Get(id string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[id]
	return e, ok
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// DocumentSource lists documents as metadata and loads one with its raw
// content.
type DocumentSource interface {
	Documents(ctx context.Context) ([]commonModels.Document, error)
	Document(ctx context.Context, id string) (commonModels.Document, error)
}

// Rebuild replaces the index with the completed documents of src and
// returns how many were indexed. Indexing failures are logged and skipped.
func (x *Index) Rebuild(ctx context.Context, src DocumentSource) (int, error) {
	docs, err := src.Documents(ctx)
	if err != nil {
		return 0, err
	}

	x.mu.Lock()
	x.entries = make(map[string]Entry)
	x.mu.Unlock()

	indexed := 0
	for _, doc := range docs {
		if !doc.IsCompleted() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if err := x.addFrom(ctx, src, doc.Id); err != nil {
			x.logger.WithTrace(ctx).Warn("skipping document", "error", err)
			continue
		}
		indexed++
	}
	metrics.SetIndexEntries(x.Len())
	return indexed, nil
}

func (x *Index) addFrom(ctx context.Context, src DocumentSource, id string) error {
	doc, err := src.Document(ctx, id)
	if err != nil {
		return &commonModels.IndexingError{DocumentID: id, Err: err}
	}
	return x.Add(ctx, doc)
}

func (x *Index) Search(query string, limit int) []Result {
	if limit <= 0 {
		limit = config.MaxContextDocuments
	}

	x.mu.RLock()
	entries := make([]Entry, 0, len(x.entries))
	for _, e := range x.entries {
		entries = append(entries, e)
	}
	x.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DocumentID < entries[j].DocumentID
	})

	var results []Result
	for _, e := range entries {
		sections := RelevantSections(query, e.Content, config.DefaultSectionCount)
		if len(sections) == 0 {
			continue
		}
		score := 0.0
		for _, s := range sections {
			score += s.Score
		}
		results = append(results, Result{DocumentID: e.DocumentID, Name: e.Name, Score: score, Sections: sections})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Follow keeps the index in step with the documents partition. Events are
// only a hint: the document list is re-read on every burst and content is
// loaded only for documents not indexed yet.
func (x *Index) Follow(bus *notify.Bus, src DocumentSource) func() {
	return notify.Watch(bus, notify.TopicDocuments, func(ctx context.Context) error {
		docs, err := src.Documents(ctx)
		if err != nil {
			return err
		}
		x.reconcile(ctx, src, docs)
		return nil
	})
}

func (x *Index) reconcile(ctx context.Context, src DocumentSource, docs []commonModels.Document) {
	live := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if !doc.IsCompleted() {
			continue
		}
		live[doc.Id] = struct{}{}
		if _, ok := x.Get(doc.Id); ok {
			continue
		}
		if err := x.addFrom(ctx, src, doc.Id); err != nil {
			x.logger.WithTrace(ctx).Warn("indexing on change failed", "error", err)
		}
	}

	x.mu.RLock()
	var stale []string
	for id := range x.entries {
		if _, ok := live[id]; !ok {
			stale = append(stale, id)
		}
	}
	x.mu.RUnlock()
	for _, id := range stale {
		x.Remove(id)
	}
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
