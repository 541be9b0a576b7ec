package resolver

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

type DocumentSource interface {
	Document(ctx context.Context, id string) (commonModels.Document, error)
}

type ContentSource interface {
	Get(id string) (search.Entry, bool)
}

// DocumentContext is what the chat layer hands to the model for one document.
type DocumentContext struct {
	Document commonModels.Document `json:"document"`
	Content  string                `json:"content"`
	Sections []search.Section      `json:"sections,omitempty"`
}

type Resolver struct {
	docs    DocumentSource
	content ContentSource
	logger  *logger_i.Logger
}

func New(docs DocumentSource, content ContentSource) *Resolver {
	return &Resolver{
		docs:    docs,
		content: content,
		logger:  logger_i.NewLogger("Context Resolver"),
	}
}

// Resolve loads the documents referenced by conv and returns the ones the
// query is about, with their most relevant passages when worth computing.
func (r *Resolver) Resolve(ctx context.Context, conv chatModel.Conversation, query string) ([]DocumentContext, error) {
	docs, err := r.load(ctx, conv)
	if err != nil {
		return nil, err
	}

	ids := ExtractDocumentReferences(conv, docs, query, config.MaxContextDocuments)
	sectionCount := config.DefaultSectionCount
	if IsDetailQuery(query) {
		sectionCount = config.DetailSectionCount
	}

	contexts := make([]DocumentContext, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		dc := DocumentContext{Document: doc.Meta(), Content: r.contentFor(doc)}
		if utf8.RuneCountInString(query) >= config.MinQueryLengthForSection &&
			utf8.RuneCountInString(dc.Content) > config.MinContentForSections {
			dc.Sections = search.RelevantSections(query, dc.Content, sectionCount)
		}
		contexts = append(contexts, dc)
	}

	r.logger.WithTrace(ctx).Debug("resolved document context", "conversationId", conv.Id, "documents", len(contexts))
	return contexts, nil
}

func (r *Resolver) load(ctx context.Context, conv chatModel.Conversation) (map[string]commonModels.Document, error) {
	docs := make(map[string]commonModels.Document)
	fetch := func(id string) error {
		if id == "" {
			return nil
		}
		if _, ok := docs[id]; ok {
			return nil
		}
		doc, err := r.docs.Document(ctx, id)
		if errors.Is(err, commonModels.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		docs[id] = doc
		return nil
	}

	for _, msg := range conv.Messages {
		ids := append([]string{msg.DiscussedDocumentID}, msg.DocumentIDs...)
		ids = append(ids, msg.ReferencedDocumentIDs...)
		for _, id := range ids {
			if err := fetch(id); err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

// contentFor prefers indexed text and falls back to the summary for
// documents the index has not picked up yet.
func (r *Resolver) contentFor(doc commonModels.Document) string {
	if r.content != nil {
		if e, ok := r.content.Get(doc.Id); ok {
			return e.Content
		}
	}
	return search.Truncate(doc.Summary, config.MaxIndexedContentLength)
}
