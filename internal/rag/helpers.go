package rag

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/internal/rag/llm"
	"github.com/akolanti/DocAssist/internal/rag/resolver"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/internal/rag/tokens"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

func (s *service) executeResolveStep(ctx context.Context, log *logger_i.Logger, conv chatModel.Conversation, query string) ([]resolver.DocumentContext, error) {
	log.Debug("resolving document context")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("context_resolve", time.Since(start)) }()

	return s.resolver.Resolve(ctx, conv, query)
}

func (s *service) executeChatStep(ctx context.Context, log *logger_i.Logger, input string, history []chatModel.Message, refs []llm.DocumentReference) (llm.ChatResult, error) {
	log.Debug("calling model", "documents", len(refs))

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.ChatRespond(ctx, input, history, refs)
}

func (s *service) executeDiscussStep(ctx context.Context, log *logger_i.Logger, query string, history []chatModel.Message, refs []llm.DocumentReference) (llm.DiscussResult, error) {
	log.Debug("discussing document")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_discuss", time.Since(start)) }()

	return s.llmProvider.Discuss(ctx, query, refs, history)
}

func (s *service) executeTitleStep(ctx context.Context, log *logger_i.Logger, firstMessage string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_title", time.Since(start)) }()

	res, err := s.llmProvider.TitleFor(ctx, firstMessage)
	if err != nil {
		log.Warn("title generation failed", "error", err)
		return "", err
	}
	return res.Title, nil
}

// documentContext builds the context for a document the user picked
// explicitly, so sections are always computed when there is enough text.
func (s *service) documentContext(doc commonModels.Document, query string) resolver.DocumentContext {
	content := doc.Summary
	if s.content != nil {
		if e, ok := s.content.Get(doc.Id); ok {
			content = e.Content
		}
	}
	dc := resolver.DocumentContext{Document: doc.Meta(), Content: content}
	if utf8.RuneCountInString(content) > config.MinContentForSections {
		dc.Sections = search.RelevantSections(query, content, config.DetailSectionCount)
	}
	return dc
}

// budgetReferences converts resolved documents into model input, spending
// at most MaxContextTokens across all of them in resolver order.
func budgetReferences(contexts []resolver.DocumentContext) []llm.DocumentReference {
	budget := tokens.NewBudget(config.MaxContextTokens)
	refs := make([]llm.DocumentReference, 0, len(contexts))
	for _, dc := range contexts {
		ref := llm.DocumentReference{
			ID:      dc.Document.Id,
			Name:    dc.Document.Name,
			Summary: budget.Take(dc.Document.Summary),
		}
		if len(dc.Sections) > 0 {
			for _, sec := range dc.Sections {
				if text := budget.Take(sec.Text); text != "" {
					ref.Sections = append(ref.Sections, text)
				}
			}
		} else {
			ref.Content = budget.Take(dc.Content)
		}
		refs = append(refs, ref)
	}
	return refs
}
