package llm

import (
	"context"
	"strings"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

const (
	unavailableMessage = "The assistant is unavailable right now. Please try again in a moment."
	fallbackTitleRunes = 40
)

type fallbackProvider struct {
	Provider
	logger *logger_i.Logger
}

// WithFallback turns failures of the user facing operations into degraded
// text. Summarize errors still reach the caller, which records them on the
// document.
func WithFallback(p Provider) Provider {
	return &fallbackProvider{Provider: p, logger: logger_i.NewLogger("LLM Fallback")}
}

func (f *fallbackProvider) Discuss(ctx context.Context, query string, docs []DocumentReference, history []chatModel.Message) (DiscussResult, error) {
	res, err := f.Provider.Discuss(ctx, query, docs, history)
	if err == nil {
		return res, nil
	}
	f.degraded(ctx, "discuss", err)
	return DiscussResult{
		Response:              degradedAnswer(docs),
		ReferencedDocumentIDs: referencedIDs(docs),
		RequestsMoreContext:   true,
	}, nil
}

func (f *fallbackProvider) ChatRespond(ctx context.Context, input string, history []chatModel.Message, docs []DocumentReference) (ChatResult, error) {
	res, err := f.Provider.ChatRespond(ctx, input, history, docs)
	if err == nil {
		return res, nil
	}
	f.degraded(ctx, "chat", err)
	return ChatResult{Response: degradedAnswer(docs), ReferencedDocumentIDs: referencedIDs(docs)}, nil
}

func (f *fallbackProvider) TitleFor(ctx context.Context, firstMessage string) (TitleResult, error) {
	res, err := f.Provider.TitleFor(ctx, firstMessage)
	if err == nil {
		return res, nil
	}
	f.degraded(ctx, "title", err)
	return TitleResult{Title: FallbackTitle(firstMessage)}, nil
}

func (f *fallbackProvider) degraded(ctx context.Context, op string, err error) {
	metrics.CaptureLLMFallback(op)
	f.logger.WithTrace(ctx).Warn("using fallback response", "operation", op, "error", err)
}

// FallbackTitle derives a title from the first message without a model.
func FallbackTitle(firstMessage string) string {
	t := strings.Join(strings.Fields(firstMessage), " ")
	if t == "" {
		return chatModel.DefaultTitle
	}
	return truncateRunes(t, fallbackTitleRunes)
}

func degradedAnswer(docs []DocumentReference) string {
	var b strings.Builder
	b.WriteString(unavailableMessage)
	for _, d := range docs {
		excerpt := d.Summary
		if len(d.Sections) > 0 {
			excerpt = d.Sections[0]
		}
		if excerpt == "" {
			continue
		}
		b.WriteString("\n\nFrom ")
		b.WriteString(d.Name)
		b.WriteString(":\n")
		b.WriteString(excerpt)
	}
	return b.String()
}
