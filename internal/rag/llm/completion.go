package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

var moreContextMarkers = []string{"more context", "do not contain", "does not contain", "not enough information"}

type completionProvider struct {
	completer Completer
	logger    *logger_i.Logger
}

// NewProvider builds the four operations on top of a plain completer.
func NewProvider(c Completer) Provider {
	return &completionProvider{
		completer: c,
		logger:    logger_i.NewLogger("LLM " + c.Name()),
	}
}

func (p *completionProvider) complete(ctx context.Context, label, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.LLMRequestTimeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_"+label, time.Since(start)) }()

	out, err := p.completer.Complete(ctx, system, prompt)
	if err != nil {
		p.logger.WithTrace(ctx).Error("completion failed", "operation", label, "error", err)
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (p *completionProvider) Summarize(ctx context.Context, content string) (SummaryResult, error) {
	out, err := p.complete(ctx, "summarize", systemPrompt(summarizeInstruction), content)
	if err != nil {
		return SummaryResult{}, err
	}
	return SummaryResult{Summary: out}, nil
}

func (p *completionProvider) Discuss(ctx context.Context, query string, docs []DocumentReference, history []chatModel.Message) (DiscussResult, error) {
	out, err := p.complete(ctx, "discuss", systemPrompt(discussInstruction), chatPrompt(query, history, docs))
	if err != nil {
		return DiscussResult{}, err
	}
	more := containsMarker(out)
	confidence := 0.8
	if more {
		confidence = 0.3
	}
	return DiscussResult{
		Response:              out,
		ReferencedDocumentIDs: referencedIDs(docs),
		Confidence:            confidence,
		RequestsMoreContext:   more,
	}, nil
}

func (p *completionProvider) ChatRespond(ctx context.Context, input string, history []chatModel.Message, docs []DocumentReference) (ChatResult, error) {
	out, err := p.complete(ctx, "chat", config.ModelContext, chatPrompt(input, history, docs))
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Response: out, ReferencedDocumentIDs: referencedIDs(docs)}, nil
}

func (p *completionProvider) TitleFor(ctx context.Context, firstMessage string) (TitleResult, error) {
	out, err := p.complete(ctx, "title", systemPrompt(titleInstruction), firstMessage)
	if err != nil {
		return TitleResult{}, err
	}
	title := cleanTitle(out)
	if title == "" {
		return TitleResult{}, ErrEmptyResponse
	}
	return TitleResult{Title: title}, nil
}

func containsMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range moreContextMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func referencedIDs(docs []DocumentReference) []string {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}
