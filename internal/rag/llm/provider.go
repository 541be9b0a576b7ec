package llm

import (
	"context"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
)

// DocumentReference is the slice of a document handed to the model.
type DocumentReference struct {
	ID       string
	Name     string
	Summary  string
	Content  string
	Sections []string
}

type SummaryResult struct {
	Summary string
}

type DiscussResult struct {
	Response              string
	ReferencedDocumentIDs []string
	Confidence            float64
	RequestsMoreContext   bool
}

type ChatResult struct {
	Response              string
	ReferencedDocumentIDs []string
}

type TitleResult struct {
	Title string
}

// Provider is the AI completion service. Every call may fail; callers that
// show text to the user wrap it with WithFallback.
type Provider interface {
	Summarize(ctx context.Context, content string) (SummaryResult, error)
	Discuss(ctx context.Context, query string, docs []DocumentReference, history []chatModel.Message) (DiscussResult, error)
	ChatRespond(ctx context.Context, input string, history []chatModel.Message, docs []DocumentReference) (ChatResult, error)
	TitleFor(ctx context.Context, firstMessage string) (TitleResult, error)
}

// Completer is a single system+user prompt round trip against a model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}
