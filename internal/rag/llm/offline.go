package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
)

const (
	offlineSummaryLines = 5
	offlineLineRunes    = 200
)

var errNoModel = errors.New("no language model configured")

type offlineProvider struct{}

// NewOffline returns a provider that needs no model: summaries are the
// first lines of the text and chat requests fail, so callers fall back.
func NewOffline() Provider {
	return offlineProvider{}
}

func (offlineProvider) Summarize(_ context.Context, content string) (SummaryResult, error) {
	var lines []string
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, "- "+truncateRunes(l, offlineLineRunes))
		if len(lines) == offlineSummaryLines {
			break
		}
	}
	if len(lines) == 0 {
		return SummaryResult{}, ErrEmptyResponse
	}
	return SummaryResult{Summary: strings.Join(lines, "\n")}, nil
}

func (offlineProvider) Discuss(context.Context, string, []DocumentReference, []chatModel.Message) (DiscussResult, error) {
	return DiscussResult{}, errNoModel
}

func (offlineProvider) ChatRespond(context.Context, string, []chatModel.Message, []DocumentReference) (ChatResult, error) {
	return ChatResult{}, errNoModel
}

func (offlineProvider) TitleFor(context.Context, string) (TitleResult, error) {
	return TitleResult{}, errNoModel
}
