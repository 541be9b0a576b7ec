package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastPrompt string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.lastSystem = system
	f.lastPrompt = prompt
	return f.reply, f.err
}

var warrantyDoc = DocumentReference{
	ID:       "w1",
	Name:     "warranty.pdf",
	Summary:  "Two year warranty.",
	Sections: []string{"The warranty covers the motor for five years."},
}

func TestProvider_ChatRespondBuildsPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "  Five years.  "}
	p := NewProvider(fc)
	history := []chatModel.Message{{Role: chatModel.RoleUser, Content: "hello"}}

	res, err := p.ChatRespond(context.Background(), "how long is the warranty?", history, []DocumentReference{warrantyDoc})

	require.NoError(t, err)
	assert.Equal(t, "Five years.", res.Response)
	assert.Equal(t, []string{"w1"}, res.ReferencedDocumentIDs)
	assert.Contains(t, fc.lastPrompt, "warranty.pdf")
	assert.Contains(t, fc.lastPrompt, "five years")
	assert.Contains(t, fc.lastPrompt, "user: hello")
	assert.True(t, strings.HasSuffix(fc.lastPrompt, "User: how long is the warranty?"))
}

func TestProvider_Discuss(t *testing.T) {
	fc := &fakeCompleter{reply: "The documents do not contain that. More context is needed."}

	res, err := NewProvider(fc).Discuss(context.Background(), "price?", []DocumentReference{warrantyDoc}, nil)

	require.NoError(t, err)
	assert.True(t, res.RequestsMoreContext)
	assert.Less(t, res.Confidence, 0.5)
	assert.Equal(t, []string{"w1"}, res.ReferencedDocumentIDs)
}

func TestProvider_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvider(&fakeCompleter{reply: "   "}).Summarize(ctx, "text")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("quota exceeded")
	_, err = NewProvider(&fakeCompleter{err: boom}).Summarize(ctx, "text")
	assert.ErrorIs(t, err, boom)
}

func TestProvider_TitleIsCleaned(t *testing.T) {
	fc := &fakeCompleter{reply: "\"Warranty Questions\"\nextra line"}

	res, err := NewProvider(fc).TitleFor(context.Background(), "what does my warranty cover")

	require.NoError(t, err)
	assert.Equal(t, "Warranty Questions", res.Title)
}

func TestWithFallback(t *testing.T) {
	ctx := context.Background()
	p := WithFallback(NewProvider(&fakeCompleter{err: errors.New("rejected")}))

	chat, err := p.ChatRespond(ctx, "hi", nil, []DocumentReference{warrantyDoc})
	require.NoError(t, err)
	assert.Contains(t, chat.Response, unavailableMessage)
	assert.Contains(t, chat.Response, "five years")

	discuss, err := p.Discuss(ctx, "hi", nil, nil)
	require.NoError(t, err)
	assert.True(t, discuss.RequestsMoreContext)

	title, err := p.TitleFor(ctx, "   Can you   check the invoice from March for errors please ")
	require.NoError(t, err)
	assert.Equal(t, "Can you check the invoice from March for", title.Title)

	_, err = p.Summarize(ctx, "text")
	assert.Error(t, err)
}

func TestFallbackTitle_Empty(t *testing.T) {
	assert.Equal(t, chatModel.DefaultTitle, FallbackTitle("  "))
}

func TestOffline(t *testing.T) {
	p := NewOffline()

	res, err := p.Summarize(context.Background(), "\nFirst line\n\nSecond line\n")
	require.NoError(t, err)
	assert.Equal(t, "- First line\n- Second line", res.Summary)

	_, err = p.Summarize(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = p.ChatRespond(context.Background(), "hi", nil, nil)
	assert.Error(t, err)
}
