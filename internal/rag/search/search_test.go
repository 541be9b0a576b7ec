package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainExtractor struct {
	err error
}

func (p plainExtractor) ExtractText(_ context.Context, content []byte, _ commonModels.DocType) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return string(content), nil
}

func completedDoc(id, name, text string) commonModels.Document {
	return commonModels.Document{
		Id:       id,
		Name:     name,
		Type:     commonModels.TEXT,
		Status:   commonModels.StatusCompleted,
		Progress: 100,
		Content:  []byte(text),
	}
}

// docSource serves metadata from Documents and content only from Document.
type docSource struct {
	docs   []commonModels.Document
	loaded []string
}

func (d *docSource) Documents(context.Context) ([]commonModels.Document, error) {
	out := make([]commonModels.Document, len(d.docs))
	for i, doc := range d.docs {
		out[i] = doc.Meta()
	}
	return out, nil
}

func (d *docSource) Document(_ context.Context, id string) (commonModels.Document, error) {
	for _, doc := range d.docs {
		if doc.Id == id {
			d.loaded = append(d.loaded, id)
			return doc, nil
		}
	}
	return commonModels.Document{}, commonModels.ErrNotFound
}

func TestRelevantSections_MonotonicInTermFrequency(t *testing.T) {
	base := "The contract covers shipping terms for all regions."
	for n := 1; n <= 5; n++ {
		fewer := base + strings.Repeat(" warranty", n-1)
		more := base + strings.Repeat(" warranty", n)

		a := RelevantSections("warranty", more, 3)
		b := RelevantSections("warranty", fewer, 3)

		require.Len(t, a, 1)
		scoreFewer := 0.0
		if len(b) == 1 {
			scoreFewer = b[0].Score
		}
		assert.GreaterOrEqual(t, a[0].Score, scoreFewer, "n=%d", n)
	}
}

func TestRelevantSections_HeadingBoost(t *testing.T) {
	text := "Warranty Terms\n\nThe warranty lasts two years from delivery.\n\n" +
		"lowercase heading\n\nThe warranty is void after misuse of the unit."

	sections := RelevantSections("warranty", text, 5)

	require.Len(t, sections, 2)
	assert.Equal(t, "Warranty Terms", sections[0].Heading)
	assert.InDelta(t, config.HeadingScoreBoost, sections[0].Score, 0.0001)
	assert.Empty(t, sections[1].Heading)
	assert.InDelta(t, 1.0, sections[1].Score, 0.0001)
}

func TestRelevantSections_StableTies(t *testing.T) {
	text := "first paragraph mentions invoice once.\n\n" +
		"second paragraph mentions invoice once.\n\n" +
		"third paragraph mentions invoice once."

	sections := RelevantSections("invoice", text, 3)

	require.Len(t, sections, 3)
	assert.True(t, strings.HasPrefix(sections[0].Text, "first"))
	assert.True(t, strings.HasPrefix(sections[1].Text, "second"))
	assert.True(t, strings.HasPrefix(sections[2].Text, "third"))
}

func TestRelevantSections_Filters(t *testing.T) {
	text := "invoice short\n\nThis long paragraph talks about the invoice total."

	t.Run("short paragraphs dropped", func(t *testing.T) {
		sections := RelevantSections("invoice", text, 3)
		require.Len(t, sections, 1)
		assert.Contains(t, sections[0].Text, "long paragraph")
	})

	t.Run("short query tokens ignored", func(t *testing.T) {
		assert.Empty(t, RelevantSections("an of to", text, 3))
	})

	t.Run("limit applied", func(t *testing.T) {
		many := strings.Repeat("A paragraph about the invoice total.\n\n", 10)
		assert.Len(t, RelevantSections("invoice", many, 0), config.DefaultSectionCount)
	})
}

func TestIndex_AddSearchRemove(t *testing.T) {
	idx := NewIndex(plainExtractor{})
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, completedDoc("d1", "warranty.pdf", "The warranty covers parts and labour for two years.")))
	require.NoError(t, idx.Add(ctx, completedDoc("d2", "budget.xlsx", "Quarterly budget numbers for the marketing team.")))
	assert.Equal(t, 2, idx.Len())

	results := idx.Search("warranty labour", 5)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DocumentID)

	idx.Remove("d1")
	_, ok := idx.Get("d1")
	assert.False(t, ok)
	assert.Empty(t, idx.Search("warranty", 5))
}

func TestIndex_AddErrors(t *testing.T) {
	ctx := context.Background()

	pending := completedDoc("p", "p.txt", "text")
	pending.Status = commonModels.StatusAIProcessing
	err := NewIndex(plainExtractor{}).Add(ctx, pending)
	assert.ErrorIs(t, err, commonModels.ErrIndexing)

	err = NewIndex(plainExtractor{err: errors.New("corrupt")}).Add(ctx, completedDoc("c", "c.pdf", "x"))
	assert.ErrorIs(t, err, commonModels.ErrIndexing)

	withSummary := completedDoc("s", "s.txt", "")
	withSummary.Summary = "Only a summary is available."
	idx := NewIndex(plainExtractor{})
	require.NoError(t, idx.Add(ctx, withSummary))
	e, _ := idx.Get("s")
	assert.Equal(t, withSummary.Summary, e.Content)
}

func TestIndex_TruncatesContent(t *testing.T) {
	idx := NewIndex(plainExtractor{})
	long := strings.Repeat("é", config.MaxIndexedContentLength+500)

	require.NoError(t, idx.Add(context.Background(), completedDoc("big", "big.txt", long)))

	e, ok := idx.Get("big")
	require.True(t, ok)
	assert.Equal(t, config.MaxIndexedContentLength, len([]rune(e.Content)))
}

func TestIndex_RebuildSkipsIncomplete(t *testing.T) {
	idx := NewIndex(plainExtractor{})
	failed := completedDoc("f", "f.txt", "text that failed")
	failed.Status = commonModels.StatusFailed

	src := &docSource{docs: []commonModels.Document{
		completedDoc("a", "a.txt", "alpha text"),
		failed,
		completedDoc("b", "b.txt", "beta text"),
	}}
	n, err := idx.Rebuild(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, idx.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, src.loaded)

	e, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha text", e.Content)
}

func TestIndex_FollowReconciles(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	idx := NewIndex(plainExtractor{})
	require.NoError(t, idx.Add(context.Background(), completedDoc("gone", "gone.txt", "deleted elsewhere")))

	src := &docSource{docs: []commonModels.Document{completedDoc("new", "new.txt", "arrived from another process")}}
	stop := idx.Follow(bus, src)
	defer stop()

	bus.Publish(context.Background(), notify.Event{Topic: notify.TopicDocuments, Key: "new"})

	assert.Eventually(t, func() bool {
		_, hasNew := idx.Get("new")
		_, hasGone := idx.Get("gone")
		return hasNew && !hasGone
	}, time.Second, 10*time.Millisecond)
}
