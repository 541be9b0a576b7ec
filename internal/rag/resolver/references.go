package resolver

import (
	"path/filepath"
	"strings"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

var documentSeekingPhrases = []string{
	"document", "file", "pdf", "report", "spreadsheet",
	"excel", "attachment", "uploaded", "summary", "content",
}

var detailPhrases = []string{
	"detail", "specific", "exactly", "explain", "elaborate", "section", "clause", "quote",
}

// minStemLength keeps names like "a.pdf" from matching every query.
const minStemLength = 3

// ExtractDocumentReferences picks the documents a query is about. It looks
// for names mentioned in the query, then at recent messages, and only when
// both find nothing and the query asks about documents, at every completed
// attachment of the conversation. At most max ids are returned.
func ExtractDocumentReferences(conv chatModel.Conversation, docs map[string]commonModels.Document, query string, max int) []string {
	if max <= 0 {
		max = config.MaxContextDocuments
	}
	lowerQuery := strings.ToLower(query)
	refs := newOrderedSet()

	for _, msg := range conv.Messages {
		for _, id := range msg.DocumentIDs {
			doc, ok := docs[id]
			if ok && doc.IsCompleted() && mentions(lowerQuery, doc.Name) {
				refs.add(id)
			}
		}
	}

	start := len(conv.Messages) - config.RecentMessageWindow
	if start < 0 {
		start = 0
	}
	for i := len(conv.Messages) - 1; i >= start; i-- {
		msg := conv.Messages[i]
		if _, ok := docs[msg.DiscussedDocumentID]; ok {
			refs.add(msg.DiscussedDocumentID)
		}
		for _, id := range msg.ReferencedDocumentIDs {
			if _, ok := docs[id]; ok {
				refs.add(id)
			}
		}
		for _, id := range msg.DocumentIDs {
			if doc, ok := docs[id]; ok && doc.IsCompleted() {
				refs.add(id)
			}
		}
	}

	if refs.len() == 0 && containsAny(lowerQuery, documentSeekingPhrases) {
		for _, msg := range conv.Messages {
			for _, id := range msg.DocumentIDs {
				if doc, ok := docs[id]; ok && doc.IsCompleted() {
					refs.add(id)
				}
			}
		}
	}

	return refs.first(max)
}

// IsDetailQuery reports whether the query asks for focused passages.
func IsDetailQuery(query string) bool {
	return containsAny(strings.ToLower(query), detailPhrases)
}

func mentions(lowerQuery, name string) bool {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if lowerName == "" {
		return false
	}
	if strings.Contains(lowerQuery, lowerName) {
		return true
	}
	stem := strings.TrimSuffix(lowerName, filepath.Ext(lowerName))
	return len(stem) >= minStemLength && strings.Contains(lowerQuery, stem)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (o *orderedSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := o.seen[id]; ok {
		return
	}
	o.seen[id] = struct{}{}
	o.items = append(o.items, id)
}

func (o *orderedSet) len() int { return len(o.items) }

func (o *orderedSet) first(n int) []string {
	if len(o.items) > n {
		return o.items[:n]
	}
	return o.items
}
