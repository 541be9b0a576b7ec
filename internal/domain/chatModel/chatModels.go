package chatModel

import (
	"sort"
	"time"
)

// DefaultTitle names a conversation until its first exchange is titled.
const DefaultTitle = "New conversation"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message references documents by canonical id; the documents themselves
// live once in the documents partition.
type Message struct {
	Id                    string    `json:"id"`
	Role                  Role      `json:"role"`
	Content               string    `json:"content"`
	CreatedAt             time.Time `json:"created_at"`
	DocumentIDs           []string  `json:"document_ids,omitempty"`
	DiscussedDocumentID   string    `json:"discussed_document_id,omitempty"`
	ReferencedDocumentIDs []string  `json:"referenced_document_ids,omitempty"`
}

type Conversation struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortByUpdated orders conversations most recently updated first.
func SortByUpdated(conversations []Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		if conversations[i].UpdatedAt.Equal(conversations[j].UpdatedAt) {
			return conversations[i].Id < conversations[j].Id
		}
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
}

type TranslationType string

const (
	TranslationText     TranslationType = "text"
	TranslationDocument TranslationType = "document"
)

type TranslationJob struct {
	Id             string          `json:"id"`
	SourceLanguage string          `json:"source_language"`
	TargetLanguage string          `json:"target_language"`
	Type           TranslationType `json:"type"`
	Source         string          `json:"source"`
	Result         string          `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Settings struct {
	DarkMode bool   `json:"dark_mode"`
	Language string `json:"language"`
}
