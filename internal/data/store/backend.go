package store

import (
	"context"
	"fmt"

	"github.com/akolanti/DocAssist/internal/notify"
)

type Partition string

const (
	Conversations Partition = "conversations"
	Documents     Partition = "documents"
	Translations  Partition = "translations"
	Settings      Partition = "settings"
	// DocumentContent holds each document's raw file, apart from the
	// metadata that changes on every progress update.
	DocumentContent Partition = "document_content"
)

var AllPartitions = []Partition{Conversations, Documents, Translations, Settings, DocumentContent}

// keys inside the settings partition, also the flat key names
const (
	KeyActiveConversation = "activeConversationId"
	KeyDarkMode           = "darkMode"
	KeyLanguage           = "language"
)

var settingKeys = []string{KeyActiveConversation, KeyDarkMode, KeyLanguage}

// isCollection reports whether the flat backend keeps the partition in one
// key. The others get one key per id.
func (p Partition) isCollection() bool {
	return p != Settings && p != DocumentContent
}

type Kind string

const (
	KindIndexed Kind = "indexed"
	KindFlat    Kind = "flat"
)

// Backend is the persistence contract both storage implementations share.
// Get returns commonModels.ErrNotFound for a missing id.
type Backend interface {
	Kind() Kind
	Get(ctx context.Context, partition Partition, id string) ([]byte, error)
	GetAll(ctx context.Context, partition Partition) (map[string][]byte, error)
	Put(ctx context.Context, partition Partition, id string, value []byte) error
	Delete(ctx context.Context, partition Partition, id string) error
	Close() error
}

// FlatKeyTopic maps a flat storage key to the notification topic of the
// data it holds.
func FlatKeyTopic(key string) (notify.Topic, bool) {
	switch key {
	case string(Conversations):
		return notify.TopicConversations, true
	case string(Documents):
		return notify.TopicDocuments, true
	case string(Translations):
		return notify.TopicTranslations, true
	case KeyActiveConversation:
		return notify.TopicActiveConversation, true
	case KeyDarkMode, KeyLanguage:
		return notify.TopicSettings, true
	}
	return "", false
}

func topicFor(partition Partition, id string) notify.Topic {
	switch partition {
	case Conversations:
		return notify.TopicConversations
	case Documents:
		return notify.TopicDocuments
	case Translations:
		return notify.TopicTranslations
	}
	if id == KeyActiveConversation {
		return notify.TopicActiveConversation
	}
	return notify.TopicSettings
}

func validPartition(p Partition) error {
	for _, known := range AllPartitions {
		if p == known {
			return nil
		}
	}
	return fmt.Errorf("unknown partition %q", p)
}
