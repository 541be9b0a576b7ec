package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/data/store"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/google/uuid"
)

// Store is conversation CRUD over the shared storage. Mutations inside one
// process are serialized; across processes the last writer wins.
type Store struct {
	storage *store.Storage
	logger  *logger_i.Logger
	mu      sync.Mutex
	now     func() time.Time
}

func NewStore(storage *store.Storage) *Store {
	return &Store{
		storage: storage,
		logger:  logger_i.NewLogger("Conversation Store"),
		now:     time.Now,
	}
}

// Create stores an empty conversation and makes it the active one.
func (s *Store) Create(ctx context.Context, title string) (chatModel.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = chatModel.DefaultTitle
	}
	now := s.now()
	conv := chatModel.Conversation{
		Id:        uuid.NewString(),
		Title:     title,
		Messages:  []chatModel.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.SaveConversation(ctx, conv); err != nil {
		return conv, err
	}
	if err := s.storage.SetActiveConversationID(ctx, conv.Id); err != nil {
		return conv, err
	}
	s.logger.WithTrace(ctx).Debug("conversation created", "conversationId", conv.Id)
	return conv, nil
}

// List returns every conversation, most recently updated first.
func (s *Store) List(ctx context.Context) ([]chatModel.Conversation, error) {
	return s.storage.Conversations(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (chatModel.Conversation, error) {
	conv, err := s.storage.Conversation(ctx, id)
	if errors.Is(err, commonModels.ErrNotFound) {
		return conv, fmt.Errorf("conversation %s: %w", id, commonModels.ErrNotFound)
	}
	return conv, err
}

func (s *Store) Rename(ctx context.Context, id, title string) (chatModel.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return chatModel.Conversation{}, &commonModels.ValidationError{Field: "title", Message: "must not be empty"}
	}
	return s.mutate(ctx, id, func(conv *chatModel.Conversation) error {
		conv.Title = title
		return nil
	})
}

// AddMessage appends msg, filling in its id and timestamp when missing.
func (s *Store) AddMessage(ctx context.Context, conversationID string, msg chatModel.Message) (chatModel.Message, error) {
	if msg.Role != chatModel.RoleUser && msg.Role != chatModel.RoleAssistant {
		return msg, &commonModels.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", msg.Role)}
	}
	if msg.Id == "" {
		msg.Id = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	_, err := s.mutate(ctx, conversationID, func(conv *chatModel.Conversation) error {
		conv.Messages = append(conv.Messages, msg)
		return nil
	})
	return msg, err
}

// UpdateMessage applies edit to one message in place. Ids and roles are kept.
func (s *Store) UpdateMessage(ctx context.Context, conversationID, messageID string, edit func(*chatModel.Message)) (chatModel.Message, error) {
	var updated chatModel.Message
	_, err := s.mutate(ctx, conversationID, func(conv *chatModel.Conversation) error {
		for i := range conv.Messages {
			if conv.Messages[i].Id != messageID {
				continue
			}
			id, role := conv.Messages[i].Id, conv.Messages[i].Role
			edit(&conv.Messages[i])
			conv.Messages[i].Id, conv.Messages[i].Role = id, role
			updated = conv.Messages[i]
			return nil
		}
		return fmt.Errorf("message %s: %w", messageID, commonModels.ErrNotFound)
	})
	return updated, err
}

// Delete removes the conversation and clears the active pointer when it
// pointed at it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.storage.DeleteConversation(ctx, id); err != nil {
		return err
	}

	active, err := s.storage.ActiveConversationID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		if err := s.storage.SetActiveConversationID(ctx, ""); err != nil {
			return err
		}
	}
	s.logger.WithTrace(ctx).Debug("conversation deleted", "conversationId", id, "wasActive", active == id)
	return nil
}

// SetActive points at an existing conversation, or clears the pointer for "".
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return s.storage.SetActiveConversationID(ctx, id)
}

// Active returns the active conversation, ErrNotFound when none is set or
// the pointer is stale.
func (s *Store) Active(ctx context.Context) (chatModel.Conversation, error) {
	id, err := s.storage.ActiveConversationID(ctx)
	if err != nil {
		return chatModel.Conversation{}, err
	}
	if id == "" {
		return chatModel.Conversation{}, fmt.Errorf("active conversation: %w", commonModels.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *Store) mutate(ctx context.Context, id string, change func(*chatModel.Conversation) error) (chatModel.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.Get(ctx, id)
	if err != nil {
		return conv, err
	}
	if err := change(&conv); err != nil {
		return conv, err
	}
	now := s.now()
	if !now.After(conv.UpdatedAt) {
		now = conv.UpdatedAt.Add(time.Nanosecond)
	}
	conv.UpdatedAt = now
	if err := s.storage.SaveConversation(ctx, conv); err != nil {
		return conv, err
	}
	return conv, nil
}
