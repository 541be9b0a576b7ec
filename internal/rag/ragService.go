package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/rag/llm"
	"github.com/akolanti/DocAssist/internal/rag/resolver"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

// Service is what handlers call. The private service holds the stores and
// the model client so they can be swapped for mocks in tests.
type Service interface {
	SendMessage(ctx context.Context, conversationID, text string, documentIDs []string) (Reply, error)
	DiscussDocument(ctx context.Context, conversationID, documentID, query string) (Reply, error)
}

// Reply carries both sides of one exchange.
type Reply struct {
	Conversation chatModel.Conversation     `json:"conversation"`
	UserMessage  chatModel.Message          `json:"user_message"`
	Answer       chatModel.Message          `json:"answer"`
	Documents    []resolver.DocumentContext `json:"documents,omitempty"`
}

type ConversationStore interface {
	Get(ctx context.Context, id string) (chatModel.Conversation, error)
	AddMessage(ctx context.Context, conversationID string, msg chatModel.Message) (chatModel.Message, error)
	Rename(ctx context.Context, id, title string) (chatModel.Conversation, error)
}

type ContextResolver interface {
	Resolve(ctx context.Context, conv chatModel.Conversation, query string) ([]resolver.DocumentContext, error)
}

type DocumentSource interface {
	Document(ctx context.Context, id string) (commonModels.Document, error)
}

type service struct {
	conversations ConversationStore
	resolver      ContextResolver
	documents     DocumentSource
	content       resolver.ContentSource
	llmProvider   llm.Provider
	logger        *logger_i.Logger
}

func NewService(conversations ConversationStore, res ContextResolver, documents DocumentSource, content resolver.ContentSource, provider llm.Provider) Service {
	return &service{
		conversations: conversations,
		resolver:      res,
		documents:     documents,
		content:       content,
		llmProvider:   provider,
		logger:        logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) SendMessage(ctx context.Context, conversationID, text string, documentIDs []string) (Reply, error) {
	log := s.logger.WithTrace(ctx).With("conversationId", conversationID)
	if strings.TrimSpace(text) == "" {
		return Reply{}, &commonModels.ValidationError{Field: "content", Message: "message is empty"}
	}

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return Reply{}, err
	}
	firstExchange := len(conv.Messages) == 0

	userMsg, err := s.conversations.AddMessage(ctx, conversationID, chatModel.Message{
		Role:        chatModel.RoleUser,
		Content:     text,
		DocumentIDs: documentIDs,
	})
	if err != nil {
		return Reply{}, err
	}
	conv.Messages = append(conv.Messages, userMsg)
	history := conv.Messages[:len(conv.Messages)-1]

	contexts, err := s.executeResolveStep(ctx, log, conv, text)
	if err != nil {
		return Reply{}, err
	}

	res, err := s.executeChatStep(ctx, log, text, history, budgetReferences(contexts))
	if err != nil {
		return Reply{}, err
	}

	answer, err := s.conversations.AddMessage(ctx, conversationID, chatModel.Message{
		Role:                  chatModel.RoleAssistant,
		Content:               res.Response,
		ReferencedDocumentIDs: res.ReferencedDocumentIDs,
	})
	if err != nil {
		return Reply{}, err
	}

	if firstExchange {
		s.titleConversation(ctx, log, conv, text)
	}

	conv, err = s.conversations.Get(ctx, conversationID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Conversation: conv, UserMessage: userMsg, Answer: answer, Documents: contexts}, nil
}

func (s *service) DiscussDocument(ctx context.Context, conversationID, documentID, query string) (Reply, error) {
	log := s.logger.WithTrace(ctx).With("conversationId", conversationID, "documentId", documentID)
	if strings.TrimSpace(query) == "" {
		return Reply{}, &commonModels.ValidationError{Field: "query", Message: "query is empty"}
	}

	doc, err := s.documents.Document(ctx, documentID)
	if err != nil {
		return Reply{}, err
	}
	if !doc.IsCompleted() {
		return Reply{}, &commonModels.ValidationError{Field: "document", Message: fmt.Sprintf("document is %s", doc.Status)}
	}

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return Reply{}, err
	}
	firstExchange := len(conv.Messages) == 0

	userMsg, err := s.conversations.AddMessage(ctx, conversationID, chatModel.Message{
		Role:                chatModel.RoleUser,
		Content:             query,
		DiscussedDocumentID: documentID,
	})
	if err != nil {
		return Reply{}, err
	}

	dc := s.documentContext(doc, query)
	res, err := s.executeDiscussStep(ctx, log, query, conv.Messages, budgetReferences([]resolver.DocumentContext{dc}))
	if err != nil {
		return Reply{}, err
	}

	answer, err := s.conversations.AddMessage(ctx, conversationID, chatModel.Message{
		Role:                  chatModel.RoleAssistant,
		Content:               res.Response,
		DiscussedDocumentID:   documentID,
		ReferencedDocumentIDs: res.ReferencedDocumentIDs,
	})
	if err != nil {
		return Reply{}, err
	}

	if firstExchange {
		s.titleConversation(ctx, log, conv, query)
	}

	conv, err = s.conversations.Get(ctx, conversationID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Conversation: conv, UserMessage: userMsg, Answer: answer, Documents: []resolver.DocumentContext{dc}}, nil
}

// titleConversation names a conversation after its first message unless the
// user already chose a title.
func (s *service) titleConversation(ctx context.Context, log *logger_i.Logger, conv chatModel.Conversation, firstMessage string) {
	if conv.Title != "" && conv.Title != chatModel.DefaultTitle {
		return
	}
	title, err := s.executeTitleStep(ctx, log, firstMessage)
	if err != nil || title == "" {
		return
	}
	if _, err := s.conversations.Rename(ctx, conv.Id, title); err != nil && !errors.Is(err, commonModels.ErrNotFound) {
		log.Warn("renaming conversation failed", "error", err)
	}
}
