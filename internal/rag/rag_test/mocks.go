package rag_test

import (
	"context"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/rag/llm"
)

// MockLLM implements llm.Provider
type MockLLM struct {
	OnSummarize   func(ctx context.Context, content string) (llm.SummaryResult, error)
	OnDiscuss     func(ctx context.Context, query string, docs []llm.DocumentReference, history []chatModel.Message) (llm.DiscussResult, error)
	OnChatRespond func(ctx context.Context, input string, history []chatModel.Message, docs []llm.DocumentReference) (llm.ChatResult, error)
	OnTitleFor    func(ctx context.Context, firstMessage string) (llm.TitleResult, error)
}

func (m *MockLLM) Summarize(ctx context.Context, content string) (llm.SummaryResult, error) {
	if m.OnSummarize != nil {
		return m.OnSummarize(ctx, content)
	}
	return llm.SummaryResult{Summary: "mocked summary"}, nil
}

func (m *MockLLM) Discuss(ctx context.Context, q string, docs []llm.DocumentReference, h []chatModel.Message) (llm.DiscussResult, error) {
	if m.OnDiscuss != nil {
		return m.OnDiscuss(ctx, q, docs, h)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return llm.DiscussResult{Response: "mocked discussion", ReferencedDocumentIDs: ids, Confidence: 0.8}, nil
}

func (m *MockLLM) ChatRespond(ctx context.Context, in string, h []chatModel.Message, docs []llm.DocumentReference) (llm.ChatResult, error) {
	if m.OnChatRespond != nil {
		return m.OnChatRespond(ctx, in, h, docs)
	}
	return llm.ChatResult{Response: "mocked llm response"}, nil
}

func (m *MockLLM) TitleFor(ctx context.Context, first string) (llm.TitleResult, error) {
	if m.OnTitleFor != nil {
		return m.OnTitleFor(ctx, first)
	}
	return llm.TitleResult{Title: "Mocked title"}, nil
}
