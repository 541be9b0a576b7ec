package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxExcerpt = 2000

var errQueryRequired = errors.New("query is required")

type SearchInput struct {
	Query string `json:"query" jsonschema:"words to look for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of documents"`
}

type Section struct {
	Heading string  `json:"heading,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

type SearchHit struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Score      float64   `json:"score"`
	Sections   []Section `json:"sections"`
}

type SearchOutput struct {
	Results []SearchHit `json:"results"`
}

type ResolveInput struct {
	Query          string `json:"query" jsonschema:"the user's message"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to resolve against"`
}

type ContextDocument struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Summary    string    `json:"summary,omitempty"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Sections   []Section `json:"sections,omitempty"`
}

type ResolveOutput struct {
	ConversationID string            `json:"conversation_id,omitempty"`
	Documents      []ContextDocument `json:"documents"`
}

type ListInput struct{}

type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ListOutput struct {
	Documents []DocumentSummary `json:"documents"`
}

func (s *Server) searchDocumentsTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, errQueryRequired
	}
	out := SearchOutput{Results: []SearchHit{}}
	for _, r := range s.deps.Index.Search(query, input.Limit) {
		out.Results = append(out.Results, SearchHit{
			DocumentID: r.DocumentID,
			Name:       r.Name,
			Score:      r.Score,
			Sections:   toSections(r.Sections),
		})
	}
	s.logger.WithTrace(ctx).Debug("search tool", "query", query, "results", len(out.Results))
	return nil, out, nil
}

// resolveContextTool uses the active conversation when no id is given. With
// none active there is nothing to resolve against and the result is empty.
func (s *Server) resolveContextTool(ctx context.Context, _ *mcp.CallToolRequest, input ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ResolveOutput{}, errQueryRequired
	}

	conv, err := s.conversation(ctx, input.ConversationID)
	if err != nil {
		return nil, ResolveOutput{}, err
	}

	docs, err := s.deps.Resolver.Resolve(ctx, conv, query)
	if err != nil {
		return nil, ResolveOutput{}, err
	}
	out := ResolveOutput{ConversationID: conv.Id, Documents: []ContextDocument{}}
	for _, d := range docs {
		out.Documents = append(out.Documents, ContextDocument{
			DocumentID: d.Document.Id,
			Name:       d.Document.Name,
			Summary:    d.Document.Summary,
			Excerpt:    search.Truncate(d.Content, maxExcerpt),
			Sections:   toSections(d.Sections),
		})
	}
	return nil, out, nil
}

func (s *Server) conversation(ctx context.Context, id string) (chatModel.Conversation, error) {
	if id != "" {
		return s.deps.Conversations.Get(ctx, id)
	}
	conv, err := s.deps.Conversations.Active(ctx)
	if errors.Is(err, commonModels.ErrNotFound) {
		return chatModel.Conversation{}, nil
	}
	return conv, err
}

func (s *Server) listDocumentsTool(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.deps.Documents.List(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	out := ListOutput{Documents: []DocumentSummary{}}
	for _, d := range docs {
		out.Documents = append(out.Documents, DocumentSummary{
			DocumentID: d.Id,
			Name:       d.Name,
			Status:     string(d.Status),
			Progress:   d.Progress,
			Summary:    d.Summary,
			Error:      d.Error,
		})
	}
	return nil, out, nil
}

func toSections(in []search.Section) []Section {
	out := make([]Section, 0, len(in))
	for _, s := range in {
		out = append(out, Section{Heading: s.Heading, Text: s.Text, Score: s.Score})
	}
	return out
}
