// Package mcpserver exposes document search and context resolution as MCP
// tools over SSE.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/rag/resolver"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "docassist"
	serverVersion = "0.1.0"
)

type Searcher interface {
	Search(query string, limit int) []search.Result
}

type ConversationSource interface {
	Get(ctx context.Context, id string) (chatModel.Conversation, error)
	Active(ctx context.Context) (chatModel.Conversation, error)
}

type ContextResolver interface {
	Resolve(ctx context.Context, conv chatModel.Conversation, query string) ([]resolver.DocumentContext, error)
}

type DocumentLister interface {
	List(ctx context.Context) ([]commonModels.Document, error)
}

type Dependencies struct {
	Index         Searcher
	Conversations ConversationSource
	Resolver      ContextResolver
	Documents     DocumentLister
}

type Server struct {
	deps    Dependencies
	server  *mcp.Server
	handler http.Handler
	logger  *logger_i.Logger
}

func New(deps Dependencies) *Server {
	s := &Server{
		deps: deps,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
		logger: logger_i.NewLogger("MCP"),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search_documents",
		Description: `Search the text of processed documents.
Parameters:
- query (string, required): words to look for
- limit (int, optional): maximum number of documents, default 3

Returns: matching documents with their best sections, highest score first.`,
	}, s.searchDocumentsTool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "resolve_document_context",
		Description: `Work out which documents a message in a conversation refers to.
Parameters:
- query (string, required): the user's message
- conversation_id (string, optional): conversation to resolve against, defaults to the active one

Returns: the referenced documents with content excerpts and relevant sections.`,
	}, s.resolveContextTool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every document with its processing status and summary. No parameters required.",
	}, s.listDocumentsTool)

	s.handler = mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}
