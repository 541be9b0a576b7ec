package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocAssist/internal/api"
	"github.com/akolanti/DocAssist/internal/chat"
	"github.com/akolanti/DocAssist/internal/data/store"
	"github.com/akolanti/DocAssist/internal/document"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/handlers"
	"github.com/akolanti/DocAssist/internal/middleware"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/internal/rag"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textExtractor struct{}

func (textExtractor) ExtractText(_ context.Context, content []byte, _ commonModels.DocType) (string, error) {
	return string(content), nil
}

type fakeDocuments struct {
	mu       sync.Mutex
	uploads  []document.FileUpload
	storage  *store.Storage
	submitFn func(upload document.FileUpload) (commonModels.Document, error)
}

func (f *fakeDocuments) Submit(_ context.Context, upload document.FileUpload) (commonModels.Document, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, upload)
	f.mu.Unlock()
	if f.submitFn != nil {
		return f.submitFn(upload)
	}
	return commonModels.Document{Id: "doc-1", Name: upload.Name, Size: upload.Size, Status: commonModels.StatusPendingUpload}, nil
}

func (f *fakeDocuments) Get(ctx context.Context, id string) (commonModels.Document, error) {
	doc, err := f.storage.Document(ctx, id)
	return doc.Meta(), err
}

func (f *fakeDocuments) List(ctx context.Context) ([]commonModels.Document, error) {
	return f.storage.Documents(ctx)
}

func (f *fakeDocuments) Delete(ctx context.Context, id string) error {
	if _, err := f.storage.Document(ctx, id); err != nil {
		return err
	}
	return f.storage.DeleteDocument(ctx, id)
}

func (f *fakeDocuments) Retry(_ context.Context, id string) (commonModels.Document, error) {
	return commonModels.Document{}, &commonModels.ValidationError{Field: "status", Message: "only failed documents can be retried"}
}

func (f *fakeDocuments) Cancel(id string) error {
	return commonModels.ErrNotFound
}

type fakeChat struct {
	convs *chat.Store
	err   error
}

func (f *fakeChat) SendMessage(ctx context.Context, conversationID, text string, documentIDs []string) (rag.Reply, error) {
	if f.err != nil {
		return rag.Reply{}, f.err
	}
	user, err := f.convs.AddMessage(ctx, conversationID, chatModel.Message{Role: chatModel.RoleUser, Content: text, DocumentIDs: documentIDs})
	if err != nil {
		return rag.Reply{}, err
	}
	answer, err := f.convs.AddMessage(ctx, conversationID, chatModel.Message{Role: chatModel.RoleAssistant, Content: "echo: " + text})
	if err != nil {
		return rag.Reply{}, err
	}
	conv, err := f.convs.Get(ctx, conversationID)
	return rag.Reply{Conversation: conv, UserMessage: user, Answer: answer}, err
}

func (f *fakeChat) DiscussDocument(ctx context.Context, conversationID, documentID, query string) (rag.Reply, error) {
	return rag.Reply{}, &commonModels.ValidationError{Field: "document", Message: "document is not ready"}
}

type fixture struct {
	storage *store.Storage
	index   *search.Index
	docs    *fakeDocuments
	chat    *fakeChat
	handler *handlers.Handler
	router  http.Handler
}

func newFixture(t *testing.T, opts middleware.Options) fixture {
	t.Helper()
	bus := notify.NewBus()
	storage := store.New(store.NewMemoryBackend(), bus)
	convs := chat.NewStore(storage)
	index := search.NewIndex(textExtractor{})
	docs := &fakeDocuments{storage: storage}
	chatSvc := &fakeChat{convs: convs}

	h := handlers.NewHandler(handlers.Dependencies{
		Conversations: convs,
		Documents:     docs,
		Chat:          chatSvc,
		Index:         index,
		Preferences:   storage,
		Bus:           bus,

		AllowAnyOrigin: opts.Token != "" || opts.JWTSecret != "",
	})
	t.Cleanup(func() {
		h.Close()
		_ = storage.Close()
	})
	return fixture{storage: storage, index: index, docs: docs, chat: chatSvc, handler: h, router: NewRouter(h, middleware.New(opts), nil)}
}

func (f fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, middleware.Options{})

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[api.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.Indexed)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestConversationRoutes(t *testing.T) {
	f := newFixture(t, middleware.Options{})

	rec := f.do(t, http.MethodPost, "/conversations", api.CreateConversationRequest{})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[api.ConversationResponse](t, rec)
	assert.Equal(t, chatModel.DefaultTitle, created.Title)

	rec = f.do(t, http.MethodGet, "/conversations/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Id, decode[api.ConversationResponse](t, rec).Id)

	rec = f.do(t, http.MethodPatch, "/conversations/"+created.Id, api.RenameConversationRequest{Title: "Contracts"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Contracts", decode[api.ConversationResponse](t, rec).Title)

	rec = f.do(t, http.MethodPatch, "/conversations/"+created.Id, api.RenameConversationRequest{Title: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/conversations/"+created.Id+"/messages", api.SendMessageRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[api.ReplyResponse](t, rec)
	assert.Equal(t, "echo: hello", reply.Answer.Content)
	assert.Equal(t, 2, reply.Conversation.MessageCount)

	rec = f.do(t, http.MethodPost, "/conversations/"+created.Id+"/messages", api.SendMessageRequest{Content: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.ConversationResponse](t, rec), 1)

	rec = f.do(t, http.MethodPut, "/conversations/active", api.SetActiveRequest{})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/conversations/active", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/conversations/"+created.Id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/conversations/"+created.Id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, errBody.Error.Code)
	assert.False(t, errBody.Error.Retry)
}

func TestSendMessage_MapsServiceErrors(t *testing.T) {
	f := newFixture(t, middleware.Options{})

	rec := f.do(t, http.MethodPost, "/conversations/missing/messages", api.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.chat.err = commonModels.ErrStorageUnavailable
	rec = f.do(t, http.MethodPost, "/conversations/any/messages", api.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, decode[api.ErrorResponse](t, rec).Error.Retry)

	rec = f.do(t, http.MethodPost, "/conversations/any/documents/d1/discuss", api.DiscussRequest{Query: "what is this"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t, middleware.Options{})

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, multipartUpload(t, "document", "report.pdf", []byte("%PDF-1.4 body")))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode[api.UploadAcceptedResponse](t, rec)
	assert.Equal(t, "doc-1", accepted.Document.Id)
	assert.Equal(t, "documents/doc-1", accepted.StatusURL)
	require.Len(t, f.docs.uploads, 1)
	assert.Equal(t, "report.pdf", f.docs.uploads[0].Name)
	assert.Equal(t, []byte("%PDF-1.4 body"), f.docs.uploads[0].Content)

	tests := []struct {
		name    string
		field   string
		file    string
		content []byte
	}{
		{name: "missing file", field: "", file: "", content: nil},
		{name: "wrong field", field: "file", file: "a.pdf", content: []byte("x")},
		{name: "unsupported type", field: "document", file: "tool.exe", content: []byte("MZ")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, multipartUpload(t, tc.field, tc.file, tc.content))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Len(t, f.docs.uploads, 1)
}

func TestDocumentRoutes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, middleware.Options{})
	doc := commonModels.Document{
		Id: "d1", Name: "notes.txt", Type: commonModels.TEXT, Status: commonModels.StatusCompleted,
		Progress: 100, Content: []byte("Shipping\n\nParcels leave the warehouse every Tuesday morning."),
	}
	require.NoError(t, f.storage.SaveDocument(ctx, doc))
	require.NoError(t, f.index.Add(ctx, doc))

	rec := f.do(t, http.MethodGet, "/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.DocumentResponse](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/documents/d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode[api.DocumentResponse](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/documents/search?q=warehouse", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[api.SearchResponse](t, rec)
	require.Len(t, found.Results, 1)
	assert.Equal(t, "d1", found.Results[0].DocumentID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/documents/search", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/documents/search?q=x&limit=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/documents/d1/retry", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/documents/d1/cancel", nil).Code)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/documents/d1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/documents/d1", nil).Code)
}

func TestTranslationAndSettingsRoutes(t *testing.T) {
	f := newFixture(t, middleware.Options{})

	rec := f.do(t, http.MethodPost, "/translations", api.TranslationRequest{TargetLanguage: "de", Source: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[api.TranslationResponse](t, rec)
	assert.Equal(t, "text", created.Type)

	rec = f.do(t, http.MethodPut, "/translations/"+created.Id, api.TranslationRequest{TargetLanguage: "de", Source: "hello", Result: "hallo"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[api.TranslationResponse](t, rec)
	assert.Equal(t, "hallo", updated.Result)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/translations", api.TranslationRequest{Source: "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/translations", api.TranslationRequest{TargetLanguage: "fr", Source: "hi", Type: "audio"}).Code)

	rec = f.do(t, http.MethodGet, "/translations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.TranslationResponse](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/translations/"+created.Id, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/translations/"+created.Id, nil).Code)

	dark := true
	rec = f.do(t, http.MethodPut, "/settings", api.SettingsRequest{DarkMode: &dark})
	require.Equal(t, http.StatusOK, rec.Code)
	lang := "fr"
	rec = f.do(t, http.MethodPut, "/settings", api.SettingsRequest{Language: &lang})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.SettingsResponse{DarkMode: true, Language: "fr"}, decode[api.SettingsResponse](t, rec))
}

func TestAuthentication(t *testing.T) {
	secret := "signing-secret"
	f := newFixture(t, middleware.Options{Token: "static-token", JWTSecret: secret})

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/conversations", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/conversations", nil, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/conversations", nil, "Authorization", "Bearer static-token").Code)

	token, err := middleware.IssueToken("desktop", []byte(secret), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/conversations", nil, "Authorization", "Bearer "+token).Code)

	expired, err := middleware.IssueToken("desktop", []byte(secret), -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/conversations", nil, "Authorization", "Bearer "+expired).Code)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/settings?access_token=static-token", nil).Code)
}

func TestRateLimitOnChatRoutes(t *testing.T) {
	f := newFixture(t, middleware.Options{})

	codes := make([]int, 0, 8)
	for i := 0; i < 8; i++ {
		codes = append(codes, f.do(t, http.MethodPost, "/conversations/missing/messages", api.SendMessageRequest{Content: "hi"}).Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)
	assert.Equal(t, http.StatusNotFound, codes[0])

	// plain reads are not limited
	for i := 0; i < 8; i++ {
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/conversations", nil).Code)
	}
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, middleware.Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f.storage.Bus().Publish(context.Background(), notify.Event{Topic: notify.TopicDocuments, Key: "d9"})
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg api.EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "documents", msg.Topic)
	assert.Equal(t, "d9", msg.Key)
	assert.False(t, msg.Remote)
}

func TestEventStream_OriginCheck(t *testing.T) {
	open := newFixture(t, middleware.Options{})
	srv := httptest.NewServer(open.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://elsewhere.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {srv.URL}})
	require.NoError(t, err)
	conn.Close()

	secured := newFixture(t, middleware.Options{Token: "static-token"})
	securedSrv := httptest.NewServer(secured.router)
	defer securedSrv.Close()
	securedURL := "ws" + strings.TrimPrefix(securedSrv.URL, "http") + "/events?access_token=static-token"

	conn, _, err = websocket.DefaultDialer.Dial(securedURL, http.Header{"Origin": {"http://elsewhere.example"}})
	require.NoError(t, err)
	conn.Close()
}
