package api

import "time"

type ErrorResponse struct {
	Id    string        `json:"id,omitempty"`
	Error OutgoingError `json:"error"`
}

type OutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"conversation not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Location string `json:"location,omitempty"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
	Indexed  int    `json:"indexed_documents"`
}

// conversations---------------------

type MessageResponse struct {
	Id                    string    `json:"id"`
	Role                  string    `json:"role"`
	Content               string    `json:"content"`
	CreatedAt             time.Time `json:"created_at"`
	DocumentIDs           []string  `json:"document_ids,omitempty"`
	DiscussedDocumentID   string    `json:"discussed_document_id,omitempty"`
	ReferencedDocumentIDs []string  `json:"referenced_document_ids,omitempty"`
}

type ConversationResponse struct {
	Id           string            `json:"id"`
	Title        string            `json:"title"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	MessageCount int               `json:"message_count"`
	Messages     []MessageResponse `json:"messages,omitempty"`
}

type ContextDocument struct {
	Id       string            `json:"id"`
	Name     string            `json:"name"`
	Sections []SectionResponse `json:"sections,omitempty"`
}

type ReplyResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	UserMessage  MessageResponse      `json:"user_message"`
	Answer       MessageResponse      `json:"answer"`
	Documents    []ContextDocument    `json:"documents,omitempty"`
}

// documents---------------------

type DocumentResponse struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Summary    string    `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	BackendID  string    `json:"backend_id,omitempty"`
	FileURL    string    `json:"file_url,omitempty"`
}

type UploadAcceptedResponse struct {
	Document  DocumentResponse `json:"document"`
	StatusURL string           `json:"status_url"`
}

type SectionResponse struct {
	Heading string  `json:"heading,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

type SearchResult struct {
	DocumentID string            `json:"document_id"`
	Name       string            `json:"name"`
	Score      float64           `json:"score"`
	Sections   []SectionResponse `json:"sections"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// translations and settings---------------------

type TranslationResponse struct {
	Id             string    `json:"id"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	Type           string    `json:"type"`
	Source         string    `json:"source"`
	Result         string    `json:"result,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SettingsResponse struct {
	DarkMode bool   `json:"dark_mode"`
	Language string `json:"language"`
}

type EventMessage struct {
	Topic  string    `json:"topic"`
	Key    string    `json:"key"`
	Remote bool      `json:"remote"`
	At     time.Time `json:"at"`
}

// requests---------------------

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type RenameConversationRequest struct {
	Title string `json:"title" validate:"required"`
}

type SetActiveRequest struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageRequest struct {
	Content     string   `json:"content" validate:"required"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

type DiscussRequest struct {
	Query string `json:"query" validate:"required"`
}

type TranslationRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language" validate:"required"`
	Type           string `json:"type"`
	Source         string `json:"source" validate:"required"`
	Result         string `json:"result,omitempty"`
}

// SettingsRequest leaves a field unchanged when it is omitted.
type SettingsRequest struct {
	DarkMode *bool   `json:"dark_mode,omitempty"`
	Language *string `json:"language,omitempty"`
}
