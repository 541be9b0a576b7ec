package adapter

import (
	"fmt"

	"github.com/akolanti/DocAssist/internal/api"
	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/internal/rag"
	"github.com/akolanti/DocAssist/internal/rag/search"
)

func ToMessageResponse(m chatModel.Message) api.MessageResponse {
	return api.MessageResponse{
		Id:                    m.Id,
		Role:                  string(m.Role),
		Content:               m.Content,
		CreatedAt:             m.CreatedAt,
		DocumentIDs:           m.DocumentIDs,
		DiscussedDocumentID:   m.DiscussedDocumentID,
		ReferencedDocumentIDs: m.ReferencedDocumentIDs,
	}
}

// ToConversationResponse includes messages only when withMessages is set;
// lists stay small that way.
func ToConversationResponse(c chatModel.Conversation, withMessages bool) api.ConversationResponse {
	res := api.ConversationResponse{
		Id:           c.Id,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
	if withMessages {
		res.Messages = make([]api.MessageResponse, 0, len(c.Messages))
		for _, m := range c.Messages {
			res.Messages = append(res.Messages, ToMessageResponse(m))
		}
	}
	return res
}

func ToConversationList(convs []chatModel.Conversation) []api.ConversationResponse {
	out := make([]api.ConversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, ToConversationResponse(c, false))
	}
	return out
}

func ToReplyResponse(r rag.Reply) api.ReplyResponse {
	res := api.ReplyResponse{
		Conversation: ToConversationResponse(r.Conversation, false),
		UserMessage:  ToMessageResponse(r.UserMessage),
		Answer:       ToMessageResponse(r.Answer),
	}
	for _, dc := range r.Documents {
		res.Documents = append(res.Documents, api.ContextDocument{
			Id:       dc.Document.Id,
			Name:     dc.Document.Name,
			Sections: ToSectionResponses(dc.Sections),
		})
	}
	return res
}

func ToDocumentResponse(d commonModels.Document) api.DocumentResponse {
	res := api.DocumentResponse{
		Id:         d.Id,
		Name:       d.Name,
		Type:       string(d.Type),
		Size:       d.Size,
		UploadedAt: d.UploadedAt,
		Status:     string(d.Status),
		Progress:   d.Progress,
		Summary:    d.Summary,
		Error:      d.Error,
	}
	if d.Backend != nil {
		res.BackendID = d.Backend.ID
		res.FileURL = d.Backend.FileURL
	}
	return res
}

func ToDocumentList(docs []commonModels.Document) []api.DocumentResponse {
	out := make([]api.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentResponse(d))
	}
	return out
}

func ToUploadAccepted(d commonModels.Document) api.UploadAcceptedResponse {
	return api.UploadAcceptedResponse{
		Document:  ToDocumentResponse(d),
		StatusURL: fmt.Sprintf("documents/%s", d.Id),
	}
}

func ToSectionResponses(sections []search.Section) []api.SectionResponse {
	if len(sections) == 0 {
		return nil
	}
	out := make([]api.SectionResponse, 0, len(sections))
	for _, s := range sections {
		out = append(out, api.SectionResponse{Heading: s.Heading, Text: s.Text, Score: s.Score})
	}
	return out
}

func ToSearchResponse(query string, results []search.Result) api.SearchResponse {
	res := api.SearchResponse{Query: query, Results: make([]api.SearchResult, 0, len(results))}
	for _, r := range results {
		res.Results = append(res.Results, api.SearchResult{
			DocumentID: r.DocumentID,
			Name:       r.Name,
			Score:      r.Score,
			Sections:   ToSectionResponses(r.Sections),
		})
	}
	return res
}

func ToTranslationResponse(t chatModel.TranslationJob) api.TranslationResponse {
	return api.TranslationResponse{
		Id:             t.Id,
		SourceLanguage: t.SourceLanguage,
		TargetLanguage: t.TargetLanguage,
		Type:           string(t.Type),
		Source:         t.Source,
		Result:         t.Result,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func FromTranslationRequest(id string, req api.TranslationRequest) chatModel.TranslationJob {
	kind := chatModel.TranslationType(req.Type)
	if kind == "" {
		kind = chatModel.TranslationText
	}
	return chatModel.TranslationJob{
		Id:             id,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Type:           kind,
		Source:         req.Source,
		Result:         req.Result,
	}
}

func ToSettingsResponse(s chatModel.Settings) api.SettingsResponse {
	return api.SettingsResponse{DarkMode: s.DarkMode, Language: s.Language}
}

func ToEventMessage(e notify.Event) api.EventMessage {
	return api.EventMessage{Topic: string(e.Topic), Key: e.Key, Remote: e.Remote, At: e.At}
}

func BadRequest(id string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id: id,
		Error: api.OutgoingError{
			Code:    code,
			Message: message,
			Retry:   code == 429 || code >= 500,
		},
	}
}
