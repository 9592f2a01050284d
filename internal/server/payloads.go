package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/documents"
)

const (
	maxTitleLength    = 512
	maxLocationLength = 190
)

var contentTypes = []interface{}{
	string(document.ContentTypePDF),
	string(document.ContentTypeWebPage),
	string(document.ContentTypeLive),
}

type linkRequestPayload struct {
	Location          string `json:"location"`
	TargetDocumentID  string `json:"target_document_id"`
	TargetHighlightID string `json:"target_highlight_id,omitempty"`
}

func (p linkRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Location, validation.Required, validation.Length(1, maxLocationLength)),
		validation.Field(&p.TargetDocumentID, validation.Required),
	)
}

type highlightRequestPayload struct {
	Location string               `json:"location"`
	NoteBody *string              `json:"note_body,omitempty"`
	Links    []linkRequestPayload `json:"links"`
}

func (p highlightRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Location, validation.Required, validation.Length(1, maxLocationLength)),
		validation.Field(&p.Links),
	)
}

type createDocumentRequestPayload struct {
	Title       string               `json:"title"`
	Tags        []string             `json:"tags"`
	ContentType string               `json:"content_type"`
	ContentBody []byte               `json:"content_body"`
	Links       []linkRequestPayload `json:"links"`
}

func (p createDocumentRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&p.ContentType, validation.Required, validation.In(contentTypes...)),
		validation.Field(&p.Links),
	)
}

type renameRequestPayload struct {
	Title string `json:"title"`
}

func (p renameRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, maxTitleLength)),
	)
}

type updateContentRequestPayload struct {
	ContentBody []byte                    `json:"content_body"`
	Links       []linkRequestPayload      `json:"links"`
	Highlights  []highlightRequestPayload `json:"highlights"`
}

func (p updateContentRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Links),
		validation.Field(&p.Highlights),
	)
}

type noteRequestPayload struct {
	NoteBody *string              `json:"note_body"`
	Links    []linkRequestPayload `json:"links"`
}

func (p noteRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Links),
	)
}

type endpointPayload struct {
	DocumentID           string  `json:"document_id"`
	HighlightID          string  `json:"highlight_id,omitempty"`
	DocumentPreviewText  string  `json:"document_preview_text"`
	HighlightPreviewText *string `json:"highlight_preview_text,omitempty"`
}

type linkPayload struct {
	ID       string          `json:"id"`
	Location string          `json:"location"`
	Source   endpointPayload `json:"source"`
	Target   endpointPayload `json:"target"`
	Broken   bool            `json:"broken"`
}

type highlightPayload struct {
	ID        string        `json:"id"`
	Location  string        `json:"location"`
	NoteBody  *string       `json:"note_body,omitempty"`
	Links     []linkPayload `json:"links"`
	Backlinks []linkPayload `json:"backlinks"`
}

type documentPayload struct {
	ID             string             `json:"id"`
	Workspace      string             `json:"workspace"`
	Title          string             `json:"title"`
	Tags           []string           `json:"tags"`
	ContentType    string             `json:"content_type"`
	ContentBodyURL string             `json:"content_body_url,omitempty"`
	Version        int64              `json:"version"`
	Links          []linkPayload      `json:"links"`
	Backlinks      []linkPayload      `json:"backlinks"`
	Highlights     []highlightPayload `json:"highlights"`
}

type documentListPayload struct {
	Documents []documentPayload `json:"documents"`
}

func linkInputs(payloads []linkRequestPayload) []documents.LinkInput {
	inputs := make([]documents.LinkInput, 0, len(payloads))
	for _, payload := range payloads {
		inputs = append(inputs, linkInput(payload))
	}
	return inputs
}

func linkInput(payload linkRequestPayload) documents.LinkInput {
	return documents.LinkInput{
		Location:          payload.Location,
		TargetDocumentID:  payload.TargetDocumentID,
		TargetHighlightID: payload.TargetHighlightID,
	}
}

func highlightInput(payload highlightRequestPayload) documents.HighlightInput {
	return documents.HighlightInput{
		Location: payload.Location,
		NoteBody: payload.NoteBody,
		Links:    linkInputs(payload.Links),
	}
}

func newDocumentPayload(model documents.Model) documentPayload {
	payload := documentPayload{
		ID:             model.ID,
		Workspace:      model.Workspace,
		Title:          model.Title,
		Tags:           model.Tags,
		ContentType:    model.ContentType,
		ContentBodyURL: model.ContentBodyURL,
		Version:        model.Version,
		Links:          newLinkPayloads(model.Links),
		Backlinks:      newLinkPayloads(model.Backlinks),
		Highlights:     make([]highlightPayload, 0, len(model.Highlights)),
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	for _, highlight := range model.Highlights {
		payload.Highlights = append(payload.Highlights, highlightPayload{
			ID:        highlight.ID,
			Location:  highlight.Location,
			NoteBody:  highlight.NoteBody,
			Links:     newLinkPayloads(highlight.Links),
			Backlinks: newLinkPayloads(highlight.Backlinks),
		})
	}
	return payload
}

func newLinkPayloads(models []documents.LinkModel) []linkPayload {
	payloads := make([]linkPayload, 0, len(models))
	for _, model := range models {
		payloads = append(payloads, linkPayload{
			ID:       model.ID,
			Location: model.Location,
			Source:   newEndpointPayload(model.Source),
			Target:   newEndpointPayload(model.Target),
			Broken:   model.Broken,
		})
	}
	return payloads
}

func newEndpointPayload(model documents.EndpointModel) endpointPayload {
	return endpointPayload{
		DocumentID:           model.DocumentID,
		HighlightID:          model.HighlightID,
		DocumentPreviewText:  model.DocumentPreviewText,
		HighlightPreviewText: model.HighlightPreviewText,
	}
}
