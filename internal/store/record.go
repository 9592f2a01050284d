package store

import "fmt"

// Attribute names shared by every backend.
const (
	AttributeID          = "id"
	AttributeWorkspace   = "workspace"
	AttributeTitle       = "title"
	AttributeVersion     = "version"
	AttributeTags        = "tags"
	AttributeContentType = "content_type"
	AttributeContentID   = "content_id"
	AttributeLinks       = "links"
	AttributeBacklinks   = "backlinks"
	AttributeHighlights  = "highlights"
)

// Highlight entry fields addressed by nested patch paths.
const (
	HighlightLocation        = "location"
	HighlightNoteBody        = "note_body"
	HighlightLinkPreviewText = "link_preview_text"
)

// Key addresses one document record: the workspace partition and the document id.
type Key struct {
	Workspace string
	ID        string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Workspace, k.ID)
}

// Record is the persisted form of a document aggregate. The title doubles as the document's
// link preview text.
type Record struct {
	ID          string                     `json:"id" dynamodbav:"id"`
	Workspace   string                     `json:"workspace" dynamodbav:"workspace"`
	Title       string                     `json:"title" dynamodbav:"title"`
	Version     int64                      `json:"version" dynamodbav:"version"`
	Tags        []string                   `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
	ContentType string                     `json:"content_type" dynamodbav:"content_type"`
	ContentID   string                     `json:"content_id" dynamodbav:"content_id"`
	Links       map[string]LinkRecord      `json:"links,omitempty" dynamodbav:"links,omitempty"`
	Backlinks   map[string]BacklinkRecord  `json:"backlinks,omitempty" dynamodbav:"backlinks,omitempty"`
	Highlights  map[string]HighlightRecord `json:"highlights,omitempty" dynamodbav:"highlights,omitempty"`
}

func (r Record) Key() Key {
	return Key{Workspace: r.Workspace, ID: r.ID}
}

// LinkRecord is an outgoing link as seen from its source.
type LinkRecord struct {
	Location                           string  `json:"location" dynamodbav:"location"`
	TargetDocumentID                   string  `json:"target_document_id" dynamodbav:"target_document_id"`
	TargetDocumentHighlightID          string  `json:"target_document_highlight_id,omitempty" dynamodbav:"target_document_highlight_id,omitempty"`
	TargetDocumentPreviewText          string  `json:"target_document_preview_text" dynamodbav:"target_document_preview_text"`
	TargetDocumentHighlightPreviewText *string `json:"target_document_highlight_preview_text,omitempty" dynamodbav:"target_document_highlight_preview_text,omitempty"`
}

func (r LinkRecord) Equal(other LinkRecord) bool {
	return r.Location == other.Location &&
		r.TargetDocumentID == other.TargetDocumentID &&
		r.TargetDocumentHighlightID == other.TargetDocumentHighlightID &&
		r.TargetDocumentPreviewText == other.TargetDocumentPreviewText &&
		equalOptional(r.TargetDocumentHighlightPreviewText, other.TargetDocumentHighlightPreviewText)
}

// BacklinkRecord is an incoming link as seen from its target.
type BacklinkRecord struct {
	Location                           string  `json:"location" dynamodbav:"location"`
	SourceDocumentID                   string  `json:"source_document_id" dynamodbav:"source_document_id"`
	SourceDocumentHighlightID          string  `json:"source_document_highlight_id,omitempty" dynamodbav:"source_document_highlight_id,omitempty"`
	SourceDocumentPreviewText          string  `json:"source_document_preview_text" dynamodbav:"source_document_preview_text"`
	SourceDocumentHighlightPreviewText *string `json:"source_document_highlight_preview_text,omitempty" dynamodbav:"source_document_highlight_preview_text,omitempty"`
}

func (r BacklinkRecord) Equal(other BacklinkRecord) bool {
	return r.Location == other.Location &&
		r.SourceDocumentID == other.SourceDocumentID &&
		r.SourceDocumentHighlightID == other.SourceDocumentHighlightID &&
		r.SourceDocumentPreviewText == other.SourceDocumentPreviewText &&
		equalOptional(r.SourceDocumentHighlightPreviewText, other.SourceDocumentHighlightPreviewText)
}

type HighlightRecord struct {
	Location        string                    `json:"location" dynamodbav:"location"`
	NoteBody        *string                   `json:"note_body,omitempty" dynamodbav:"note_body,omitempty"`
	LinkPreviewText *string                   `json:"link_preview_text,omitempty" dynamodbav:"link_preview_text,omitempty"`
	Links           map[string]LinkRecord     `json:"links,omitempty" dynamodbav:"links,omitempty"`
	Backlinks       map[string]BacklinkRecord `json:"backlinks,omitempty" dynamodbav:"backlinks,omitempty"`
}

func (r HighlightRecord) Equal(other HighlightRecord) bool {
	return r.Location == other.Location &&
		equalOptional(r.NoteBody, other.NoteBody) &&
		equalOptional(r.LinkPreviewText, other.LinkPreviewText) &&
		equalMaps(r.Links, other.Links, LinkRecord.Equal) &&
		equalMaps(r.Backlinks, other.Backlinks, BacklinkRecord.Equal)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalMaps[V any](a, b map[string]V, equal func(V, V) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for key, left := range a {
		right, ok := b[key]
		if !ok || !equal(left, right) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for index := range a {
		if a[index] != b[index] {
			return false
		}
	}
	return true
}
