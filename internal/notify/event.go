package notify

import (
	"context"
	"time"
)

const (
	EventDocumentSaved   = "documentSaved"
	EventDocumentMutated = "documentMutated"
	EventDocumentDeleted = "documentDeleted"
)

// Event announces a change to one document of a workspace.
type Event struct {
	Type       string    `json:"type"`
	Workspace  string    `json:"workspace"`
	DocumentID string    `json:"document_id"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events to whoever listens for them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
