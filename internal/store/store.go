package store

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict reports that the stored version was not the one a conditional put expected.
	ErrVersionConflict = errors.New("stored version does not match expected version")
	ErrItemNotFound    = errors.New("item not found")
	ErrBlobNotFound    = errors.New("blob not found")
)

// Store is the key-value collaborator holding one record per document, partitioned by workspace.
type Store interface {
	// GetItem reports false when no record exists.
	GetItem(ctx context.Context, key Key) (Record, bool, error)
	QueryItems(ctx context.Context, workspace string) ([]Record, error)
	// Put writes the whole record. If a record already exists its version must equal expectedVersion.
	Put(ctx context.Context, key Key, record Record, expectedVersion int64) error
	// Update applies the field-level difference between oldRecord and newRecord to an existing record.
	Update(ctx context.Context, key Key, newRecord, oldRecord Record) error
	Delete(ctx context.Context, key Key) error
}

// BlobStore holds document bodies.
type BlobStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	// URL returns a location clients can fetch the body from directly.
	URL(ctx context.Context, id string) (string, error)
	Put(ctx context.Context, id string, body []byte) error
	Delete(ctx context.Context, id string) error
}
