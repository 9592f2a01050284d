package repository

import "errors"

var (
	// ErrContentUpdatedByOtherWriter reports a full write that lost a version race.
	ErrContentUpdatedByOtherWriter = errors.New("document content was updated by another writer")

	// ErrWorkspacePartiallyLoaded reports a workspace load after some of its documents were already loaded.
	ErrWorkspacePartiallyLoaded = errors.New("workspace is partially loaded")

	ErrCyclicRebuild    = errors.New("document is already being rebuilt")
	ErrRepositoryClosed = errors.New("repository is closed")
	ErrAlreadyTracked   = errors.New("document is already tracked")
	ErrUnknownDocument  = errors.New("document is not tracked by this repository")
	ErrBlobWrite        = errors.New("document body write failed")
	ErrMissingStore     = errors.New("repository requires a record store")
	ErrMissingBlobStore = errors.New("repository requires a blob store")
)
