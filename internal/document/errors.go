package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a document or highlight that does not exist.
	ErrNotFound = errors.New("entity does not exist")

	ErrPolicyViolation      = errors.New("policy violation")
	ErrCrossWorkspaceLink   = fmt.Errorf("%w: link source and target belong to different workspaces", ErrPolicyViolation)
	ErrHighlightWithoutNote = fmt.Errorf("%w: a highlight needs a note before it can link", ErrPolicyViolation)
	ErrNoteNotLive          = fmt.Errorf("%w: note content must be %s", ErrPolicyViolation, ContentTypeLive)

	ErrMissingTarget     = errors.New("link target is required")
	ErrLinkCompleted     = errors.New("link is already completed")
	ErrMissingContent    = errors.New("content is required")
	ErrMissingNoteBody   = errors.New("note body must be loaded")
	ErrHighlightNotFound = fmt.Errorf("%w: highlight", ErrNotFound)
)
