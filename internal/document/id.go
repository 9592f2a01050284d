package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxIdentifierLength = 190

var (
	ErrInvalidID        = errors.New("invalid identifier")
	ErrInvalidWorkspace = errors.New("invalid workspace")
)

// ID identifies documents, highlights and links. It never changes once allocated.
type ID string

// NewID allocates a time-ordered identifier.
func NewID() (ID, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return ID(value.String()), nil
}

// ParseID validates an externally supplied identifier.
func ParseID(raw string) (ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, maxIdentifierLength)
	}
	return ID(trimmed), nil
}

func (id ID) String() string {
	return string(id)
}

// Workspace is the partition every document lives in. References never cross workspaces.
type Workspace string

// NewWorkspace validates a workspace name.
func NewWorkspace(raw string) (Workspace, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidWorkspace)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidWorkspace, maxIdentifierLength)
	}
	return Workspace(trimmed), nil
}

func (w Workspace) String() string {
	return string(w)
}
