package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ContentType tags the body of a document or note.
type ContentType string

const (
	ContentTypePDF     ContentType = "pdf"
	ContentTypeWebPage ContentType = "web-page"
	// ContentTypeLive marks user-edited bodies whose links come from the body itself.
	ContentTypeLive ContentType = "thlink-document"
)

var ErrInvalidContentType = errors.New("invalid content type")

// ParseContentType accepts only the known content types.
func ParseContentType(raw string) (ContentType, error) {
	switch ContentType(strings.TrimSpace(raw)) {
	case ContentTypePDF:
		return ContentTypePDF, nil
	case ContentTypeWebPage:
		return ContentTypeWebPage, nil
	case ContentTypeLive:
		return ContentTypeLive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, raw)
	}
}

func (t ContentType) IsLive() bool {
	return t == ContentTypeLive
}

// ContentLocation addresses a span inside a body, for example "0:5".
type ContentLocation string

func (l ContentLocation) String() string {
	return string(l)
}

// Content is an immutable body plus its type. Replacing content means allocating a new Content.
type Content struct {
	contentType ContentType
	body        *Deferred[[]byte]
}

func NewContent(contentType ContentType, body []byte) *Content {
	return &Content{contentType: contentType, body: Known(append([]byte(nil), body...))}
}

// NewDeferredContent builds content whose body is fetched on first access.
func NewDeferredContent(contentType ContentType, fetch func(context.Context) ([]byte, error)) *Content {
	return &Content{contentType: contentType, body: Defer(fetch)}
}

func (c *Content) Type() ContentType {
	return c.contentType
}

func (c *Content) Body(ctx context.Context) ([]byte, error) {
	return c.body.Get(ctx)
}

// LoadedBody returns the body only if it is already in memory.
func (c *Content) LoadedBody() ([]byte, bool) {
	return c.body.Peek()
}
