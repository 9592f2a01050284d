package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/repository"
)

// LinkInput names a link target by document and, optionally, one of its highlights.
type LinkInput struct {
	Location          string
	TargetDocumentID  string
	TargetHighlightID string
}

// HighlightInput describes a highlight; links require a note.
type HighlightInput struct {
	Location string
	NoteBody *string
	Links    []LinkInput
}

// loadDocument returns a live document of workspace or ErrDocumentNotFound.
func loadDocument(ctx context.Context, repo *repository.DocumentRepository, workspace document.Workspace, rawID string) (*document.Document, error) {
	id, err := document.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	doc, err := repo.Get(ctx, id, workspace)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Deleted() {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// order fetches the node a link should point at: the document, or its highlight when one is named.
func order(ctx context.Context, repo *repository.DocumentRepository, workspace document.Workspace, documentID, highlightID string) (document.Node, error) {
	doc, err := loadDocument(ctx, repo, workspace, documentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(highlightID) == "" {
		return doc, nil
	}
	id, err := document.ParseID(highlightID)
	if err != nil {
		return nil, err
	}
	highlight, ok := doc.GetHighlight(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", document.ErrHighlightNotFound, doc.ID(), id)
	}
	return highlight, nil
}

func parseLocation(raw string) (document.ContentLocation, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	return document.ContentLocation(trimmed), nil
}

func prepareLinks(ctx context.Context, repo *repository.DocumentRepository, workspace document.Workspace, inputs []LinkInput) ([]*document.Link, error) {
	links := make([]*document.Link, 0, len(inputs))
	for _, input := range inputs {
		location, err := parseLocation(input.Location)
		if err != nil {
			return nil, err
		}
		target, err := order(ctx, repo, workspace, input.TargetDocumentID, input.TargetHighlightID)
		if err != nil {
			return nil, err
		}
		link, err := document.PrepareLink(location, target)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func prepareHighlights(ctx context.Context, repo *repository.DocumentRepository, workspace document.Workspace, inputs []HighlightInput) ([]document.PreparedHighlight, error) {
	highlights := make([]document.PreparedHighlight, 0, len(inputs))
	for _, input := range inputs {
		location, err := parseLocation(input.Location)
		if err != nil {
			return nil, err
		}
		links, err := prepareLinks(ctx, repo, workspace, input.Links)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, document.PreparedHighlight{
			Location: location,
			Note:     noteContent(input.NoteBody),
			Links:    links,
		})
	}
	return highlights, nil
}

// noteContent treats an absent or blank body as no note.
func noteContent(body *string) *document.Content {
	if body == nil || strings.TrimSpace(*body) == "" {
		return nil
	}
	return document.NewContent(document.ContentTypeLive, []byte(*body))
}
