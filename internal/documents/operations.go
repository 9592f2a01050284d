package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/repository"
)

type CreateDocumentInput struct {
	Title       string
	Tags        []string
	ContentType string
	ContentBody []byte
	Links       []LinkInput
}

type UpdateContentInput struct {
	Body       []byte
	Links      []LinkInput
	Highlights []HighlightInput
}

func (s *Service) CreateDocument(ctx context.Context, workspace document.Workspace, input CreateDocumentInput) (Model, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Model{}, s.fail(opCreateDocument, "invalid_input", fmt.Errorf("%w: title is required", ErrInvalidInput))
	}
	contentType, err := document.ParseContentType(input.ContentType)
	if err != nil {
		return Model{}, s.fail(opCreateDocument, "invalid_content_type", err)
	}
	return s.single(ctx, opCreateDocument, func(repo *repository.DocumentRepository) (*document.Document, error) {
		links, err := prepareLinks(ctx, repo, workspace, input.Links)
		if err != nil {
			return nil, err
		}
		content := document.NewContent(contentType, input.ContentBody)
		doc, err := document.Create(ctx, workspace, title, input.Tags, content, links, nil)
		if err != nil {
			return nil, err
		}
		if err := repo.Add(doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

func (s *Service) GetDocument(ctx context.Context, workspace document.Workspace, documentID string) (Model, error) {
	return s.single(ctx, opGetDocument, func(repo *repository.DocumentRepository) (*document.Document, error) {
		return loadDocument(ctx, repo, workspace, documentID)
	})
}

func (s *Service) ListDocuments(ctx context.Context, workspace document.Workspace) ([]Model, error) {
	return s.withRepository(ctx, opListDocuments, func(repo *repository.DocumentRepository) ([]*document.Document, error) {
		return repo.GetAllInWorkspace(ctx, workspace)
	})
}

func (s *Service) DeleteDocument(ctx context.Context, workspace document.Workspace, documentID string) error {
	_, err := s.single(ctx, opDeleteDocument, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, err := loadDocument(ctx, repo, workspace, documentID)
		if err != nil {
			return nil, err
		}
		return doc, doc.Delete(ctx)
	})
	return err
}

func (s *Service) AddTag(ctx context.Context, workspace document.Workspace, documentID, tag string) (Model, error) {
	return s.editDocument(ctx, opAddTag, workspace, documentID, func(doc *document.Document) error {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: tag is required", ErrInvalidInput)
		}
		doc.Tag(tag)
		return nil
	})
}

func (s *Service) RemoveTag(ctx context.Context, workspace document.Workspace, documentID, tag string) (Model, error) {
	return s.editDocument(ctx, opRemoveTag, workspace, documentID, func(doc *document.Document) error {
		doc.Untag(tag)
		return nil
	})
}

func (s *Service) RenameDocument(ctx context.Context, workspace document.Workspace, documentID, title string) (Model, error) {
	return s.editDocument(ctx, opRenameDocument, workspace, documentID, func(doc *document.Document) error {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		doc.Rename(trimmed)
		return nil
	})
}

// UpdateContent replaces the body of a live document together with the links and highlights found in it.
func (s *Service) UpdateContent(ctx context.Context, workspace document.Workspace, documentID string, input UpdateContentInput) (Model, error) {
	return s.single(ctx, opUpdateContent, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, err := loadDocument(ctx, repo, workspace, documentID)
		if err != nil {
			return nil, err
		}
		if !doc.Content().Type().IsLive() {
			return nil, ErrNotLiveDocument
		}
		links, err := prepareLinks(ctx, repo, workspace, input.Links)
		if err != nil {
			return nil, err
		}
		highlights, err := prepareHighlights(ctx, repo, workspace, input.Highlights)
		if err != nil {
			return nil, err
		}
		content := document.NewContent(document.ContentTypeLive, input.Body)
		return doc, doc.UpdateContent(ctx, content, links, highlights)
	})
}

func (s *Service) CreateLink(ctx context.Context, workspace document.Workspace, documentID string, input LinkInput) (Model, error) {
	return s.single(ctx, opCreateLink, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, err := loadStaticDocument(ctx, repo, workspace, documentID)
		if err != nil {
			return nil, err
		}
		location, err := parseLocation(input.Location)
		if err != nil {
			return nil, err
		}
		target, err := order(ctx, repo, workspace, input.TargetDocumentID, input.TargetHighlightID)
		if err != nil {
			return nil, err
		}
		_, err = doc.Link(ctx, location, target)
		return doc, err
	})
}

// DeleteLink removes a link the document sources, directly or from one of its highlights.
func (s *Service) DeleteLink(ctx context.Context, workspace document.Workspace, documentID, linkID string) (Model, error) {
	return s.single(ctx, opDeleteLink, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, err := loadDocument(ctx, repo, workspace, documentID)
		if err != nil {
			return nil, err
		}
		id, err := document.ParseID(linkID)
		if err != nil {
			return nil, err
		}
		link, ok := sourcedLink(doc, id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, id)
		}
		return doc, link.Delete(ctx)
	})
}

func (s *Service) CreateHighlight(ctx context.Context, workspace document.Workspace, documentID string, input HighlightInput) (Model, error) {
	return s.single(ctx, opCreateHighlight, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, err := loadStaticDocument(ctx, repo, workspace, documentID)
		if err != nil {
			return nil, err
		}
		location, err := parseLocation(input.Location)
		if err != nil {
			return nil, err
		}
		note := noteContent(input.NoteBody)
		if note == nil && len(input.Links) > 0 {
			return nil, document.ErrHighlightWithoutNote
		}
		links, err := prepareLinks(ctx, repo, workspace, input.Links)
		if err != nil {
			return nil, err
		}
		highlight, err := doc.Highlight(location)
		if err != nil {
			return nil, err
		}
		if note == nil {
			return doc, nil
		}
		return doc, highlight.MakeNote(ctx, note, links)
	})
}

// NoteHighlight replaces the note and its links; an empty note removes both.
func (s *Service) NoteHighlight(ctx context.Context, workspace document.Workspace, documentID, highlightID string, noteBody *string, links []LinkInput) (Model, error) {
	return s.single(ctx, opNoteHighlight, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, highlight, err := loadHighlight(ctx, repo, workspace, documentID, highlightID)
		if err != nil {
			return nil, err
		}
		note := noteContent(noteBody)
		if note == nil {
			if len(links) > 0 {
				return nil, document.ErrHighlightWithoutNote
			}
			return doc, highlight.DeleteNote(ctx)
		}
		prepared, err := prepareLinks(ctx, repo, workspace, links)
		if err != nil {
			return nil, err
		}
		return doc, highlight.MakeNote(ctx, note, prepared)
	})
}

func (s *Service) DeleteHighlight(ctx context.Context, workspace document.Workspace, documentID, highlightID string) (Model, error) {
	return s.single(ctx, opDeleteHighlight, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, highlight, err := loadHighlight(ctx, repo, workspace, documentID, highlightID)
		if err != nil {
			return nil, err
		}
		return doc, highlight.Delete(ctx)
	})
}

func (s *Service) editDocument(ctx context.Context, operation string, workspace document.Workspace, documentID string, edit func(*document.Document) error) (Model, error) {
	return s.single(ctx, operation, func(repo *repository.DocumentRepository) (*document.Document, error) {
		doc, err := loadDocument(ctx, repo, workspace, documentID)
		if err != nil {
			return nil, err
		}
		return doc, edit(doc)
	})
}

// loadStaticDocument loads a document whose links and highlights are edited directly.
func loadStaticDocument(ctx context.Context, repo *repository.DocumentRepository, workspace document.Workspace, documentID string) (*document.Document, error) {
	doc, err := loadDocument(ctx, repo, workspace, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Content().Type().IsLive() {
		return nil, ErrLiveDocument
	}
	return doc, nil
}

func loadHighlight(ctx context.Context, repo *repository.DocumentRepository, workspace document.Workspace, documentID, highlightID string) (*document.Document, *document.Highlight, error) {
	doc, err := loadDocument(ctx, repo, workspace, documentID)
	if err != nil {
		return nil, nil, err
	}
	id, err := document.ParseID(highlightID)
	if err != nil {
		return nil, nil, err
	}
	highlight, ok := doc.GetHighlight(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", document.ErrHighlightNotFound, doc.ID(), id)
	}
	return doc, highlight, nil
}

func sourcedLink(doc *document.Document, id document.ID) (*document.Link, bool) {
	if link, ok := doc.GetLink(id); ok {
		return link, true
	}
	for _, highlight := range doc.Highlights() {
		if link, ok := highlight.GetLink(id); ok {
			return link, true
		}
	}
	return nil, false
}
