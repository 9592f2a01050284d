package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/notify"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/repository"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
)

var (
	errMissingStore     = errors.New("record store is required")
	errMissingBlobStore = errors.New("blob store is required")
	noOpLogger          = zap.NewNop()

	// ErrInvalidInput reports a request that fails validation before any document is touched.
	ErrInvalidInput = errors.New("invalid input")

	ErrDocumentNotFound = fmt.Errorf("%w: document", document.ErrNotFound)
	ErrLinkNotFound     = fmt.Errorf("%w: link", document.ErrNotFound)

	// ErrLiveDocument rejects direct link and highlight edits on live documents; their links follow their content.
	ErrLiveDocument    = fmt.Errorf("%w: live documents take links and highlights from their content", document.ErrPolicyViolation)
	ErrNotLiveDocument = fmt.Errorf("%w: only live documents accept content updates", document.ErrPolicyViolation)
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "documents.service.new"
	opCreateDocument  = "documents.create"
	opGetDocument     = "documents.get"
	opListDocuments   = "documents.list"
	opDeleteDocument  = "documents.delete"
	opAddTag          = "documents.add_tag"
	opRemoveTag       = "documents.remove_tag"
	opRenameDocument  = "documents.rename"
	opUpdateContent   = "documents.update_content"
	opCreateLink      = "documents.create_link"
	opDeleteLink      = "documents.delete_link"
	opCreateHighlight = "documents.create_highlight"
	opNoteHighlight   = "documents.note_highlight"
	opDeleteHighlight = "documents.delete_highlight"
	opPublish         = "documents.publish"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// reasonFor names the failure class of err; the HTTP layer maps the same classes to status codes.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return "not_found"
	case errors.Is(err, document.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, repository.ErrContentUpdatedByOtherWriter), errors.Is(err, store.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, document.ErrInvalidContentType):
		return "invalid_content_type"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, document.ErrInvalidID), errors.Is(err, document.ErrInvalidWorkspace):
		return "invalid_input"
	default:
		return "internal"
	}
}

type ServiceConfig struct {
	Store     store.Store
	Blobs     store.BlobStore
	Publisher notify.Publisher
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service runs every inbound operation in its own unit of work.
type Service struct {
	records   store.Store
	blobs     store.BlobStore
	publisher notify.Publisher
	clock     func() time.Time
	logger    *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Blobs == nil {
		return nil, newServiceError(opServiceNew, "missing_blob_store", errMissingBlobStore)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		records:   cfg.Store,
		blobs:     cfg.Blobs,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logger,
	}, nil
}

// withRepository runs mutate in a fresh unit of work, saves, then renders the returned documents.
// Nothing is written when mutate fails; events go out only after the save succeeded.
func (s *Service) withRepository(
	ctx context.Context,
	operation string,
	mutate func(*repository.DocumentRepository) ([]*document.Document, error),
) ([]Model, error) {
	var saved []repository.SaveEvent
	repo, err := repository.Open(repository.Config{
		Store:  s.records,
		Blobs:  s.blobs,
		Logger: s.logger,
		OnSaved: func(event repository.SaveEvent) {
			saved = append(saved, event)
		},
	})
	if err != nil {
		return nil, s.fail(operation, "repository_open_failed", err)
	}
	defer repo.Discard()

	touched, err := mutate(repo)
	if err != nil {
		return nil, s.fail(operation, reasonFor(err), err)
	}
	if err := repo.Save(ctx); err != nil {
		return nil, s.fail(operation, reasonFor(err), err)
	}

	models := make([]Model, 0, len(touched))
	for _, doc := range touched {
		if doc.Deleted() {
			continue
		}
		model, err := render(ctx, repo, doc)
		if err != nil {
			return nil, s.fail(operation, "render_failed", err)
		}
		models = append(models, model)
	}
	if err := repo.Close(ctx); err != nil {
		return nil, s.fail(operation, reasonFor(err), err)
	}

	s.publish(ctx, saved, touched)
	return models, nil
}

func (s *Service) single(ctx context.Context, operation string, mutate func(*repository.DocumentRepository) (*document.Document, error)) (Model, error) {
	models, err := s.withRepository(ctx, operation, func(repo *repository.DocumentRepository) ([]*document.Document, error) {
		doc, err := mutate(repo)
		if err != nil {
			return nil, err
		}
		return []*document.Document{doc}, nil
	})
	if err != nil {
		return Model{}, err
	}
	if len(models) == 0 {
		return Model{}, nil
	}
	return models[0], nil
}

// publish announces every written document, then marks the documents the caller touched as mutated.
func (s *Service) publish(ctx context.Context, saved []repository.SaveEvent, touched []*document.Document) {
	if s.publisher == nil || len(saved) == 0 {
		return
	}
	now := s.clock().UTC()
	written := make(map[document.ID]bool, len(saved))
	events := make([]notify.Event, 0, len(saved)+len(touched))
	for _, event := range saved {
		eventType := notify.EventDocumentSaved
		if event.Deleted {
			eventType = notify.EventDocumentDeleted
		}
		written[event.Document.ID()] = true
		events = append(events, newEvent(eventType, event.Document, now))
	}
	for _, doc := range touched {
		if written[doc.ID()] && !doc.Deleted() {
			events = append(events, newEvent(notify.EventDocumentMutated, doc, now))
		}
	}
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logError(opPublish, "publish_failed", err,
				zap.String("event_type", event.Type),
				zap.String("workspace", event.Workspace),
				zap.String("document_id", event.DocumentID))
		}
	}
}

func newEvent(eventType string, doc *document.Document, at time.Time) notify.Event {
	return notify.Event{
		Type:       eventType,
		Workspace:  doc.Workspace().String(),
		DocumentID: doc.ID().String(),
		Version:    doc.Version(),
		Timestamp:  at,
	}
}

func (s *Service) fail(operation, reason string, err error) error {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}
	s.logError(operation, reason, err)
	return newServiceError(operation, reason, err)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("documents service error", attrs...)
}
