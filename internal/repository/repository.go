package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
)

const (
	writePut    = "put"
	writeUpdate = "update"
	writeDelete = "delete"
)

// SaveEvent describes one persisted document.
type SaveEvent struct {
	Document *document.Document
	Deleted  bool
}

// Config wires a repository to its collaborators.
type Config struct {
	Store   store.Store
	Blobs   store.BlobStore
	Logger  *zap.Logger
	OnSaved func(SaveEvent)
}

type entry struct {
	doc           *document.Document
	contentID     string
	baseline      *store.Record
	loadedContent *document.Content
}

func (e *entry) contentChanged() bool {
	return e.doc.Content() != e.loadedContent
}

// DocumentRepository is a unit of work over document aggregates. It keeps one instance per
// document, loads cross-aggregate references lazily, and writes back only what changed.
// A repository is not safe for concurrent use; open one per request.
type DocumentRepository struct {
	store   store.Store
	blobs   store.BlobStore
	logger  *zap.Logger
	onSaved func(SaveEvent)

	factory *factory
	entries map[store.Key]*entry
	order   []store.Key
	closed  bool
}

// Open starts a unit of work.
func Open(cfg Config) (*DocumentRepository, error) {
	if cfg.Store == nil {
		return nil, ErrMissingStore
	}
	if cfg.Blobs == nil {
		return nil, ErrMissingBlobStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	repo := &DocumentRepository{
		store:   cfg.Store,
		blobs:   cfg.Blobs,
		logger:  logger,
		onSaved: cfg.OnSaved,
		entries: make(map[store.Key]*entry),
	}
	repo.factory = newFactory(cfg.Blobs, repo.resolveNode)
	return repo, nil
}

// Use runs fn inside a unit of work and saves when fn succeeds. On error nothing is written.
func Use(ctx context.Context, cfg Config, fn func(*DocumentRepository) error) error {
	repo, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := fn(repo); err != nil {
		repo.Discard()
		return err
	}
	return repo.Close(ctx)
}

// SetOnSaved replaces the hook invoked after every persisted document.
func (r *DocumentRepository) SetOnSaved(onSaved func(SaveEvent)) {
	r.onSaved = onSaved
}

// Get returns the document with id, or nil when it does not exist.
func (r *DocumentRepository) Get(ctx context.Context, id document.ID, workspace document.Workspace) (*document.Document, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}
	key := store.Key{Workspace: workspace.String(), ID: id.String()}
	if existing, ok := r.entries[key]; ok {
		return existing.doc, nil
	}
	// Guards resolvers that reach back into Get while the factory is still building id.
	if r.factory.inProgress(id) {
		return nil, fmt.Errorf("%w: %s", ErrCyclicRebuild, id)
	}
	record, found, err := r.store.GetItem(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return r.track(record)
}

// GetAllInWorkspace loads every document of workspace. It refuses to run once any document
// of the workspace was loaded individually, since the stored records may be older than those.
func (r *DocumentRepository) GetAllInWorkspace(ctx context.Context, workspace document.Workspace) ([]*document.Document, error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}
	for key := range r.entries {
		if key.Workspace == workspace.String() {
			return nil, fmt.Errorf("%w: %s", ErrWorkspacePartiallyLoaded, workspace)
		}
	}
	records, err := r.store.QueryItems(ctx, workspace.String())
	if err != nil {
		return nil, fmt.Errorf("query workspace %s: %w", workspace, err)
	}
	docs := make([]*document.Document, 0, len(records))
	for _, record := range records {
		if existing, ok := r.entries[record.Key()]; ok {
			docs = append(docs, existing.doc)
			continue
		}
		doc, err := r.track(record)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Add tracks a document created in this unit of work. It is written on save.
func (r *DocumentRepository) Add(doc *document.Document) error {
	if r.closed {
		return ErrRepositoryClosed
	}
	key := keyOf(doc)
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, key)
	}
	contentID, err := document.NewID()
	if err != nil {
		return err
	}
	r.remember(key, &entry{doc: doc, contentID: contentID.String()})
	r.factory.adopt(doc)
	return nil
}

// ContentURL returns a client-fetchable location of the document body as last saved.
func (r *DocumentRepository) ContentURL(ctx context.Context, doc *document.Document) (string, error) {
	tracked, ok := r.entries[keyOf(doc)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDocument, keyOf(doc))
	}
	return r.blobs.URL(ctx, tracked.contentID)
}

// Save writes every changed document. Documents whose stored link previews went stale
// are written before the document that changed them.
func (r *DocumentRepository) Save(ctx context.Context) error {
	if r.closed {
		return ErrRepositoryClosed
	}
	pending, err := r.collectPending(ctx)
	if err != nil {
		return err
	}
	for _, tracked := range pending {
		if err := r.persist(ctx, tracked); err != nil {
			return err
		}
	}
	return nil
}

// Close saves and ends the unit of work. Closing twice is a no-op.
func (r *DocumentRepository) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	err := r.Save(ctx)
	r.closed = true
	return err
}

// Discard ends the unit of work without writing.
func (r *DocumentRepository) Discard() {
	r.closed = true
}

func (r *DocumentRepository) track(record store.Record) (*document.Document, error) {
	doc, err := r.factory.build(record)
	if err != nil {
		return nil, err
	}
	baseline := record
	r.remember(record.Key(), &entry{
		doc:           doc,
		contentID:     record.ContentID,
		baseline:      &baseline,
		loadedContent: doc.Content(),
	})
	return doc, nil
}

func (r *DocumentRepository) remember(key store.Key, tracked *entry) {
	r.entries[key] = tracked
	r.order = append(r.order, key)
}

func (r *DocumentRepository) resolveNode(ctx context.Context, ref document.NodeRef, workspace document.Workspace) (document.Node, error) {
	doc, err := r.Get(ctx, ref.DocumentID, workspace)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, ref)
	}
	if !ref.IsHighlight() {
		return doc, nil
	}
	highlight, ok := doc.GetHighlight(ref.HighlightID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrHighlightNotFound, ref)
	}
	return highlight, nil
}

// collectPending orders dirty documents after the documents whose previews they invalidate.
// Dependents may be loaded here, so the entry list is walked by index.
func (r *DocumentRepository) collectPending(ctx context.Context) ([]*entry, error) {
	var pending []*entry
	seen := make(map[store.Key]bool)
	add := func(tracked *entry) {
		key := keyOf(tracked.doc)
		if seen[key] {
			return
		}
		seen[key] = true
		pending = append(pending, tracked)
	}

	for index := 0; index < len(r.order); index++ {
		tracked := r.entries[r.order[index]]
		current := serialize(tracked.doc, tracked.contentID)
		if !r.dirty(tracked, current) {
			continue
		}
		dependents, err := r.dependents(ctx, tracked, current)
		if err != nil {
			return nil, err
		}
		for _, dependent := range dependents {
			add(dependent)
		}
		add(tracked)
	}
	return pending, nil
}

func (r *DocumentRepository) dirty(tracked *entry, current store.Record) bool {
	switch {
	case tracked.baseline == nil:
		return !tracked.doc.Deleted()
	case tracked.doc.Deleted():
		return true
	case tracked.contentChanged():
		return true
	default:
		return !store.Diff(*tracked.baseline, current).Empty()
	}
}

// dependents returns the documents on the other end of every link whose stored preview
// text changed: a renamed document, or a highlight whose note changed.
func (r *DocumentRepository) dependents(ctx context.Context, tracked *entry, current store.Record) ([]*entry, error) {
	if tracked.baseline == nil || tracked.doc.Deleted() {
		return nil, nil
	}
	var refs []document.NodeRef
	if tracked.baseline.Title != current.Title {
		refs = appendEndpoints(refs, tracked.doc.Links(), tracked.doc.Backlinks())
		for _, highlight := range tracked.doc.Highlights() {
			refs = appendEndpoints(refs, highlight.Links(), highlight.Backlinks())
		}
	}
	for _, highlight := range tracked.doc.Highlights() {
		previous, ok := tracked.baseline.Highlights[highlight.ID().String()]
		if !ok || sameText(previous.LinkPreviewText, highlight.LinkPreview().OptionalText()) {
			continue
		}
		refs = appendEndpoints(refs, highlight.Links(), highlight.Backlinks())
	}

	var dependents []*entry
	seen := make(map[document.ID]bool)
	for _, ref := range refs {
		if ref.DocumentID == tracked.doc.ID() || seen[ref.DocumentID] {
			continue
		}
		seen[ref.DocumentID] = true
		doc, err := r.Get(ctx, ref.DocumentID, tracked.doc.Workspace())
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		dependents = append(dependents, r.entries[keyOf(doc)])
	}
	return dependents, nil
}

func appendEndpoints(refs []document.NodeRef, links, backlinks []*document.Link) []document.NodeRef {
	for _, link := range links {
		refs = append(refs, link.Target().Ref())
	}
	for _, link := range backlinks {
		refs = append(refs, link.Source().Ref())
	}
	return refs
}

func (r *DocumentRepository) persist(ctx context.Context, tracked *entry) error {
	doc := tracked.doc
	key := keyOf(doc)

	if doc.Deleted() {
		if tracked.baseline == nil {
			return nil
		}
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete document %s: %w", key, err)
		}
		if err := r.blobs.Delete(ctx, tracked.contentID); err != nil {
			r.logger.Error("document deleted but body delete failed, blob orphaned",
				zap.String("document_id", key.ID),
				zap.String("workspace", key.Workspace),
				zap.String("content_id", tracked.contentID),
				zap.Error(err))
		}
		tracked.baseline = nil
		r.logWrite(writeDelete, key, doc.Version())
		r.notify(SaveEvent{Document: doc, Deleted: true})
		return nil
	}

	if tracked.baseline != nil && !tracked.contentChanged() {
		current := serialize(doc, tracked.contentID)
		if store.Diff(*tracked.baseline, current).Empty() {
			return nil
		}
		if err := r.store.Update(ctx, key, current, *tracked.baseline); err != nil {
			return fmt.Errorf("update document %s: %w", key, err)
		}
		tracked.baseline = &current
		r.logWrite(writeUpdate, key, doc.Version())
		r.notify(SaveEvent{Document: doc})
		return nil
	}

	body, err := doc.Content().Body(ctx)
	if err != nil {
		return fmt.Errorf("load body of %s: %w", key, err)
	}
	version := doc.IncrementVersion()
	current := serialize(doc, tracked.contentID)
	if err := r.store.Put(ctx, key, current, version-1); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("%w: %s: %w", ErrContentUpdatedByOtherWriter, key, err)
		}
		return fmt.Errorf("put document %s: %w", key, err)
	}
	tracked.baseline = &current
	if err := r.blobs.Put(ctx, tracked.contentID, body); err != nil {
		r.logger.Error("document record written but body write failed",
			zap.String("document_id", key.ID),
			zap.String("workspace", key.Workspace),
			zap.String("content_id", tracked.contentID),
			zap.Int64("version", version),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrBlobWrite, key, err)
	}
	tracked.loadedContent = doc.Content()
	r.logWrite(writePut, key, version)
	r.notify(SaveEvent{Document: doc})
	return nil
}

func (r *DocumentRepository) logWrite(write string, key store.Key, version int64) {
	r.logger.Debug("document persisted",
		zap.String("write", write),
		zap.String("document_id", key.ID),
		zap.String("workspace", key.Workspace),
		zap.Int64("version", version))
}

func (r *DocumentRepository) notify(event SaveEvent) {
	if r.onSaved != nil {
		r.onSaved(event)
	}
}

func keyOf(doc *document.Document) store.Key {
	return store.Key{Workspace: doc.Workspace().String(), ID: doc.ID().String()}
}
