package repository

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
)

// factory rebuilds document graphs from records. One factory serves one unit of work, so links
// and previews referenced from several records resolve to a single shared instance.
type factory struct {
	blobs    store.BlobStore
	resolve  document.NodeResolver
	links    map[document.ID]*document.Link
	previews map[document.ID]*document.LinkPreview
	nodes    map[document.NodeRef]document.Node
	handles  map[document.NodeRef]*document.NodeHandle
	building map[document.ID]struct{}
}

func newFactory(blobs store.BlobStore, resolve document.NodeResolver) *factory {
	return &factory{
		blobs:    blobs,
		resolve:  resolve,
		links:    make(map[document.ID]*document.Link),
		previews: make(map[document.ID]*document.LinkPreview),
		nodes:    make(map[document.NodeRef]document.Node),
		handles:  make(map[document.NodeRef]*document.NodeHandle),
		building: make(map[document.ID]struct{}),
	}
}

func (f *factory) inProgress(id document.ID) bool {
	_, ok := f.building[id]
	return ok
}

// build assembles the document preview first, then highlights, then links and backlinks at
// document and highlight scope. References into other aggregates become handles.
func (f *factory) build(record store.Record) (*document.Document, error) {
	id, err := document.ParseID(record.ID)
	if err != nil {
		return nil, err
	}
	workspace, err := document.NewWorkspace(record.Workspace)
	if err != nil {
		return nil, err
	}
	// build never resolves handles itself; the guard covers resolvers invoked while it runs.
	if f.inProgress(id) {
		return nil, fmt.Errorf("%w: %s", ErrCyclicRebuild, id)
	}
	f.building[id] = struct{}{}
	defer delete(f.building, id)

	preview, _ := f.preview(id, nil)
	preview.SetText(record.Title)

	contentID := record.ContentID
	content := document.NewDeferredContent(document.ContentType(record.ContentType), func(ctx context.Context) ([]byte, error) {
		return f.blobs.Get(ctx, contentID)
	})
	doc := document.Restore(document.State{
		ID:        id,
		Workspace: workspace,
		Preview:   preview,
		Tags:      record.Tags,
		Content:   content,
		Version:   record.Version,
	})
	f.register(doc)

	highlightKeys := sortedKeys(record.Highlights)
	for _, key := range highlightKeys {
		stored := record.Highlights[key]
		highlightPreview, _ := f.preview(document.ID(key), preview)
		if stored.LinkPreviewText != nil {
			highlightPreview.SetText(*stored.LinkPreviewText)
		} else {
			highlightPreview.ClearText()
		}
		var note *document.Content
		if stored.NoteBody != nil {
			note = document.NewContent(document.ContentTypeLive, []byte(*stored.NoteBody))
		}
		highlight := document.RestoreHighlight(doc, document.HighlightState{
			ID:       document.ID(key),
			Location: document.ContentLocation(stored.Location),
			Preview:  highlightPreview,
			Note:     note,
		})
		f.register(highlight)
	}

	f.attachLinks(doc, record.Links)
	f.attachBacklinks(doc, record.Backlinks)
	for _, key := range highlightKeys {
		highlight, ok := doc.GetHighlight(document.ID(key))
		if !ok {
			continue
		}
		f.attachLinks(highlight, record.Highlights[key].Links)
		f.attachBacklinks(highlight, record.Highlights[key].Backlinks)
	}
	return doc, nil
}

// adopt makes a document created in this unit of work known to later builds.
func (f *factory) adopt(doc *document.Document) {
	if _, ok := f.previews[doc.ID()]; !ok {
		f.previews[doc.ID()] = doc.LinkPreview()
	}
	f.register(doc)
	for _, highlight := range doc.Highlights() {
		if _, ok := f.previews[highlight.ID()]; !ok {
			f.previews[highlight.ID()] = highlight.LinkPreview()
		}
		f.register(highlight)
	}
}

func (f *factory) register(node document.Node) {
	ref := node.Ref()
	f.nodes[ref] = node
	if handle, ok := f.handles[ref]; ok {
		handle.Bind(node)
	}
}

// preview returns the shared preview for id, creating it when absent.
func (f *factory) preview(id document.ID, parent *document.LinkPreview) (*document.LinkPreview, bool) {
	if existing, ok := f.previews[id]; ok {
		return existing, false
	}
	created := document.NewLinkPreview(nil, parent)
	f.previews[id] = created
	return created, true
}

// endpoint returns the node a record points at and the preview the link should hold for it.
// Preview text from the record is only used if no better source has been seen yet.
func (f *factory) endpoint(endpoint document.Endpoint, workspace document.Workspace) (document.Node, *document.LinkPreview) {
	documentPreview, created := f.preview(endpoint.DocumentID, nil)
	if created {
		documentPreview.SetText(endpoint.DocumentPreviewText)
	}
	preview := documentPreview
	if endpoint.HighlightID != "" {
		highlightPreview, created := f.preview(endpoint.HighlightID, documentPreview)
		if created && endpoint.HighlightPreviewText != nil {
			highlightPreview.SetText(*endpoint.HighlightPreviewText)
		}
		preview = highlightPreview
	}

	ref := endpoint.Ref()
	if node, ok := f.nodes[ref]; ok {
		return node, preview
	}
	handle, ok := f.handles[ref]
	if !ok {
		handle = document.NewNodeHandle(ref, workspace, preview, f.resolve)
		f.handles[ref] = handle
	}
	return handle, preview
}

func (f *factory) attachLinks(owner document.Node, records map[string]store.LinkRecord) {
	for _, key := range sortedKeys(records) {
		id := document.ID(key)
		link, ok := f.links[id]
		if !ok {
			stored := records[key]
			target, targetPreview := f.endpoint(targetEndpoint(stored), owner.Workspace())
			link = document.RestoreLink(document.LinkState{
				ID:            id,
				Location:      document.ContentLocation(stored.Location),
				Source:        owner,
				SourcePreview: owner.LinkPreview(),
				Target:        target,
				TargetPreview: targetPreview,
			})
			f.links[id] = link
		}
		if link.Deleted() {
			continue
		}
		document.AttachLink(owner, link)
	}
}

func (f *factory) attachBacklinks(owner document.Node, records map[string]store.BacklinkRecord) {
	for _, key := range sortedKeys(records) {
		id := document.ID(key)
		link, ok := f.links[id]
		if !ok {
			stored := records[key]
			source, sourcePreview := f.endpoint(sourceEndpoint(stored), owner.Workspace())
			link = document.RestoreLink(document.LinkState{
				ID:            id,
				Location:      document.ContentLocation(stored.Location),
				Source:        source,
				SourcePreview: sourcePreview,
				Target:        owner,
				TargetPreview: owner.LinkPreview(),
			})
			f.links[id] = link
		}
		if link.Deleted() {
			continue
		}
		document.AttachBacklink(owner, link)
	}
}
