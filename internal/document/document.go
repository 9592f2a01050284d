package document

import (
	"context"
	"fmt"
	"strings"
)

// Document is the aggregate root. It owns its highlights and the links it sources, and holds
// non-owning backlinks to links sourced elsewhere.
type Document struct {
	id         ID
	workspace  Workspace
	tags       []string
	content    *Content
	preview    *LinkPreview
	node       nodeLinks
	highlights Entities[*Highlight]
	version    int64
	deleted    bool
}

// PreparedHighlight describes a highlight to create together with its document.
type PreparedHighlight struct {
	Location ContentLocation
	Note     *Content
	Links    []*Link
}

// Create allocates a document and completes the prepared links and highlights against it.
func Create(
	ctx context.Context,
	workspace Workspace,
	title string,
	tags []string,
	content *Content,
	links []*Link,
	highlights []PreparedHighlight,
) (*Document, error) {
	if workspace == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidWorkspace)
	}
	if content == nil {
		return nil, ErrMissingContent
	}
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	doc := &Document{
		id:        id,
		workspace: workspace,
		tags:      normalizeTags(tags),
		content:   content,
		preview:   NewLinkPreview(&title, nil),
	}
	if err := doc.checkChildren(links, highlights); err != nil {
		return nil, err
	}
	if err := doc.completeChildren(ctx, links, highlights); err != nil {
		return nil, err
	}
	return doc, nil
}

// State is the persisted scalar part of a document.
type State struct {
	ID        ID
	Workspace Workspace
	Preview   *LinkPreview
	Tags      []string
	Content   *Content
	Version   int64
}

// Restore rebuilds a persisted document without children; highlights and links are attached afterwards.
func Restore(state State) *Document {
	return &Document{
		id:        state.ID,
		workspace: state.Workspace,
		tags:      normalizeTags(state.Tags),
		content:   state.Content,
		preview:   state.Preview,
		version:   state.Version,
	}
}

func (d *Document) ID() ID {
	return d.id
}

func (d *Document) Workspace() Workspace {
	return d.workspace
}

func (d *Document) Ref() NodeRef {
	return DocumentRef(d.id)
}

func (d *Document) Title() string {
	title, _ := d.preview.Text()
	return title
}

func (d *Document) Tags() []string {
	return append([]string(nil), d.tags...)
}

func (d *Document) Content() *Content {
	return d.content
}

func (d *Document) LinkPreview() *LinkPreview {
	return d.preview
}

func (d *Document) Version() int64 {
	return d.version
}

// IncrementVersion advances the version for a content write and returns the new value.
func (d *Document) IncrementVersion() int64 {
	d.version++
	return d.version
}

func (d *Document) Deleted() bool {
	return d.deleted
}

func (d *Document) Links() []*Link {
	return d.node.Links()
}

func (d *Document) Backlinks() []*Link {
	return d.node.Backlinks()
}

func (d *Document) GetLink(id ID) (*Link, bool) {
	return d.node.GetLink(id)
}

func (d *Document) GetBacklink(id ID) (*Link, bool) {
	return d.node.GetBacklink(id)
}

func (d *Document) Highlights() []*Highlight {
	return d.highlights.All()
}

func (d *Document) GetHighlight(id ID) (*Highlight, bool) {
	return d.highlights.Get(id)
}

func (d *Document) Link(ctx context.Context, location ContentLocation, target Node) (*Link, error) {
	return NewLink(ctx, d, location, target)
}

func (d *Document) Highlight(location ContentLocation) (*Highlight, error) {
	return CreateHighlight(d, location)
}

// Rename changes the title, which is also the preview text every link to this document shows.
func (d *Document) Rename(title string) {
	d.preview.SetText(title)
}

func (d *Document) Tag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	for _, existing := range d.tags {
		if existing == tag {
			return
		}
	}
	d.tags = append(d.tags, tag)
}

func (d *Document) Untag(tag string) {
	tag = strings.TrimSpace(tag)
	for index, existing := range d.tags {
		if existing == tag {
			d.tags = append(d.tags[:index], d.tags[index+1:]...)
			return
		}
	}
}

// UpdateContent drops the current links and highlights and replaces them with the given sets.
// Every replacement is validated first, so a rejected update leaves the document unchanged.
func (d *Document) UpdateContent(ctx context.Context, content *Content, links []*Link, highlights []PreparedHighlight) error {
	if content == nil {
		return ErrMissingContent
	}
	if err := d.checkChildren(links, highlights); err != nil {
		return err
	}
	if err := d.node.deleteLinks(ctx); err != nil {
		return err
	}
	for _, highlight := range d.highlights.All() {
		if err := highlight.Delete(ctx); err != nil {
			return err
		}
	}
	d.content = content
	return d.completeChildren(ctx, links, highlights)
}

// Delete marks the document deleted and cascades to its links and highlights.
// Links other documents hold to it are left in place and become broken.
func (d *Document) Delete(ctx context.Context) error {
	if d.deleted {
		return nil
	}
	d.deleted = true
	if err := d.node.deleteLinks(ctx); err != nil {
		return err
	}
	for _, highlight := range d.highlights.All() {
		if err := highlight.Delete(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) checkChildren(links []*Link, highlights []PreparedHighlight) error {
	groups := [][]*Link{links}
	for _, prepared := range highlights {
		if prepared.Note == nil {
			if len(prepared.Links) > 0 {
				return ErrHighlightWithoutNote
			}
			continue
		}
		if _, err := noteBody(prepared.Note); err != nil {
			return err
		}
		groups = append(groups, prepared.Links)
	}
	return checkLinks(d, groups...)
}

func (d *Document) completeChildren(ctx context.Context, links []*Link, highlights []PreparedHighlight) error {
	for _, link := range links {
		if err := link.complete(ctx, d); err != nil {
			return err
		}
	}
	for _, prepared := range highlights {
		if prepared.Note == nil && len(prepared.Links) > 0 {
			return ErrHighlightWithoutNote
		}
		highlight, err := CreateHighlight(d, prepared.Location)
		if err != nil {
			return err
		}
		if prepared.Note == nil {
			continue
		}
		if err := highlight.MakeNote(ctx, prepared.Note, prepared.Links); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) registerLink(_ context.Context, link *Link) error {
	d.node.links.Add(link)
	return nil
}

func (d *Document) unregisterLink(_ context.Context, link *Link) error {
	d.node.links.Remove(link.ID())
	return nil
}

func (d *Document) registerBacklink(_ context.Context, link *Link) error {
	d.node.backlinks.Add(link)
	return nil
}

func (d *Document) unregisterBacklink(_ context.Context, link *Link) error {
	d.node.backlinks.Remove(link.ID())
	return nil
}

func (d *Document) registerHighlight(highlight *Highlight) {
	d.highlights.Add(highlight)
}

func (d *Document) unregisterHighlight(highlight *Highlight) {
	d.highlights.Remove(highlight.ID())
}

func (d *Document) attachment() *nodeLinks {
	return &d.node
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}
