package document

import "context"

// Highlight is a located span inside a document. With a note attached it can source links.
type Highlight struct {
	id       ID
	location ContentLocation
	parent   Highlightable
	preview  *LinkPreview
	node     nodeLinks
	note     *Content
	deleted  bool
}

// CreateHighlight allocates a highlight and registers it on parent. Its preview starts without
// text and chains to the parent's preview.
func CreateHighlight(parent Highlightable, location ContentLocation) (*Highlight, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	highlight := &Highlight{
		id:       id,
		location: location,
		parent:   parent,
		preview:  NewLinkPreview(nil, parent.LinkPreview()),
	}
	parent.registerHighlight(highlight)
	return highlight, nil
}

type HighlightState struct {
	ID       ID
	Location ContentLocation
	Preview  *LinkPreview
	Note     *Content
}

// RestoreHighlight rebuilds a persisted highlight on parent. Links are attached separately.
func RestoreHighlight(parent Highlightable, state HighlightState) *Highlight {
	highlight := &Highlight{
		id:       state.ID,
		location: state.Location,
		parent:   parent,
		preview:  state.Preview,
		note:     state.Note,
	}
	parent.registerHighlight(highlight)
	return highlight
}

func (h *Highlight) ID() ID {
	return h.id
}

func (h *Highlight) Location() ContentLocation {
	return h.location
}

func (h *Highlight) Parent() Highlightable {
	return h.parent
}

func (h *Highlight) Ref() NodeRef {
	return HighlightRef(h.parent.Ref().DocumentID, h.id)
}

func (h *Highlight) Workspace() Workspace {
	return h.parent.Workspace()
}

func (h *Highlight) LinkPreview() *LinkPreview {
	return h.preview
}

func (h *Highlight) Note() *Content {
	return h.note
}

func (h *Highlight) HasNote() bool {
	return h.note != nil
}

func (h *Highlight) Deleted() bool {
	return h.deleted || h.parent.Deleted()
}

func (h *Highlight) Links() []*Link {
	return h.node.Links()
}

func (h *Highlight) Backlinks() []*Link {
	return h.node.Backlinks()
}

func (h *Highlight) GetLink(id ID) (*Link, bool) {
	return h.node.GetLink(id)
}

func (h *Highlight) GetBacklink(id ID) (*Link, bool) {
	return h.node.GetBacklink(id)
}

func (h *Highlight) Link(ctx context.Context, location ContentLocation, target Node) (*Link, error) {
	return NewLink(ctx, h, location, target)
}

// MakeNote replaces the note and the outgoing links. The note body becomes the preview text.
// A rejected note or link leaves the highlight unchanged.
func (h *Highlight) MakeNote(ctx context.Context, note *Content, links []*Link) error {
	body, err := noteBody(note)
	if err != nil {
		return err
	}
	if err := checkLinks(h, links); err != nil {
		return err
	}
	if err := h.node.deleteLinks(ctx); err != nil {
		return err
	}
	h.note = note
	h.preview.SetText(string(body))
	for _, link := range links {
		if err := link.complete(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

func noteBody(note *Content) ([]byte, error) {
	if note == nil {
		return nil, ErrMissingContent
	}
	if !note.Type().IsLive() {
		return nil, ErrNoteNotLive
	}
	body, ok := note.LoadedBody()
	if !ok {
		return nil, ErrMissingNoteBody
	}
	return body, nil
}

// DeleteNote removes the note, every outgoing link and the preview text.
func (h *Highlight) DeleteNote(ctx context.Context) error {
	if err := h.node.deleteLinks(ctx); err != nil {
		return err
	}
	h.note = nil
	h.preview.ClearText()
	return nil
}

// Delete removes the highlight from its parent. Links pointing at it stay behind, broken.
func (h *Highlight) Delete(ctx context.Context) error {
	if h.deleted {
		return nil
	}
	if err := h.node.deleteLinks(ctx); err != nil {
		return err
	}
	h.deleted = true
	h.parent.unregisterHighlight(h)
	return nil
}

func (h *Highlight) registerLink(_ context.Context, link *Link) error {
	if h.note == nil {
		return ErrHighlightWithoutNote
	}
	h.node.links.Add(link)
	return nil
}

func (h *Highlight) unregisterLink(_ context.Context, link *Link) error {
	h.node.links.Remove(link.ID())
	return nil
}

func (h *Highlight) registerBacklink(_ context.Context, link *Link) error {
	h.node.backlinks.Add(link)
	return nil
}

func (h *Highlight) unregisterBacklink(_ context.Context, link *Link) error {
	h.node.backlinks.Remove(link.ID())
	return nil
}

func (h *Highlight) attachment() *nodeLinks {
	return &h.node
}
