package document

import "context"

// Node is the link capability shared by documents, highlights and handles to either.
// The register/unregister methods are driven by the Link lifecycle only.
type Node interface {
	Ref() NodeRef
	Workspace() Workspace
	LinkPreview() *LinkPreview
	Deleted() bool

	registerLink(ctx context.Context, link *Link) error
	unregisterLink(ctx context.Context, link *Link) error
	registerBacklink(ctx context.Context, link *Link) error
	unregisterBacklink(ctx context.Context, link *Link) error
	attachment() *nodeLinks
}

// LinkSource is a loaded node that owns outgoing links.
type LinkSource interface {
	Node
	Links() []*Link
	GetLink(id ID) (*Link, bool)
	Link(ctx context.Context, location ContentLocation, target Node) (*Link, error)
}

// LinkTarget is a loaded node that links may point at.
type LinkTarget interface {
	Node
	Backlinks() []*Link
	GetBacklink(id ID) (*Link, bool)
}

// Highlightable is a container of highlights.
type Highlightable interface {
	Node
	Highlights() []*Highlight
	GetHighlight(id ID) (*Highlight, bool)

	registerHighlight(highlight *Highlight)
	unregisterHighlight(highlight *Highlight)
}

// nodeLinks is the state documents and highlights hold to act as link endpoints.
type nodeLinks struct {
	links     Entities[*Link]
	backlinks Entities[*Link]
}

func (n *nodeLinks) Links() []*Link {
	return n.links.All()
}

func (n *nodeLinks) Backlinks() []*Link {
	return n.backlinks.All()
}

func (n *nodeLinks) GetLink(id ID) (*Link, bool) {
	return n.links.Get(id)
}

func (n *nodeLinks) GetBacklink(id ID) (*Link, bool) {
	return n.backlinks.Get(id)
}

func (n *nodeLinks) deleteLinks(ctx context.Context) error {
	for _, link := range n.links.All() {
		if err := link.Delete(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AttachLink places an already persisted link on owner's outgoing side without
// re-running creation policies. Handles have no link state and are ignored.
func AttachLink(owner Node, link *Link) {
	if state := owner.attachment(); state != nil {
		state.links.Add(link)
	}
}

// AttachBacklink is the target-side counterpart of AttachLink.
func AttachBacklink(owner Node, link *Link) {
	if state := owner.attachment(); state != nil {
		state.backlinks.Add(link)
	}
}

// Resolve returns the loaded node behind n, fetching it if n is a handle.
func Resolve(ctx context.Context, n Node) (Node, error) {
	if handle, ok := n.(*NodeHandle); ok {
		return handle.Resolve(ctx)
	}
	return n, nil
}
