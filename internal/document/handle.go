package document

import "context"

// NodeResolver loads the node a reference points at. It reports ErrNotFound for missing nodes.
type NodeResolver func(ctx context.Context, ref NodeRef, workspace Workspace) (Node, error)

// NodeHandle stands in for a node of another aggregate. It answers from what the stored record
// already knows (reference, workspace, preview) and resolves the real node only when a
// link has to be registered or unregistered on it.
type NodeHandle struct {
	ref       NodeRef
	workspace Workspace
	preview   *LinkPreview
	node      *Deferred[Node]
}

func NewNodeHandle(ref NodeRef, workspace Workspace, preview *LinkPreview, resolve NodeResolver) *NodeHandle {
	return &NodeHandle{
		ref:       ref,
		workspace: workspace,
		preview:   preview,
		node: Defer(func(ctx context.Context) (Node, error) {
			return resolve(ctx, ref, workspace)
		}),
	}
}

func (h *NodeHandle) Ref() NodeRef {
	return h.ref
}

func (h *NodeHandle) Workspace() Workspace {
	return h.workspace
}

func (h *NodeHandle) LinkPreview() *LinkPreview {
	return h.preview
}

// Deleted reports the state of the resolved node; an unresolved handle is assumed live.
func (h *NodeHandle) Deleted() bool {
	node, ok := h.node.Peek()
	return ok && node.Deleted()
}

func (h *NodeHandle) Resolve(ctx context.Context) (Node, error) {
	return h.node.Get(ctx)
}

// Bind points the handle at an already loaded node.
func (h *NodeHandle) Bind(node Node) {
	h.node.Bind(node)
}

func (h *NodeHandle) registerLink(ctx context.Context, link *Link) error {
	node, err := h.Resolve(ctx)
	if err != nil {
		return err
	}
	return node.registerLink(ctx, link)
}

func (h *NodeHandle) unregisterLink(ctx context.Context, link *Link) error {
	node, err := h.Resolve(ctx)
	if err != nil {
		return err
	}
	return node.unregisterLink(ctx, link)
}

func (h *NodeHandle) registerBacklink(ctx context.Context, link *Link) error {
	node, err := h.Resolve(ctx)
	if err != nil {
		return err
	}
	return node.registerBacklink(ctx, link)
}

func (h *NodeHandle) unregisterBacklink(ctx context.Context, link *Link) error {
	node, err := h.Resolve(ctx)
	if err != nil {
		return err
	}
	return node.unregisterBacklink(ctx, link)
}

func (h *NodeHandle) attachment() *nodeLinks {
	return nil
}
