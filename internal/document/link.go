package document

import (
	"context"
	"errors"
	"fmt"
)

// Link is a directed, located edge from a source node to a target node. It is owned by its
// source; the target only keeps a back-reference.
type Link struct {
	id            ID
	location      ContentLocation
	source        Node
	sourcePreview *LinkPreview
	target        Node
	targetPreview *LinkPreview
	deleted       bool
}

// PrepareLink builds a link that has a target but no source yet. It becomes live once the
// owning document or highlight completes it.
func PrepareLink(location ContentLocation, target Node) (*Link, error) {
	if target == nil {
		return nil, ErrMissingTarget
	}
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	return &Link{id: id, location: location, target: target}, nil
}

// LinkState is the persisted shape of a link, used to rebuild it without re-running policies.
type LinkState struct {
	ID            ID
	Location      ContentLocation
	Source        Node
	SourcePreview *LinkPreview
	Target        Node
	TargetPreview *LinkPreview
}

func RestoreLink(state LinkState) *Link {
	return &Link{
		id:            state.ID,
		location:      state.Location,
		source:        state.Source,
		sourcePreview: state.SourcePreview,
		target:        state.Target,
		targetPreview: state.TargetPreview,
	}
}

// NewLink prepares and completes a link in one step.
func NewLink(ctx context.Context, source Node, location ContentLocation, target Node) (*Link, error) {
	link, err := PrepareLink(location, target)
	if err != nil {
		return nil, err
	}
	if err := link.complete(ctx, source); err != nil {
		return nil, err
	}
	return link, nil
}

// check applies the link policies for source without changing anything.
func (l *Link) check(source Node) error {
	if l.source != nil {
		return ErrLinkCompleted
	}
	if l.target == nil {
		return ErrMissingTarget
	}
	if source.Workspace() != l.target.Workspace() {
		return fmt.Errorf("%w: %s in %q, %s in %q", ErrCrossWorkspaceLink,
			source.Ref(), source.Workspace(), l.target.Ref(), l.target.Workspace())
	}
	return nil
}

// checkLinks validates prepared links for source before a replacement drops the current ones.
// A link listed twice would fail on its second completion, so it is rejected here too.
func checkLinks(source Node, groups ...[]*Link) error {
	seen := make(map[ID]struct{})
	for _, links := range groups {
		for _, link := range links {
			if link == nil {
				return ErrMissingTarget
			}
			if _, ok := seen[link.id]; ok {
				return ErrLinkCompleted
			}
			seen[link.id] = struct{}{}
			if err := link.check(source); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Link) complete(ctx context.Context, source Node) error {
	if err := l.check(source); err != nil {
		return err
	}

	l.source = source
	if err := source.registerLink(ctx, l); err != nil {
		l.source = nil
		return err
	}
	if err := l.target.registerBacklink(ctx, l); err != nil {
		if rollbackErr := source.unregisterLink(ctx, l); rollbackErr != nil {
			err = errors.Join(err, rollbackErr)
		}
		l.source = nil
		return err
	}
	l.sourcePreview = source.LinkPreview()
	l.targetPreview = l.target.LinkPreview()
	return nil
}

// Delete unregisters the link from both ends. Deleting twice is a no-op.
func (l *Link) Delete(ctx context.Context) error {
	if l.deleted {
		return nil
	}
	l.deleted = true
	if l.source != nil {
		if err := l.source.unregisterLink(ctx, l); err != nil {
			return err
		}
	}
	if l.target != nil {
		err := l.target.unregisterBacklink(ctx, l)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (l *Link) ID() ID {
	return l.id
}

func (l *Link) Location() ContentLocation {
	return l.location
}

func (l *Link) Source() Node {
	return l.source
}

func (l *Link) SourcePreview() *LinkPreview {
	return l.sourcePreview
}

func (l *Link) Target() Node {
	return l.target
}

func (l *Link) TargetPreview() *LinkPreview {
	return l.targetPreview
}

func (l *Link) Completed() bool {
	return l.source != nil
}

// Deleted is true once the link was deleted or its source was.
func (l *Link) Deleted() bool {
	return l.deleted || (l.source != nil && l.source.Deleted())
}

// Broken reports whether the target is gone. Targets in other aggregates are loaded to decide;
// a target that cannot be loaded counts as gone.
func (l *Link) Broken(ctx context.Context) bool {
	if l.target == nil {
		return true
	}
	target, err := Resolve(ctx, l.target)
	if err != nil {
		return true
	}
	return target.Deleted()
}
