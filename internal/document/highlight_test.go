package document

import (
	"context"
	"errors"
	"testing"
)

func TestHighlightLinksRequireNote(t *testing.T) {
	ctx := context.Background()
	alpha := mustCreateDocument(t, testWorkspace, "Alpha")
	beta := mustCreateDocument(t, testWorkspace, "Beta")

	highlight, err := alpha.Highlight("3:9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := highlight.LinkPreview().Text(); ok {
		t.Fatalf("expected new highlight preview without text")
	}
	if highlight.LinkPreview().Parent() != alpha.LinkPreview() {
		t.Fatalf("expected highlight preview to chain to the document preview")
	}

	if _, err := highlight.Link(ctx, "0:1", beta); !errors.Is(err, ErrHighlightWithoutNote) {
		t.Fatalf("expected highlight without note policy violation, got %v", err)
	}
	if len(beta.Backlinks()) != 0 {
		t.Fatalf("expected rejected link to leave target untouched")
	}

	link := mustPrepareLink(t, "0:1", beta)
	if err := highlight.MakeNote(ctx, NewContent(ContentTypeLive, []byte("why this matters")), []*Link{link}); err != nil {
		t.Fatalf("unexpected error making note: %v", err)
	}
	if text, _ := highlight.LinkPreview().Text(); text != "why this matters" {
		t.Fatalf("unexpected highlight preview %q", text)
	}
	if !containsLink(highlight.Links(), link) || !containsLink(beta.Backlinks(), link) {
		t.Fatalf("expected note link on both ends")
	}
	if got := link.Source().Ref(); got != HighlightRef(alpha.ID(), highlight.ID()) {
		t.Fatalf("unexpected source ref %s", got)
	}

	if err := highlight.DeleteNote(ctx); err != nil {
		t.Fatalf("unexpected error deleting note: %v", err)
	}
	if highlight.HasNote() || len(highlight.Links()) != 0 || len(beta.Backlinks()) != 0 {
		t.Fatalf("expected note removal to drop outgoing links")
	}
	if _, ok := highlight.LinkPreview().Text(); ok {
		t.Fatalf("expected preview text cleared")
	}
}

func TestHighlightNoteMustBeLive(t *testing.T) {
	alpha := mustCreateDocument(t, testWorkspace, "Alpha")
	highlight, err := alpha.Highlight("1:2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = highlight.MakeNote(context.Background(), NewContent(ContentTypePDF, []byte("%PDF")), nil)
	if !errors.Is(err, ErrNoteNotLive) {
		t.Fatalf("expected live note policy violation, got %v", err)
	}
	if highlight.HasNote() {
		t.Fatalf("expected rejected note not to be stored")
	}
}

func TestHighlightDeleteLeavesIncomingLinksBroken(t *testing.T) {
	ctx := context.Background()
	alpha := mustCreateDocument(t, testWorkspace, "Alpha")
	beta := mustCreateDocument(t, testWorkspace, "Beta")
	highlight := mustNotedHighlight(t, alpha, "0:4", "note")
	outgoing := mustLink(t, highlight, "0:1", beta)
	incoming := mustLink(t, beta, "2:3", highlight)

	if err := highlight.Delete(ctx); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, ok := alpha.GetHighlight(highlight.ID()); ok {
		t.Fatalf("expected highlight removed from its parent")
	}
	if !outgoing.Deleted() || containsLink(beta.Backlinks(), outgoing) {
		t.Fatalf("expected outgoing link deleted")
	}
	if incoming.Deleted() || !incoming.Broken(ctx) {
		t.Fatalf("expected incoming link kept and broken")
	}
}

func TestHighlightDeletedWithParent(t *testing.T) {
	alpha := mustCreateDocument(t, testWorkspace, "Alpha")
	highlight := mustNotedHighlight(t, alpha, "0:4", "note")

	alpha.deleted = true
	if !highlight.Deleted() {
		t.Fatalf("expected highlight to report deleted with its parent")
	}
}

func TestRejectedNoteLeavesHighlightUnchanged(t *testing.T) {
	ctx := context.Background()
	alpha := mustCreateDocument(t, testWorkspace, "Alpha")
	beta := mustCreateDocument(t, testWorkspace, "Beta")
	foreign := mustCreateDocument(t, Workspace("workspace-2"), "Foreign")
	highlight := mustNotedHighlight(t, alpha, "3:9", "first")
	existing := mustLink(t, highlight, "0:1", beta)

	crossWorkspace := mustPrepareLink(t, "0:2", foreign)
	err := highlight.MakeNote(ctx, NewContent(ContentTypeLive, []byte("second")), []*Link{crossWorkspace})
	if !errors.Is(err, ErrCrossWorkspaceLink) {
		t.Fatalf("expected cross workspace rejection, got %v", err)
	}
	if text, _ := highlight.LinkPreview().Text(); text != "first" {
		t.Fatalf("expected preview to stay %q, got %q", "first", text)
	}
	if body, _ := highlight.Note().LoadedBody(); string(body) != "first" {
		t.Fatalf("expected note to stay unchanged, got %q", body)
	}
	if !containsLink(highlight.Links(), existing) || !containsLink(beta.Backlinks(), existing) {
		t.Fatalf("expected existing link to survive on both ends")
	}
	if crossWorkspace.Completed() || len(foreign.Backlinks()) != 0 {
		t.Fatalf("expected rejected link to stay unattached")
	}

	duplicated := mustPrepareLink(t, "0:3", beta)
	err = highlight.MakeNote(ctx, NewContent(ContentTypeLive, []byte("third")), []*Link{duplicated, duplicated})
	if !errors.Is(err, ErrLinkCompleted) {
		t.Fatalf("expected repeated link rejection, got %v", err)
	}
	if len(highlight.Links()) != 1 {
		t.Fatalf("expected links unchanged, got %d", len(highlight.Links()))
	}
}
