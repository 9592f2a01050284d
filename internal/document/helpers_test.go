package document

import (
	"context"
	"testing"
)

const testWorkspace = Workspace("workspace-1")

func mustCreateDocument(t *testing.T, workspace Workspace, title string, links ...*Link) *Document {
	t.Helper()
	doc, err := Create(context.Background(), workspace, title, nil, NewContent(ContentTypeWebPage, []byte("<html/>")), links, nil)
	if err != nil {
		t.Fatalf("unexpected error creating %q: %v", title, err)
	}
	return doc
}

func mustPrepareLink(t *testing.T, location string, target Node) *Link {
	t.Helper()
	link, err := PrepareLink(ContentLocation(location), target)
	if err != nil {
		t.Fatalf("unexpected error preparing link: %v", err)
	}
	return link
}

func mustLink(t *testing.T, source LinkSource, location string, target Node) *Link {
	t.Helper()
	link, err := source.Link(context.Background(), ContentLocation(location), target)
	if err != nil {
		t.Fatalf("unexpected error linking %s to %s: %v", source.Ref(), target.Ref(), err)
	}
	return link
}

func mustNotedHighlight(t *testing.T, parent *Document, location, note string) *Highlight {
	t.Helper()
	highlight, err := parent.Highlight(ContentLocation(location))
	if err != nil {
		t.Fatalf("unexpected error creating highlight: %v", err)
	}
	if err := highlight.MakeNote(context.Background(), NewContent(ContentTypeLive, []byte(note)), nil); err != nil {
		t.Fatalf("unexpected error making note: %v", err)
	}
	return highlight
}

func containsLink(links []*Link, link *Link) bool {
	for _, candidate := range links {
		if candidate == link {
			return true
		}
	}
	return false
}
