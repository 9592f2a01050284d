package notify

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "workspace-1")
	defer cleanup()

	event := Event{
		Type:       EventDocumentSaved,
		Workspace:  "workspace-1",
		DocumentID: "doc-a",
		Version:    2,
		Timestamp:  time.Now().UTC(),
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	select {
	case received := <-stream:
		if received.Type != EventDocumentSaved || received.DocumentID != "doc-a" {
			t.Fatalf("unexpected event %+v", received)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event within deadline")
	}
}

func TestDispatcherIsolatedByWorkspace(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workspaceStream, cleanup := dispatcher.Subscribe(ctx, "workspace-2")
	defer cleanup()
	otherStream, otherCleanup := dispatcher.Subscribe(ctx, "workspace-3")
	defer otherCleanup()

	_ = dispatcher.Publish(ctx, Event{Type: EventDocumentDeleted, Workspace: "workspace-3", DocumentID: "doc-c"})

	select {
	case <-workspaceStream:
		t.Fatal("did not expect an event for an unrelated workspace")
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case event := <-otherStream:
		if event.Workspace != "workspace-3" {
			t.Fatalf("expected workspace-3, received %s", event.Workspace)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event for subscribed workspace")
	}
}

func TestDispatcherUnsubscribesWhenContextEnds(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, cleanup := dispatcher.Subscribe(ctx, "workspace-1")
	defer cleanup()
	if got := dispatcher.Subscribers("workspace-1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for dispatcher.Subscribers("workspace-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcherEmptyWorkspaceStreamIsClosed(t *testing.T) {
	stream, cleanup := NewDispatcher().Subscribe(context.Background(), "")
	defer cleanup()
	if _, ok := <-stream; ok {
		t.Fatal("expected closed stream for empty workspace")
	}
}
