package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/database"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/blobfs"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/sqlstore"
	"go.uber.org/zap"
)

const testWorkspace = document.Workspace("workspace-1")

type recordingStore struct {
	store.Store
	writes []string
}

func (s *recordingStore) Put(ctx context.Context, key store.Key, record store.Record, expectedVersion int64) error {
	s.writes = append(s.writes, writePut+":"+key.ID)
	return s.Store.Put(ctx, key, record, expectedVersion)
}

func (s *recordingStore) Update(ctx context.Context, key store.Key, newRecord, oldRecord store.Record) error {
	s.writes = append(s.writes, writeUpdate+":"+key.ID)
	return s.Store.Update(ctx, key, newRecord, oldRecord)
}

func (s *recordingStore) Delete(ctx context.Context, key store.Key) error {
	s.writes = append(s.writes, writeDelete+":"+key.ID)
	return s.Store.Delete(ctx, key)
}

func (s *recordingStore) reset() {
	s.writes = nil
}

type testBackend struct {
	records *recordingStore
	blobs   *blobfs.Store
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "thlink.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	records, err := sqlstore.New(sqlstore.Config{Database: db})
	if err != nil {
		t.Fatalf("failed to build record store: %v", err)
	}
	signer, err := blobfs.NewURLSigner(blobfs.URLSignerConfig{
		SigningSecret: []byte("blob-secret"),
		BaseURL:       "https://api.example.test",
		TTL:           time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to build signer: %v", err)
	}
	blobs, err := blobfs.New(blobfs.Config{Root: t.TempDir(), Signer: signer})
	if err != nil {
		t.Fatalf("failed to build blob store: %v", err)
	}
	return &testBackend{records: &recordingStore{Store: records}, blobs: blobs}
}

func (b *testBackend) config() Config {
	return Config{Store: b.records, Blobs: b.blobs}
}

func (b *testBackend) open(t *testing.T) *DocumentRepository {
	t.Helper()
	repo, err := Open(b.config())
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	return repo
}

func (b *testBackend) load(t *testing.T, id document.ID) *document.Document {
	t.Helper()
	repo := b.open(t)
	t.Cleanup(repo.Discard)
	return mustGet(t, repo, id)
}

func mustGet(t *testing.T, repo *DocumentRepository, id document.ID) *document.Document {
	t.Helper()
	doc, err := repo.Get(context.Background(), id, testWorkspace)
	if err != nil {
		t.Fatalf("unexpected error loading %s: %v", id, err)
	}
	if doc == nil {
		t.Fatalf("expected document %s to exist", id)
	}
	return doc
}

func mustClose(t *testing.T, repo *DocumentRepository) {
	t.Helper()
	if err := repo.Close(context.Background()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
}

func mustCreate(t *testing.T, repo *DocumentRepository, title string, body string) *document.Document {
	t.Helper()
	doc, err := document.Create(context.Background(), testWorkspace, title, nil,
		document.NewContent(document.ContentTypeWebPage, []byte(body)), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error creating %q: %v", title, err)
	}
	if err := repo.Add(doc); err != nil {
		t.Fatalf("unexpected error adding %q: %v", title, err)
	}
	return doc
}

func mustLink(t *testing.T, source document.LinkSource, location string, target document.Node) *document.Link {
	t.Helper()
	link, err := source.Link(context.Background(), document.ContentLocation(location), target)
	if err != nil {
		t.Fatalf("unexpected error linking %s to %s: %v", source.Ref(), target.Ref(), err)
	}
	return link
}

func mustNotedHighlight(t *testing.T, parent *document.Document, location, note string) *document.Highlight {
	t.Helper()
	highlight, err := parent.Highlight(document.ContentLocation(location))
	if err != nil {
		t.Fatalf("unexpected highlight error: %v", err)
	}
	if err := highlight.MakeNote(context.Background(), document.NewContent(document.ContentTypeLive, []byte(note)), nil); err != nil {
		t.Fatalf("unexpected note error: %v", err)
	}
	return highlight
}

func previewText(t *testing.T, preview *document.LinkPreview) string {
	t.Helper()
	text, ok := preview.Text()
	if !ok {
		t.Fatalf("expected preview text to be set")
	}
	return text
}
