package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/database"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/documents"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/notify"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/blobfs"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/sqlstore"
	"go.uber.org/zap"
)

type testAPI struct {
	server *httptest.Server
	issuer *auth.TokenIssuer
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "thlink.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	records, err := sqlstore.New(sqlstore.Config{Database: db})
	if err != nil {
		t.Fatalf("failed to build record store: %v", err)
	}

	var server *httptest.Server
	mux := http.NewServeMux()
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	signer, err := blobfs.NewURLSigner(blobfs.URLSignerConfig{
		SigningSecret: []byte("blob-secret"),
		BaseURL:       server.URL,
		TTL:           time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to build signer: %v", err)
	}
	blobs, err := blobfs.New(blobfs.Config{Root: t.TempDir(), Signer: signer})
	if err != nil {
		t.Fatalf("failed to build blob store: %v", err)
	}

	dispatcher := notify.NewDispatcher()
	service, err := documents.NewService(documents.ServiceConfig{
		Store:     records,
		Blobs:     blobs,
		Publisher: dispatcher,
	})
	if err != nil {
		t.Fatalf("failed to build documents service: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        "thlink-auth",
		Audience:      "thlink-api",
		TokenTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager:      issuer,
		Documents:         service,
		Events:            dispatcher,
		BlobVerifier:      signer,
		Blobs:             blobs,
		HeartbeatInterval: time.Hour,
		Logger:            zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	mux.Handle("/", handler)

	token, _, err := issuer.IssueToken(context.Background(), "user-1", "workspace-1")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return &testAPI{server: server, issuer: issuer, token: token}
}

// do sends an authorized request and decodes a JSON response into out when out is not nil.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	return a.doWithToken(t, a.token, method, path, body, out)
}

func (a *testAPI) doWithToken(t *testing.T, token, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()
	if out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return response.StatusCode
}

func (a *testAPI) mustCreate(t *testing.T, request createDocumentRequestPayload) documentPayload {
	t.Helper()
	var created documentPayload
	if status := a.do(t, http.MethodPost, "/documents", request, &created); status != http.StatusCreated {
		t.Fatalf("expected 201 creating %q, got %d", request.Title, status)
	}
	return created
}
