package server

import (
	"io"
	"net/http"
	"testing"
)

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	beta := api.mustCreate(t, createDocumentRequestPayload{Title: "Beta", ContentType: "pdf", ContentBody: []byte("%PDF-1.7")})
	alpha := api.mustCreate(t, createDocumentRequestPayload{
		Title:       "Alpha",
		ContentType: "web-page",
		ContentBody: []byte("<html/>"),
		Links:       []linkRequestPayload{{Location: "0:5", TargetDocumentID: beta.ID}},
	})
	if len(alpha.Links) != 1 || alpha.Links[0].Target.DocumentPreviewText != "Beta" {
		t.Fatalf("unexpected created links %+v", alpha.Links)
	}

	var renamed documentPayload
	if status := api.do(t, http.MethodPatch, "/documents/"+beta.ID, renameRequestPayload{Title: "Beta2"}, &renamed); status != http.StatusOK {
		t.Fatalf("expected 200 renaming, got %d", status)
	}

	var loaded documentPayload
	if status := api.do(t, http.MethodGet, "/documents/"+alpha.ID, nil, &loaded); status != http.StatusOK {
		t.Fatalf("expected 200 loading alpha, got %d", status)
	}
	if loaded.Links[0].Target.DocumentPreviewText != "Beta2" {
		t.Fatalf("expected propagated preview Beta2, got %q", loaded.Links[0].Target.DocumentPreviewText)
	}

	var tagged documentPayload
	if status := api.do(t, http.MethodPut, "/documents/"+alpha.ID+"/tags/research", nil, &tagged); status != http.StatusOK {
		t.Fatalf("expected 200 tagging, got %d", status)
	}
	if len(tagged.Tags) != 1 || tagged.Tags[0] != "research" {
		t.Fatalf("unexpected tags %v", tagged.Tags)
	}

	var list documentListPayload
	if status := api.do(t, http.MethodGet, "/documents", nil, &list); status != http.StatusOK || len(list.Documents) != 2 {
		t.Fatalf("expected 2 documents, got status %d and %d documents", status, len(list.Documents))
	}

	if status := api.do(t, http.MethodDelete, "/documents/"+beta.ID, nil, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204 deleting, got %d", status)
	}
	var missing errorPayload
	if status := api.do(t, http.MethodGet, "/documents/"+beta.ID, nil, &missing); status != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted document, got %d", status)
	}
	if missing.Code != "documents.get.not_found" {
		t.Fatalf("unexpected error code %q", missing.Code)
	}
	if status := api.do(t, http.MethodGet, "/documents/"+alpha.ID, nil, &loaded); status != http.StatusOK || !loaded.Links[0].Broken {
		t.Fatalf("expected alpha link to be broken, got status %d and %+v", status, loaded.Links)
	}
}

func TestHighlightsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	beta := api.mustCreate(t, createDocumentRequestPayload{Title: "Beta", ContentType: "pdf"})
	alpha := api.mustCreate(t, createDocumentRequestPayload{Title: "Alpha", ContentType: "pdf"})

	note := "worth citing"
	var highlighted documentPayload
	status := api.do(t, http.MethodPost, "/documents/"+alpha.ID+"/highlights", highlightRequestPayload{
		Location: "3:9",
		NoteBody: &note,
		Links:    []linkRequestPayload{{Location: "0:4", TargetDocumentID: beta.ID}},
	}, &highlighted)
	if status != http.StatusCreated || len(highlighted.Highlights) != 1 {
		t.Fatalf("expected highlight to be created, got status %d and %+v", status, highlighted.Highlights)
	}
	highlightID := highlighted.Highlights[0].ID

	empty := ""
	var cleared documentPayload
	path := "/documents/" + alpha.ID + "/highlights/" + highlightID + "/note"
	if status := api.do(t, http.MethodPut, path, noteRequestPayload{NoteBody: &empty}, &cleared); status != http.StatusOK {
		t.Fatalf("expected 200 clearing note, got %d", status)
	}
	if cleared.Highlights[0].NoteBody != nil || len(cleared.Highlights[0].Links) != 0 {
		t.Fatalf("expected note and links removed, got %+v", cleared.Highlights[0])
	}

	var failure errorPayload
	status = api.do(t, http.MethodPut, path, noteRequestPayload{Links: []linkRequestPayload{{Location: "0:1", TargetDocumentID: beta.ID}}}, &failure)
	if status != http.StatusUnprocessableEntity || failure.Error != "policy_violation" {
		t.Fatalf("expected 422 for links without note, got %d %+v", status, failure)
	}

	if status := api.do(t, http.MethodDelete, "/documents/"+alpha.ID+"/highlights/"+highlightID, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 deleting highlight, got %d", status)
	}
}

func TestLiveDocumentsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	beta := api.mustCreate(t, createDocumentRequestPayload{Title: "Beta", ContentType: "pdf"})
	live := api.mustCreate(t, createDocumentRequestPayload{Title: "Journal", ContentType: "thlink-document", ContentBody: []byte("draft")})

	var failure errorPayload
	status := api.do(t, http.MethodPost, "/documents/"+live.ID+"/links", linkRequestPayload{Location: "0:1", TargetDocumentID: beta.ID}, &failure)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 linking a live document directly, got %d", status)
	}

	var updated documentPayload
	status = api.do(t, http.MethodPut, "/documents/"+live.ID+"/content", updateContentRequestPayload{
		ContentBody: []byte("see Beta"),
		Links:       []linkRequestPayload{{Location: "4:8", TargetDocumentID: beta.ID}},
	}, &updated)
	if status != http.StatusOK || updated.Version != 2 || len(updated.Links) != 1 {
		t.Fatalf("unexpected content update: status %d, %+v", status, updated)
	}

	var linked documentPayload
	status = api.do(t, http.MethodPost, "/documents/"+beta.ID+"/links", linkRequestPayload{Location: "0:1", TargetDocumentID: live.ID}, &linked)
	if status != http.StatusCreated || len(linked.Links) != 1 {
		t.Fatalf("expected link creation, got status %d", status)
	}
	if status := api.do(t, http.MethodDelete, "/documents/"+beta.ID+"/links/"+linked.Links[0].ID, nil, &linked); status != http.StatusOK || len(linked.Links) != 0 {
		t.Fatalf("expected link deletion, got status %d", status)
	}
}

func TestRequestValidation(t *testing.T) {
	api := newTestAPI(t)

	testCases := []struct {
		name    string
		request createDocumentRequestPayload
	}{
		{name: "missing title", request: createDocumentRequestPayload{ContentType: "pdf"}},
		{name: "unknown content type", request: createDocumentRequestPayload{Title: "Alpha", ContentType: "docx"}},
		{name: "link without target", request: createDocumentRequestPayload{Title: "Alpha", ContentType: "pdf", Links: []linkRequestPayload{{Location: "0:1"}}}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var failure errorPayload
			if status := api.do(t, http.MethodPost, "/documents", testCase.request, &failure); status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
			if failure.Error != "invalid_request" {
				t.Fatalf("unexpected error %q", failure.Error)
			}
		})
	}
}

func TestRequestsRequireToken(t *testing.T) {
	api := newTestAPI(t)
	if status := api.doWithToken(t, "", http.MethodGet, "/documents", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status := api.doWithToken(t, "not-a-token", http.MethodGet, "/documents", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", status)
	}
}

func TestBlobDownloadRequiresSignedURL(t *testing.T) {
	api := newTestAPI(t)
	created := api.mustCreate(t, createDocumentRequestPayload{Title: "Alpha", ContentType: "web-page", ContentBody: []byte("<p>hello</p>")})

	response, err := http.Get(created.ContentBodyURL)
	if err != nil {
		t.Fatalf("blob request failed: %v", err)
	}
	body, err := io.ReadAll(response.Body)
	_ = response.Body.Close()
	if err != nil {
		t.Fatalf("failed to read blob: %v", err)
	}
	if response.StatusCode != http.StatusOK || string(body) != "<p>hello</p>" {
		t.Fatalf("unexpected blob response %d %q", response.StatusCode, body)
	}

	tampered, err := http.Get(created.ContentBodyURL + "x")
	if err != nil {
		t.Fatalf("blob request failed: %v", err)
	}
	_ = tampered.Body.Close()
	if tampered.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered token, got %d", tampered.StatusCode)
	}
}
