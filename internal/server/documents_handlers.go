package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/documents"
)

// bindPayload decodes and validates the JSON body, answering 400 itself on failure.
func bindPayload(c *gin.Context, payload validation.Validatable) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return false
	}
	if err := payload.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err})
		return false
	}
	return true
}

func (h *httpHandler) respond(c *gin.Context, status int, model documents.Model, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, newDocumentPayload(model))
}

func (h *httpHandler) handleCreateDocument(c *gin.Context) {
	var request createDocumentRequestPayload
	if !bindPayload(c, &request) {
		return
	}
	model, err := h.documents.CreateDocument(c.Request.Context(), workspaceFrom(c), documents.CreateDocumentInput{
		Title:       request.Title,
		Tags:        request.Tags,
		ContentType: request.ContentType,
		ContentBody: request.ContentBody,
		Links:       linkInputs(request.Links),
	})
	h.respond(c, http.StatusCreated, model, err)
}

func (h *httpHandler) handleGetDocument(c *gin.Context) {
	model, err := h.documents.GetDocument(c.Request.Context(), workspaceFrom(c), c.Param("id"))
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleListDocuments(c *gin.Context) {
	models, err := h.documents.ListDocuments(c.Request.Context(), workspaceFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response := documentListPayload{Documents: make([]documentPayload, 0, len(models))}
	for _, model := range models {
		response.Documents = append(response.Documents, newDocumentPayload(model))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleRenameDocument(c *gin.Context) {
	var request renameRequestPayload
	if !bindPayload(c, &request) {
		return
	}
	model, err := h.documents.RenameDocument(c.Request.Context(), workspaceFrom(c), c.Param("id"), request.Title)
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleDeleteDocument(c *gin.Context) {
	if err := h.documents.DeleteDocument(c.Request.Context(), workspaceFrom(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddTag(c *gin.Context) {
	model, err := h.documents.AddTag(c.Request.Context(), workspaceFrom(c), c.Param("id"), c.Param("tag"))
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleRemoveTag(c *gin.Context) {
	model, err := h.documents.RemoveTag(c.Request.Context(), workspaceFrom(c), c.Param("id"), c.Param("tag"))
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleUpdateContent(c *gin.Context) {
	var request updateContentRequestPayload
	if !bindPayload(c, &request) {
		return
	}
	highlights := make([]documents.HighlightInput, 0, len(request.Highlights))
	for _, highlight := range request.Highlights {
		highlights = append(highlights, highlightInput(highlight))
	}
	model, err := h.documents.UpdateContent(c.Request.Context(), workspaceFrom(c), c.Param("id"), documents.UpdateContentInput{
		Body:       request.ContentBody,
		Links:      linkInputs(request.Links),
		Highlights: highlights,
	})
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleCreateLink(c *gin.Context) {
	var request linkRequestPayload
	if !bindPayload(c, &request) {
		return
	}
	model, err := h.documents.CreateLink(c.Request.Context(), workspaceFrom(c), c.Param("id"), linkInput(request))
	h.respond(c, http.StatusCreated, model, err)
}

func (h *httpHandler) handleDeleteLink(c *gin.Context) {
	model, err := h.documents.DeleteLink(c.Request.Context(), workspaceFrom(c), c.Param("id"), c.Param("link_id"))
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleCreateHighlight(c *gin.Context) {
	var request highlightRequestPayload
	if !bindPayload(c, &request) {
		return
	}
	model, err := h.documents.CreateHighlight(c.Request.Context(), workspaceFrom(c), c.Param("id"), highlightInput(request))
	h.respond(c, http.StatusCreated, model, err)
}

func (h *httpHandler) handleNoteHighlight(c *gin.Context) {
	var request noteRequestPayload
	if !bindPayload(c, &request) {
		return
	}
	model, err := h.documents.NoteHighlight(c.Request.Context(), workspaceFrom(c), c.Param("id"), c.Param("highlight_id"),
		request.NoteBody, linkInputs(request.Links))
	h.respond(c, http.StatusOK, model, err)
}

func (h *httpHandler) handleDeleteHighlight(c *gin.Context) {
	model, err := h.documents.DeleteHighlight(c.Request.Context(), workspaceFrom(c), c.Param("id"), c.Param("highlight_id"))
	h.respond(c, http.StatusOK, model, err)
}
