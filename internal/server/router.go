package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/document"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/documents"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/notify"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/repository"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	workspaceContextKey = "thlink_workspace"
	subjectContextKey   = "thlink_subject"

	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingDocumentsService = errors.New("documents service dependency required")
	errMissingEventSource      = errors.New("event source dependency required")
	errMissingBlobDependencies = errors.New("blob verifier and blob store dependencies required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

type TokenManager interface {
	ValidateToken(token string) (auth.Claims, error)
}

// EventSource streams the events of one workspace.
type EventSource interface {
	Subscribe(ctx context.Context, workspace string) (<-chan notify.Event, func())
}

// BlobVerifier checks the token of a signed blob download URL.
type BlobVerifier interface {
	Verify(id, token string) error
}

type Dependencies struct {
	TokenManager      TokenManager
	Documents         *documents.Service
	Events            EventSource
	BlobVerifier      BlobVerifier
	Blobs             store.BlobStore
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Documents == nil {
		return nil, errMissingDocumentsService
	}
	if deps.Events == nil {
		return nil, errMissingEventSource
	}
	if deps.BlobVerifier == nil || deps.Blobs == nil {
		return nil, errMissingBlobDependencies
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		tokens:    deps.TokenManager,
		documents: deps.Documents,
		events:    deps.Events,
		verifier:  deps.BlobVerifier,
		blobs:     deps.Blobs,
		heartbeat: heartbeat,
		logger:    logger,
	}

	router.GET("/blobs/:id", handler.handleBlobDownload)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/events", handler.handleEvents)
	protected.POST("/documents", handler.handleCreateDocument)
	protected.GET("/documents", handler.handleListDocuments)
	protected.GET("/documents/:id", handler.handleGetDocument)
	protected.PATCH("/documents/:id", handler.handleRenameDocument)
	protected.DELETE("/documents/:id", handler.handleDeleteDocument)
	protected.PUT("/documents/:id/tags/:tag", handler.handleAddTag)
	protected.DELETE("/documents/:id/tags/:tag", handler.handleRemoveTag)
	protected.PUT("/documents/:id/content", handler.handleUpdateContent)
	protected.POST("/documents/:id/links", handler.handleCreateLink)
	protected.DELETE("/documents/:id/links/:link_id", handler.handleDeleteLink)
	protected.POST("/documents/:id/highlights", handler.handleCreateHighlight)
	protected.PUT("/documents/:id/highlights/:highlight_id/note", handler.handleNoteHighlight)
	protected.DELETE("/documents/:id/highlights/:highlight_id", handler.handleDeleteHighlight)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(string) bool { return true },
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Last-Event-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	tokens    TokenManager
	documents *documents.Service
	events    EventSource
	verifier  BlobVerifier
	blobs     store.BlobStore
	heartbeat time.Duration
	logger    *zap.Logger
}

// authorizeRequest accepts a bearer header, or an access_token query parameter for event streams.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := ""
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	} else if header == "" {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	workspace, err := document.NewWorkspace(claims.Workspace)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(subjectContextKey, claims.Subject)
	c.Set(workspaceContextKey, workspace.String())
	c.Next()
}

func workspaceFrom(c *gin.Context) document.Workspace {
	return document.Workspace(c.GetString(workspaceContextKey))
}

// writeError maps failure classes to status codes; the service error code travels along.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	status, reason := classifyError(err)
	body := gin.H{"error": reason}
	var serviceErr *documents.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("workspace", c.GetString(workspaceContextKey)),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrContentUpdatedByOtherWriter), errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, document.ErrPolicyViolation):
		return http.StatusUnprocessableEntity, "policy_violation"
	case errors.Is(err, documents.ErrInvalidInput),
		errors.Is(err, document.ErrInvalidContentType),
		errors.Is(err, document.ErrInvalidID):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
