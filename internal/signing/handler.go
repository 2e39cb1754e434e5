package signing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/server/middleware"
	"signflow-backend/internal/shared/server/respond"
	"signflow-backend/internal/shared/storage/object"
	"signflow-backend/internal/shared/util"
)

const maxWebhookBytes = 1 << 20

// Handler wires signing HTTP handlers.
type Handler struct {
	Svc           *Service
	Processor     *Processor
	WebhookSecret string
}

// NewHandler constructs a Handler. An empty secret disables signature checks.
func NewHandler(svc *Service, processor *Processor, webhookSecret string) *Handler {
	return &Handler{Svc: svc, Processor: processor, WebhookSecret: strings.TrimSpace(webhookSecret)}
}

type dispatchRequest struct {
	SignerEmails      map[string]string  `json:"signerEmails"`
	AdditionalSigners []AdditionalSigner `json:"additionalSigners"`
}

// RegisterRoutes attaches the user-facing signing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/dispatch", h.dispatch)
	rg.GET("/documents/:id/signed-artifact", h.signedArtifact)
	rg.POST("/documents/:id/signed-artifact/retrieve", h.retrieve)
}

// RegisterWebhook attaches the provider callback, behind any extra handlers given.
func (h *Handler) RegisterWebhook(rg *gin.RouterGroup, extra ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, extra...), h.webhook)
	rg.POST("/webhooks/signing", handlers...)
}

func (h *Handler) dispatch(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.Send(c.Request.Context(), id, SendInput{
		SignerEmails:      req.SignerEmails,
		AdditionalSigners: req.AdditionalSigners,
	})
	if err != nil {
		writeError(c, err, "failed to dispatch document")
		return
	}
	c.Set(middleware.StatusTransitionKey, string(documents.StatusDraft)+"->"+string(doc.Status))
	respond.OK(c, documents.ToResponse(doc))
}

func (h *Handler) webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "malformed_webhook", "failed to read body", nil)
		return
	}
	if len(body) > maxWebhookBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook body too large", nil)
		return
	}
	if h.WebhookSecret != "" && !VerifySignature(h.WebhookSecret, body, c.GetHeader(SignatureHeader)) {
		respond.Error(c, http.StatusUnauthorized, "invalid_signature", ErrInvalidSignature.Error(), nil)
		return
	}

	result, err := h.Processor.HandleWebhook(c.Request.Context(), body)
	c.Set(middleware.ProviderEventKey, result.EventType)
	c.Set(middleware.DocumentIDKey, result.DocumentID)
	if err != nil {
		if errors.Is(err, ErrMalformedWebhook) {
			respond.Error(c, http.StatusBadRequest, "malformed_webhook", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to apply event", nil)
		return
	}
	c.Set(middleware.StatusTransitionKey, result.StatusTransition)
	respond.OK(c, result)
}

func (h *Handler) signedArtifact(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	doc, data, err := h.Svc.SignedArtifact(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to load signed artifact")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+util.DownloadName(doc.Title, "-signed.pdf")+"\"")
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) retrieve(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	doc, err := h.Processor.RetrieveSignedArtifact(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to retrieve signed artifact")
		return
	}
	respond.OK(c, documents.ToResponse(doc))
}

// writeError maps signing errors onto the standard error envelope.
func writeError(c *gin.Context, err error, fallback string) {
	var (
		validationErr *ValidationError
		providerErr   *SigningProviderError
		renderErr     *render.ArtifactRenderError
		fetchErr      *ArtifactFetchError
	)
	switch {
	case errors.As(err, &validationErr):
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "signing request is invalid", validationErr.Fields)
	case errors.As(err, &providerErr):
		respond.Error(c, http.StatusBadGateway, "signing_provider_error", "signing provider rejected the request", gin.H{
			"statusCode": providerErr.StatusCode,
			"detail":     providerErr.Detail,
		})
	case errors.As(err, &renderErr):
		respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to render document", nil)
	case errors.As(err, &fetchErr):
		respond.Error(c, http.StatusBadGateway, "artifact_fetch_failed", fetchErr.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrAlreadyDispatched):
		respond.Error(c, http.StatusConflict, "already_dispatched", err.Error(), nil)
	case errors.Is(err, ErrNotCompleted):
		respond.Error(c, http.StatusConflict, "not_completed", err.Error(), nil)
	case errors.Is(err, ErrArtifactPending):
		respond.Error(c, http.StatusConflict, "artifact_pending", err.Error(), nil)
	case errors.Is(err, ErrRetrievalInProgress):
		respond.Error(c, http.StatusConflict, "retrieval_in_progress", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

// ArtifactHandler serves objects from a store that cannot presign links,
// so the provider can fetch the artifacts it is pointed at.
type ArtifactHandler struct {
	Store object.ObjectStore
}

// RegisterRoutes attaches the artifact download route.
func (h *ArtifactHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/artifacts/*key", h.serve)
}

func (h *ArtifactHandler) serve(c *gin.Context) {
	key, err := object.CleanKey(strings.TrimPrefix(c.Param("key"), "/"))
	if err != nil || !strings.HasPrefix(key, "documents/") {
		respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
		return
	}
	rc, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open artifact", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
