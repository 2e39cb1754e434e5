package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/server/respond"
	"signflow-backend/internal/templates"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc     *Service
	Catalog *templates.Catalog
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, catalog *templates.Catalog) *Handler {
	return &Handler{Svc: svc, Catalog: catalog}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.listTemplates)
	rg.POST("/documents", h.create)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.PUT("/documents/:id/content", h.updateContent)
	rg.PUT("/documents/:id/placeholders", h.updatePlaceholders)
	rg.DELETE("/documents/:id/placeholders/:name", h.removePlaceholder)
	rg.GET("/documents/:id/preview", h.preview)
	rg.GET("/documents/:id/audit", h.audit)
}

func (h *Handler) listTemplates(c *gin.Context) {
	if h.Catalog == nil {
		respond.OK(c, []templates.Template{})
		return
	}
	respond.OK(c, h.Catalog.List())
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.Create(c.Request.Context(), CreateInput{
		TemplateID:   strings.TrimSpace(req.TemplateID),
		Title:        req.Title,
		Header:       req.Header,
		Body:         req.Body,
		Placeholders: req.Placeholders,
	})
	if err != nil {
		writeError(c, err, "failed to create document")
		return
	}

	respond.JSON(c, http.StatusCreated, ToResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}

	resp := make([]SummaryResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toSummary(doc))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) updateContent(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.UpdateContent(c.Request.Context(), c.Param("id"), req.Header, req.Body)
	if err != nil {
		writeError(c, err, "failed to update document")
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) updatePlaceholders(c *gin.Context) {
	var req placeholdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.Placeholders) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "placeholders are required", nil)
		return
	}

	doc, err := h.Svc.UpdatePlaceholders(c.Request.Context(), c.Param("id"), req.Placeholders)
	if err != nil {
		writeError(c, err, "failed to update placeholders")
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) removePlaceholder(c *gin.Context) {
	doc, err := h.Svc.RemovePlaceholder(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		writeError(c, err, "failed to remove placeholder")
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) preview(c *gin.Context) {
	data, err := h.Svc.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		var renderErr *render.ArtifactRenderError
		if errors.As(err, &renderErr) {
			respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to render document", nil)
			return
		}
		writeError(c, err, "failed to preview document")
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) audit(c *gin.Context) {
	entries, err := h.Svc.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch audit trail")
		return
	}
	if entries == nil {
		entries = []TrackingEvent{}
	}
	respond.OK(c, entries)
}

// writeError maps service errors onto the standard error envelope.
func writeError(c *gin.Context, err error, fallback string) {
	var valuesErr *InvalidValuesError
	switch {
	case errors.As(err, &valuesErr):
		details := make([]valueErrorDetail, 0, len(valuesErr.Errors))
		for _, ve := range valuesErr.Errors {
			details = append(details, valueErrorDetail{Name: ve.Name, Reason: ve.Reason})
		}
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_placeholder_values", "placeholder values do not match their formats", details)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrNotEditable):
		respond.Error(c, http.StatusConflict, "not_editable", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
