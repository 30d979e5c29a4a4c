package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/guided-ai/interview-platform/internal/middleware"
	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/internal/template"
	"github.com/guided-ai/interview-platform/pkg/logger"
)

// TemplateHandler handles template registry endpoints. Reads go through the
// full registry so remote templates are served too; creation targets the
// local library.
type TemplateHandler struct {
	registry template.Registry
	library  *template.Library
	logger   *logger.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(registry template.Registry, library *template.Library, log *logger.Logger) *TemplateHandler {
	return &TemplateHandler{
		registry: registry,
		library:  library,
		logger:   log,
	}
}

// List handles GET /api/v1/templates
// Supports ?q=term and ?category=name filters.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := template.Query{
		Search:   r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}

	templates, err := h.registry.List(ctx, q)
	if err != nil {
		h.logger.Error("failed to list templates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListTemplatesResponse{
		Templates: templates,
		Total:     len(templates),
	})
}

// Get handles GET /api/v1/templates/{id}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "id")

	tmpl, err := h.registry.Get(ctx, templateID)
	if err != nil {
		writeError(w, statusFor(err), "template not found")
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

// Create handles POST /api/v1/templates
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	var req model.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTemplateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl, err := h.library.Create(ctx, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("template created",
		zap.String("template_id", tmpl.ID),
		zap.String("name", tmpl.Name),
		zap.String("tenant_id", tenantID))

	writeJSON(w, http.StatusCreated, tmpl)
}
