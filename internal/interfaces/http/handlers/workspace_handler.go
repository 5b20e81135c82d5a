package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appcitation "github.com/turtacn/CiteScope/internal/application/citation"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// WorkspaceHandler serves the workspace mutation hook.  When the drafting
// workspace edits a claim or a reference set, it calls the hook so every
// cached citation result under the project is dropped at once.
type WorkspaceHandler struct {
	invalidator *appcitation.Invalidator
	logger      logging.Logger
}

func NewWorkspaceHandler(invalidator *appcitation.Invalidator, logger logging.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{invalidator: invalidator, logger: logger}
}

// Invalidate handles POST /workspace/{projectID}/invalidate.  The project in
// the path must match the caller's scoped project.
func (h *WorkspaceHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		writeError(w, errors.New(errors.ErrCodeValidation, "project id is required"))
		return
	}
	if scope.ProjectID != common.ProjectID(projectID) {
		writeError(w, errors.New(errors.ErrCodeTenantMismatch,
			"project does not match the request scope").
			WithDetail("project="+projectID))
		return
	}

	if err := h.invalidator.InvalidateProject(r.Context(), scope); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("workspace caches invalidated",
		logging.String("tenant", string(scope.TenantID)),
		logging.String("project", projectID))
	w.WriteHeader(http.StatusNoContent)
}

//Personal.AI order the ending
