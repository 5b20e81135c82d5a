// Package middleware provides the HTTP middleware chain of the citation API:
// request scoping, authentication, logging, rate limiting, and CORS.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

type scopeContextKey struct{}

// Scope header names.  The drafting workspace's gateway sets these; the
// pipeline trusts them once the auth middleware has validated the caller.
const (
	HeaderTenantID  = "X-Tenant-ID"
	HeaderProjectID = "X-Project-ID"
	HeaderUserID    = "X-User-ID"
)

var scopeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ScopeConfig controls scope extraction.
type ScopeConfig struct {
	// RequireProject rejects requests without a project id.  The citation
	// endpoints all need one; health and metrics are mounted outside this
	// middleware.
	RequireProject bool
}

// ScopeMiddleware extracts the (tenant, project, user) triple from request
// headers, validates it, and injects a common.Scope into the context.
type ScopeMiddleware struct {
	cfg    ScopeConfig
	logger logging.Logger
}

func NewScopeMiddleware(cfg ScopeConfig, logger logging.Logger) *ScopeMiddleware {
	return &ScopeMiddleware{cfg: cfg, logger: logger}
}

func (m *ScopeMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get(HeaderTenantID))
		project := strings.TrimSpace(r.Header.Get(HeaderProjectID))
		user := strings.TrimSpace(r.Header.Get(HeaderUserID))

		if tenant == "" {
			writeScopeError(w, http.StatusBadRequest, errors.ErrCodeValidation,
				"tenant id is required: set the "+HeaderTenantID+" header")
			return
		}
		if m.cfg.RequireProject && project == "" {
			writeScopeError(w, http.StatusBadRequest, errors.ErrCodeValidation,
				"project id is required: set the "+HeaderProjectID+" header")
			return
		}
		for _, id := range []string{tenant, project, user} {
			if id != "" && !scopeIDPattern.MatchString(id) {
				m.logger.Warn("malformed scope header",
					logging.String("path", r.URL.Path))
				writeScopeError(w, http.StatusBadRequest, errors.ErrCodeValidation,
					"scope ids must match [a-zA-Z0-9_-]{1,64}")
				return
			}
		}

		scope := common.Scope{
			TenantID:  common.TenantID(tenant),
			ProjectID: common.ProjectID(project),
			UserID:    common.UserID(user),
		}
		ctx := context.WithValue(r.Context(), scopeContextKey{}, scope)
		w.Header().Set(HeaderTenantID, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ScopeFromContext returns the request scope injected by ScopeMiddleware.
func ScopeFromContext(ctx context.Context) (common.Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(common.Scope)
	return scope, ok
}

// WithScope returns a context carrying the given scope; test helper and
// internal dispatch use it.
func WithScope(ctx context.Context, scope common.Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

type scopeErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeScopeError(w http.ResponseWriter, status int, code errors.ErrorCode, message string) {
	body := scopeErrorBody{}
	body.Error.Code = string(code)
	body.Error.Message = message
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

//Personal.AI order the ending
