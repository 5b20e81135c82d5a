package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
)

type principalContextKey struct{}

// Principal is the authenticated caller.
type Principal struct {
	Subject  string
	TenantID string
	Method   string // "bearer" or "api_key"
}

// TokenValidator validates bearer tokens against the workspace's identity
// service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Principal, error)
}

// APIKeyValidator validates service-to-service API keys.
type APIKeyValidator interface {
	ValidateAPIKey(ctx context.Context, key string) (*Principal, error)
}

// AuthConfig holds auth middleware configuration.
type AuthConfig struct {
	// SkipPaths bypass authentication entirely (health probes, metrics).
	SkipPaths []string
}

// AuthMiddleware authenticates requests via bearer token or API key.  A
// request carrying neither, or carrying invalid credentials, receives 401.
type AuthMiddleware struct {
	tokens TokenValidator
	keys   APIKeyValidator
	skip   map[string]bool
	logger logging.Logger
}

func NewAuthMiddleware(tokens TokenValidator, keys APIKeyValidator, cfg AuthConfig, logger logging.Logger) *AuthMiddleware {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return &AuthMiddleware{tokens: tokens, keys: keys, skip: skip, logger: logger}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn("request rejected",
				logging.String("path", r.URL.Path),
				logging.Err(err))
			// Deliberately vague: credential failures all read the same.
			writeScopeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized,
				"authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*Principal, error) {
	if token := bearerToken(r); token != "" && m.tokens != nil {
		return m.tokens.ValidateToken(r.Context(), token)
	}
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" && m.keys != nil {
		return m.keys.ValidateAPIKey(r.Context(), key)
	}
	return nil, errors.New(errors.ErrCodeUnauthorized, "no credentials presented")
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok
}

//Personal.AI order the ending
