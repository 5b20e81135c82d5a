// Package keycloak validates bearer tokens issued by the workspace's
// Keycloak realm.  The pipeline only verifies inbound tokens; login, refresh
// and user management stay with the workspace.
package keycloak

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
)

// TokenClaims is the subset of realm claims the pipeline cares about.  The
// tenant id is a custom mapper claim; tokens without it authenticate but
// carry no tenant, and the scope middleware rejects them downstream.
type TokenClaims struct {
	Subject   string
	Username  string
	Email     string
	TenantID  string
	Roles     []string
	ExpiresAt time.Time
}

const defaultKeyRefreshInterval = 15 * time.Minute

// Provider verifies RS256 tokens against the realm's published JWKS.  Keys
// are cached and refreshed on unknown-kid misses, bounded by the refresh
// interval so a rotation storm cannot hammer the realm.
type Provider struct {
	issuer     string
	realm      string
	httpClient *http.Client
	logger     logging.Logger

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time
	refreshMin  time.Duration
}

func NewProvider(cfg config.AuthConfig, log logging.Logger) (*Provider, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "auth issuer_url is required")
	}
	if cfg.Realm == "" {
		return nil, errors.New(errors.ErrCodeValidation, "auth realm is required")
	}
	return &Provider{
		issuer:     strings.TrimRight(cfg.IssuerURL, "/"),
		realm:      cfg.Realm,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log,
		keys:       make(map[string]*rsa.PublicKey),
		refreshMin: defaultKeyRefreshInterval,
	}, nil
}

func (p *Provider) realmURL(suffix string) string {
	return fmt.Sprintf("%s/realms/%s%s", p.issuer, p.realm, suffix)
}

// VerifyToken parses and validates a raw bearer token and returns its
// claims.  Expired, unsigned, or foreign-issuer tokens are rejected with
// ErrCodeUnauthorized.
func (p *Provider) VerifyToken(ctx context.Context, rawToken string) (*TokenClaims, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		return p.publicKey(ctx, kid)
	}, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))
	if err != nil || !token.Valid {
		return nil, errors.Wrap(err, errors.ErrCodeUnauthorized, "token verification failed")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnauthorized, "token carries no claims")
	}
	if iss, _ := claims["iss"].(string); iss != p.realmURL("") {
		return nil, errors.New(errors.ErrCodeUnauthorized, "token issued by foreign realm")
	}

	out := &TokenClaims{
		Subject:  stringClaim(claims, "sub"),
		Username: stringClaim(claims, "preferred_username"),
		Email:    stringClaim(claims, "email"),
		TenantID: stringClaim(claims, "tenant_id"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if access, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := access["roles"].([]interface{}); ok {
			for _, r := range roles {
				if s, ok := r.(string); ok {
					out.Roles = append(out.Roles, s)
				}
			}
		}
	}
	return out, nil
}

// Health checks the realm's OIDC discovery document.
func (p *Provider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.realmURL("/.well-known/openid-configuration"), nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keycloak discovery returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *Provider) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	p.mu.RLock()
	key, ok := p.keys[kid]
	p.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := p.refreshKeys(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if key, ok := p.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("no realm key with kid %q", kid)
}

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (p *Provider) refreshKeys(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.lastRefresh) < p.refreshMin && len(p.keys) > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.realmURL("/protocol/openid-connect/certs"), nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("jwks decode failed: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			p.logger.Warn("skipping unparsable realm key",
				logging.String("kid", k.Kid), logging.Err(err))
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("realm published no usable signing keys")
	}

	p.keys = keys
	p.lastRefresh = time.Now()
	p.logger.Debug("refreshed realm signing keys", logging.Int("count", len(keys)))
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

//Personal.AI order the ending
