package keycloak

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/testutil"
	"github.com/turtacn/CiteScope/pkg/errors"
)

type realmFixture struct {
	provider *Provider
	key      *rsa.PrivateKey
	issuer   string
	jwksHits int
}

func newRealmFixture(t *testing.T) *realmFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	f := &realmFixture{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/citescope/protocol/openid-connect/certs", func(w http.ResponseWriter, r *http.Request) {
		f.jwksHits++
		doc := map[string]interface{}{
			"keys": []map[string]string{{
				"kid": "k1",
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		}
		json.NewEncoder(w).Encode(doc) //nolint:errcheck
	})
	mux.HandleFunc("/realms/citescope/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"issuer":"test"}`)) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := NewProvider(config.AuthConfig{
		IssuerURL: srv.URL,
		Realm:     "citescope",
	}, testutil.NewMockLogger())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	f.provider = p
	f.issuer = srv.URL + "/realms/citescope"
	return f
}

func (f *realmFixture) signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = f.issuer
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString(f.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestNewProviderValidation(t *testing.T) {
	log := testutil.NewMockLogger()
	if _, err := NewProvider(config.AuthConfig{Realm: "r"}, log); err == nil {
		t.Error("expected error without issuer url")
	}
	if _, err := NewProvider(config.AuthConfig{IssuerURL: "http://kc"}, log); err == nil {
		t.Error("expected error without realm")
	}
}

func TestVerifyTokenExtractsClaims(t *testing.T) {
	f := newRealmFixture(t)
	raw := f.signToken(t, jwt.MapClaims{
		"sub":                "user-1",
		"preferred_username": "alice",
		"email":              "alice@example.com",
		"tenant_id":          "t1",
		"realm_access":       map[string]interface{}{"roles": []interface{}{"analyst"}},
	})

	claims, err := f.provider.VerifyToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" {
		t.Errorf("identity claims = %+v", claims)
	}
	if claims.TenantID != "t1" {
		t.Errorf("tenant = %q, want t1", claims.TenantID)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "analyst" {
		t.Errorf("roles = %v", claims.Roles)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	f := newRealmFixture(t)
	raw := f.signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := f.provider.VerifyToken(context.Background(), raw)
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Fatalf("err = %v, want %s", err, errors.ErrCodeUnauthorized)
	}
}

func TestVerifyTokenRejectsForeignIssuer(t *testing.T) {
	f := newRealmFixture(t)
	raw := f.signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "https://evil.example/realms/citescope",
	})

	if _, err := f.provider.VerifyToken(context.Background(), raw); err == nil {
		t.Fatal("expected rejection of foreign issuer")
	}
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	f := newRealmFixture(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "user-1",
		"iss": f.issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString(other)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := f.provider.VerifyToken(context.Background(), raw); err == nil {
		t.Fatal("expected signature rejection")
	}
}

func TestJWKSFetchedOncePerRefreshWindow(t *testing.T) {
	f := newRealmFixture(t)
	raw := f.signToken(t, jwt.MapClaims{"sub": "user-1"})

	for i := 0; i < 3; i++ {
		if _, err := f.provider.VerifyToken(context.Background(), raw); err != nil {
			t.Fatalf("VerifyToken #%d: %v", i+1, err)
		}
	}
	if f.jwksHits != 1 {
		t.Errorf("jwks hits = %d, want 1", f.jwksHits)
	}
}

func TestHealth(t *testing.T) {
	f := newRealmFixture(t)
	if err := f.provider.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

//Personal.AI order the ending
