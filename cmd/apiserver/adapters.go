package main

import (
	"context"
	"crypto/subtle"
	"net"
	"time"

	"github.com/turtacn/CiteScope/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/CiteScope/internal/infrastructure/database/postgres"
	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteScope/internal/interfaces/http/middleware"
	"github.com/turtacn/CiteScope/pkg/errors"
)

// Readiness checkers for the health handler.

type postgresHealth struct {
	conn *postgres.Connection
}

func (h *postgresHealth) Name() string                    { return "postgres" }
func (h *postgresHealth) Check(ctx context.Context) error { return h.conn.HealthCheck(ctx) }

type redisHealth struct {
	client *redisinfra.Client
}

func (h *redisHealth) Name() string                    { return "redis" }
func (h *redisHealth) Check(ctx context.Context) error { return h.client.Ping(ctx) }

type kafkaHealth struct {
	brokers []string
}

func (h *kafkaHealth) Name() string { return "kafka" }

func (h *kafkaHealth) Check(ctx context.Context) error {
	timeout := 3 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	conn, err := net.DialTimeout("tcp", h.brokers[0], timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// keycloakTokenValidator bridges the realm provider to the auth middleware.
type keycloakTokenValidator struct {
	provider *keycloak.Provider
}

func (v *keycloakTokenValidator) ValidateToken(ctx context.Context, token string) (*middleware.Principal, error) {
	claims, err := v.provider.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{
		Subject:  claims.Subject,
		TenantID: claims.TenantID,
		Method:   "bearer",
	}, nil
}

// staticAPIKeyValidator accepts the keys listed in configuration.  Intended
// for service-to-service callers (the drafting workspace backend).
type staticAPIKeyValidator struct {
	keys []string
}

func (v *staticAPIKeyValidator) ValidateAPIKey(ctx context.Context, key string) (*middleware.Principal, error) {
	for _, k := range v.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return &middleware.Principal{Subject: "service", Method: "api_key"}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeUnauthorized, "unknown api key")
}

//Personal.AI order the ending
