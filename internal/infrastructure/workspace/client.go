// Package workspace is the pipeline's boundary to the drafting workspace.
// It fetches the claim under analysis for a search session; everything else
// about the workspace (editing, auth, storage) stays on the workspace side.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/domain/claim"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// Client implements claim.Source against the workspace HTTP API.  Transient
// failures are retried; a claim the workspace cannot serve surfaces as
// ErrCodeClaimUnavailable so jobs fail with a cause the caller can act on.
type Client struct {
	endpoint   string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	logger     logging.Logger
}

func NewClient(cfg config.WorkspaceConfig, log logging.Logger) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     log,
	}
}

type claimResponse struct {
	Claim *claim.Claim `json:"claim"`
}

// GetClaim fetches the decomposed claim of one search session.
func (c *Client) GetClaim(ctx context.Context, scope common.Scope, searchID common.SearchHistoryID) (*claim.Claim, error) {
	path := fmt.Sprintf("%s/internal/v1/search-sessions/%s/claim",
		c.endpoint, url.PathEscape(string(searchID)))

	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeClaimUnavailable, "claim fetch cancelled")
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		cl, retryable, err := c.fetchOnce(ctx, path, scope)
		if err == nil {
			return cl, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("workspace claim fetch failed, retrying",
			logging.String("search_history_id", string(searchID)),
			logging.Int("attempt", attempt+1),
			logging.Err(err),
		)
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, path string, scope common.Scope) (*claim.Claim, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeInternal, "failed to build workspace request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("X-Tenant-ID", string(scope.TenantID))
	req.Header.Set("X-Project-ID", string(scope.ProjectID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, errors.Wrap(ctx.Err(), errors.ErrCodeClaimUnavailable, "claim fetch cancelled")
		}
		return nil, true, errors.Wrap(err, errors.ErrCodeClaimUnavailable, "workspace unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body claimResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode workspace response")
		}
		if body.Claim == nil || len(body.Claim.Elements) == 0 {
			return nil, false, errors.New(errors.ErrCodeClaimUnavailable,
				"workspace returned no decomposed claim for the session")
		}
		return body.Claim, false, nil
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, false, errors.New(errors.ErrCodeSearchSessionNotFound, "search session not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, true, errors.New(errors.ErrCodeClaimUnavailable,
			fmt.Sprintf("workspace returned status %d", resp.StatusCode))
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, false, errors.New(errors.ErrCodeClaimUnavailable,
			fmt.Sprintf("workspace rejected claim fetch: status %d", resp.StatusCode)).
			WithDetail(string(raw))
	}
}

//Personal.AI order the ending
