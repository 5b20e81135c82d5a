package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/CiteScope/internal/config"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
)

// Client is the HTTP implementation of Provider.  Transient failures
// (network errors, 5xx, 429) are retried with exponential backoff; 4xx
// responses are not retried.
type Client struct {
	endpoint       string
	apiKey         string
	model          string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	httpClient     *http.Client
	logger         logging.Logger
}

func NewClient(cfg config.AnalysisConfig, log logging.Logger) *Client {
	return &Client{
		endpoint:       cfg.Endpoint,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		logger:         log,
	}
}

type scoreAPIRequest struct {
	Model         string `json:"model,omitempty"`
	Reference     string `json:"reference"`
	ElementText   string `json:"element_text"`
	CandidateText string `json:"candidate_text"`
}

type deepAPIRequest struct {
	Model        string         `json:"model,omitempty"`
	Reference    string         `json:"reference"`
	ClaimText    string         `json:"claim_text"`
	Elements     []ElementInput `json:"elements"`
	DocumentText string         `json:"document_text"`
}

func (c *Client) ScoreMatch(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	body := scoreAPIRequest{
		Model:         c.model,
		Reference:     req.Reference,
		ElementText:   req.ElementText,
		CandidateText: req.CandidateText,
	}

	var result ScoreResult
	if err := c.post(ctx, "/v1/score", body, &result); err != nil {
		return nil, err
	}
	// The provider is not trusted on bounds.
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 1 {
		result.Score = 1
	}
	return &result, nil
}

func (c *Client) AnalyzeReference(ctx context.Context, req DeepRequest) (*DeepResult, error) {
	body := deepAPIRequest{
		Model:        c.model,
		Reference:    req.Reference,
		ClaimText:    req.ClaimText,
		Elements:     req.Elements,
		DocumentText: req.DocumentText,
	}

	var result DeepResult
	if err := c.post(ctx, "/v1/analyze", body, &result); err != nil {
		return nil, err
	}
	for i := range result.Elements {
		if result.Elements[i].Relevance < 0 {
			result.Elements[i].Relevance = 0
		}
		if result.Elements[i].Relevance > 1 {
			result.Elements[i].Relevance = 1
		}
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now().UTC()
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode provider request")
	}

	backoff := c.initialBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrCodeAnalysisUnavailable, "analysis request cancelled")
			case <-time.After(backoff):
			}
			backoff *= 2
			if c.maxBackoff > 0 && backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		retryable, err := c.doOnce(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		c.logger.Warn("analysis provider request failed, retrying",
			logging.String("path", path),
			logging.Int("attempt", attempt+1),
			logging.Err(err),
		)
	}
	return lastErr
}

// doOnce performs a single request.  The bool reports whether the failure
// is worth retrying.
func (c *Client) doOnce(ctx context.Context, path string, payload []byte, dest interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternal, "failed to build provider request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, errors.Wrap(ctx.Err(), errors.ErrCodeAnalysisUnavailable, "analysis request cancelled")
		}
		return true, errors.Wrap(err, errors.ErrCodeAnalysisUnavailable, "analysis provider unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode provider response")
		}
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return true, errors.New(errors.ErrCodeAnalysisUnavailable,
			fmt.Sprintf("analysis provider returned status %d", resp.StatusCode))
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, errors.New(errors.ErrCodeExternalService,
			fmt.Sprintf("analysis provider rejected request: status %d", resp.StatusCode)).
			WithDetail(string(raw))
	}
}

//Personal.AI order the ending
