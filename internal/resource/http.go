package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/redline/internal/retry"
	"github.com/redline/pkg/models"
)

// HTTPStore talks to the upstream document service. Every request carries a
// bearer token and a correlation id; writes carry the expected version in
// If-Match. Rate limiting and transient-failure retries happen here so
// callers only ever see the contract's typed errors.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

// NewHTTPStore builds a client for the document service at baseURL.
func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 5), // 5 requests per second
		retry:   retry.DefaultConfig(),
	}
}

// WithRetryConfig overrides the transient-failure retry policy.
func (s *HTTPStore) WithRetryConfig(cfg retry.Config) *HTTPStore {
	s.retry = cfg
	return s
}

func (s *HTTPStore) Get(ctx context.Context, id string) (models.Resource, error) {
	var doc models.Resource
	err := s.do(ctx, http.MethodGet, s.noteURL(id), nil, id, 0, &doc)
	if err != nil {
		return models.Resource{}, fmt.Errorf("fetching resource %s: %w", id, err)
	}
	return doc, nil
}

func (s *HTTPStore) Update(ctx context.Context, id, content string, expectedVersion int64) (models.Resource, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return models.Resource{}, fmt.Errorf("encoding update for resource %s: %w", id, err)
	}

	var doc models.Resource
	err = s.do(ctx, http.MethodPut, s.noteURL(id), body, id, expectedVersion, &doc)
	if err != nil {
		return models.Resource{}, fmt.Errorf("updating resource %s: %w", id, err)
	}
	return doc, nil
}

func (s *HTTPStore) noteURL(id string) string {
	return s.baseURL + "/notes/" + url.PathEscape(id)
}

// do runs one logical request through the rate limiter and the retry
// policy. The correlation id is minted once per logical request and reused
// across attempts. 404 and 409 are terminal: they become the contract's
// typed errors and are never retried.
func (s *HTTPStore) do(ctx context.Context, method, reqURL string, body []byte, id string, expectedVersion int64, out *models.Resource) error {
	correlationID := uuid.NewString()

	return retry.Do(ctx, s.retry, isTransient, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("X-Correlation-ID", correlationID)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("If-Match", strconv.FormatInt(expectedVersion, 10))
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return &transientError{err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decoding document service response: %w", err)
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			return &NotFoundError{ID: id}

		case resp.StatusCode == http.StatusConflict:
			return conflictFromResponse(resp, id, expectedVersion)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &transientError{err: fmt.Errorf("document service returned %d", resp.StatusCode)}

		default:
			return fmt.Errorf("document service returned unexpected status %d", resp.StatusCode)
		}
	})
}

// conflictFromResponse extracts the server's current version from a 409
// body, falling back to zero when the body is opaque.
func conflictFromResponse(resp *http.Response, id string, expected int64) error {
	var payload struct {
		Error   string `json:"error"`
		Version int64  `json:"version"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	return &VersionConflictError{ID: id, Expected: expected, Found: payload.Version}
}

// transientError marks a failure worth retrying: transport errors, 429,
// and upstream 5xx.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
