// Package presidio provides a client for a Presidio-compatible PII
// entity-detection service.
package presidio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/resilience"
)

// Client defines the entity-detection operations used by text
// pseudonymization.
type Client interface {
	// Analyze returns detected PII literals grouped by entity type
	// (PERSON, EMAIL_ADDRESS, PHONE_NUMBER, ...).
	Analyze(ctx context.Context, text string) (map[string][]string, error)
}

// analyzeRequest is the Presidio /analyze request body.
type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// finding is one detected span in the Presidio response.
type finding struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Option configures the presidio client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithLanguage sets the analysis language. Default "en".
func WithLanguage(lang string) Option {
	return func(c *httpClient) {
		c.language = lang
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL  string
	language string
	http     *http.Client
	breaker  *resilience.CircuitBreaker
}

// NewClient creates a new detection client. Calls run through a circuit
// breaker: once the detector has failed repeatedly, further calls fail fast
// and the text pseudonymizer degrades to its fail-open path without waiting
// on timeouts.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  "http://localhost:5002",
		language: "en",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     20 * time.Second,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Analyze(ctx context.Context, text string) (map[string][]string, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	out, err := c.analyze(ctx, text)
	c.breaker.Record(err)
	return out, err
}

func (c *httpClient) analyze(ctx context.Context, text string) (map[string][]string, error) {
	payload, err := json.Marshal(analyzeRequest{Text: text, Language: c.language})
	if err != nil {
		return nil, eris.Wrap(err, "presidio: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "presidio: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "presidio: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "presidio: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("presidio: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var findings []finding
	if err := json.Unmarshal(body, &findings); err != nil {
		return nil, eris.Wrap(err, "presidio: unmarshal response")
	}

	entities := make(map[string][]string)
	for _, f := range findings {
		if f.Start < 0 || f.End > len(text) || f.Start >= f.End {
			continue
		}
		entities[f.EntityType] = append(entities[f.EntityType], text[f.Start:f.End])
	}
	return entities, nil
}
