package presidio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/resilience"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyze_GroupsFindingsByEntityType(t *testing.T) {
	text := "Contact Jane Doe at jane@clinic.org or John Roe."

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, text, req.Text)
		assert.Equal(t, "en", req.Language)

		findings := []finding{
			{EntityType: "PERSON", Start: 8, End: 16, Score: 0.85},
			{EntityType: "EMAIL_ADDRESS", Start: 20, End: 35, Score: 0.99},
			{EntityType: "PERSON", Start: 39, End: 47, Score: 0.85},
		}
		require.NoError(t, json.NewEncoder(w).Encode(findings))
	})

	c := NewClient(WithBaseURL(srv.URL))
	entities, err := c.Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []string{"Jane Doe", "John Roe"}, entities["PERSON"])
	assert.Equal(t, []string{"jane@clinic.org"}, entities["EMAIL_ADDRESS"])
}

func TestAnalyze_LanguageOption(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "es", req.Language)
		_, _ = w.Write([]byte("[]"))
	})

	c := NewClient(WithBaseURL(srv.URL), WithLanguage("es"))
	entities, err := c.Analyze(context.Background(), "hola")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestAnalyze_SkipsOutOfRangeSpans(t *testing.T) {
	text := "short"

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		findings := []finding{
			{EntityType: "PERSON", Start: -1, End: 3},
			{EntityType: "PERSON", Start: 2, End: 99},
			{EntityType: "PERSON", Start: 4, End: 2},
			{EntityType: "PERSON", Start: 0, End: 5},
		}
		require.NoError(t, json.NewEncoder(w).Encode(findings))
	})

	c := NewClient(WithBaseURL(srv.URL))
	entities, err := c.Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []string{"short"}, entities["PERSON"])
}

func TestAnalyze_ServerErrorIsTransient(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Analyze(context.Background(), "text")

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestAnalyze_ClientErrorIsNotTransient(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	})

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Analyze(context.Background(), "text")

	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Analyze(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestAnalyze_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	})

	c := NewClient(WithBaseURL(srv.URL))
	for range 3 {
		_, err := c.Analyze(context.Background(), "text")
		require.Error(t, err)
	}

	// The breaker now rejects without reaching the server.
	_, err := c.Analyze(context.Background(), "text")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int64(3), hits.Load())
}

func TestAnalyze_ContextCancellation(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Analyze(ctx, "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}
