// Package judge evaluates pseudonymized verification records with the
// reasoning service and parses its structured verdicts.
package judge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/config"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/resilience"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/anthropic"
)

// Verdict is the parsed judge output for one step.
type Verdict struct {
	Decision   model.Decision   `json:"decision"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
	Flags      []string         `json:"flags,omitempty"`
	Usage      model.TokenUsage `json:"-"`
}

// Judge wraps the reasoning service with rate limiting and retries. One
// Judge is shared by all steps of all jobs; the limiter is the process-wide
// throttle on outbound reasoning calls.
type Judge struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// New creates a Judge from configuration.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Judge {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Judge{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		retry:     resilience.DefaultRetryConfig(),
	}
}

const systemPrompt = `You are a credentialing verification analyst. You receive one
verification record as JSON: a practitioner's pseudonymized application data
alongside the record returned by an authoritative source. Compare them and
respond with JSON only, no prose, in this shape:
{"decision": "approved" | "requires_review", "confidence": 0.0-1.0,
 "reasoning": "...", "flags": ["..."]}
Approve only when the source record corroborates the application with no
discrepancies. Anything ambiguous requires review.`

// Evaluate submits a pseudonymized record for the given step and parses the
// verdict. Errors are infrastructure faults (unreachable service, malformed
// output); business outcomes are encoded in the verdict itself.
func (j *Judge) Evaluate(ctx context.Context, stepKey string, record map[string]any) (*Verdict, error) {
	payload, err := json.Marshal(map[string]any{
		"step":   stepKey,
		"record": record,
	})
	if err != nil {
		return nil, eris.Wrap(err, "judge: marshal record")
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "judge: rate limit wait")
	}

	temperature := 0.0
	resp, err := resilience.DoVal(ctx, j.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return j.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       j.model,
			MaxTokens:   j.maxTokens,
			System:      systemPrompt,
			Temperature: &temperature,
			Messages: []anthropic.Message{
				{Role: "user", Content: string(payload)},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "judge: evaluate %s", stepKey)
	}

	verdict, err := parseVerdict(resp.Text())
	if err != nil {
		return nil, eris.Wrapf(err, "judge: parse verdict for %s", stepKey)
	}
	verdict.Usage = model.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	resp.Usage.LogUsage(j.model, stepKey)
	return verdict, nil
}

// parseVerdict extracts the verdict JSON from the response text, tolerating
// markdown code fences around the object.
func parseVerdict(text string) (*Verdict, error) {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, eris.Wrap(err, "unmarshal verdict")
	}
	v.Decision = model.NormalizeDecision(v.Decision)
	return &v, nil
}
