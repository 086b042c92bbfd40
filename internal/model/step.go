package model

import "time"

// Decision is the binary outcome of a verification step.
type Decision string

const (
	DecisionApproved       Decision = "approved"
	DecisionRequiresReview Decision = "requires_review"
)

// NormalizeDecision maps unknown or empty decision values to the safe
// default. Verification outcomes fail closed: anything that is not an
// explicit approval requires a human to look at it.
func NormalizeDecision(d Decision) Decision {
	if d == DecisionApproved {
		return DecisionApproved
	}
	return DecisionRequiresReview
}

// StepStatus is the fine-grained terminal classification of a step
// invocation, independent of its decision.
type StepStatus string

const (
	StepStatusNotStarted  StepStatus = "not_started"
	StepStatusComplete    StepStatus = "complete"
	StepStatusFailed      StepStatus = "failed"
	StepStatusNotFound    StepStatus = "not_found"
	StepStatusNotProvided StepStatus = "not_provided"
	StepStatusExpired     StepStatus = "expired"
)

// TokenUsage tracks reasoning-service token consumption for one step.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
}

// Add accumulates usage from another counter.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Analysis is the structured output of the judge for one step.
type Analysis struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Flags      []string `json:"flags,omitempty"`
}

// StepMetadata records how a step invocation went.
type StepMetadata struct {
	Status      StepStatus `json:"status"`
	ProcessedAt time.Time  `json:"processed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms,omitempty"`
	Usage       TokenUsage `json:"usage,omitempty"`
}

// StepResponse is returned by every verification function call, success or
// failure. A business-logic problem never surfaces as an error: it is
// classified into Metadata.Status and a fail-closed Decision.
type StepResponse struct {
	Decision    Decision     `json:"decision"`
	Metadata    StepMetadata `json:"metadata"`
	Analysis    *Analysis    `json:"analysis,omitempty"`
	Reasoning   string       `json:"reasoning,omitempty"`
	DocumentURL string       `json:"document_url,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Normalize applies the fail-closed default to the decision.
func (r *StepResponse) Normalize() {
	r.Decision = NormalizeDecision(r.Decision)
}
