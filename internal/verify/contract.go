// Package verify defines the verification step contract and the built-in
// verification functions. A step classifies every outcome into exactly one
// terminal metadata status plus a fail-closed binary decision; business
// problems are responses, never errors. Only genuine infrastructure faults
// (unreachable judge, malformed judge output) escape a step function, and
// the orchestrator normalizes those at its fan-out boundary.
package verify

import (
	"context"
	"sort"
	"time"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/judge"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/pseudonym"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/store"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/registry"
)

// StepRequest carries everything a verification function needs. It is
// passed by value and never mutated by the orchestrator after creation.
type StepRequest struct {
	Application model.Application
	Requester   string
	DB          store.Store
}

// StepFunc is the contract every verification function satisfies: one
// response per call, success or failure.
type StepFunc func(ctx context.Context, req StepRequest) (*model.StepResponse, error)

// StepConfig describes one registered verification step.
type StepConfig struct {
	Key  string
	Name string
	Func StepFunc
}

// Evaluator is the judge surface the steps depend on; satisfied by
// *judge.Judge and by test fakes.
type Evaluator interface {
	Evaluate(ctx context.Context, stepKey string, record map[string]any) (*judge.Verdict, error)
}

// Deps are the shared collaborators injected into the built-in steps.
type Deps struct {
	Judge    Evaluator
	Engine   *pseudonym.Engine
	Detector pseudonym.Detector

	NPI       registry.Client
	DEA       registry.Client
	OIG       registry.Client
	ABMS      registry.Client
	DCA       registry.Client
	Education registry.Client
}

// Registry maps step keys to their configurations.
type Registry struct {
	steps map[string]StepConfig
}

// NewRegistry builds a registry containing the built-in steps.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{steps: make(map[string]StepConfig)}
	for _, cfg := range builtinSteps(deps) {
		r.Register(cfg)
	}
	return r
}

// NewEmptyRegistry builds a registry with no steps; callers compose their
// own set via Register.
func NewEmptyRegistry() *Registry {
	return &Registry{steps: make(map[string]StepConfig)}
}

// Register adds or replaces a step configuration.
func (r *Registry) Register(cfg StepConfig) {
	r.steps[cfg.Key] = cfg
}

// Get returns the configuration for a step key.
func (r *Registry) Get(key string) (StepConfig, bool) {
	cfg, ok := r.steps[key]
	return cfg, ok
}

// Keys returns all registered step keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.steps))
	for k := range r.steps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newResponse stamps a terminal response for a step started at start.
func newResponse(decision model.Decision, status model.StepStatus, reasoning string, start time.Time) *model.StepResponse {
	resp := &model.StepResponse{
		Decision:  decision,
		Reasoning: reasoning,
		Metadata: model.StepMetadata{
			Status:      status,
			ProcessedAt: time.Now().UTC(),
			DurationMS:  time.Since(start).Milliseconds(),
		},
	}
	resp.Normalize()
	return resp
}
