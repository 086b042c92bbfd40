// Package orchestrator runs verification jobs: it fans requested steps out
// across goroutines with failure isolation, enforces at-most-once
// decisioning per (application, step) via the step-state idempotency check,
// and aggregates every step outcome into a single JobResult.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/config"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/store"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/verify"
)

// DefaultRequester tags writes when the caller supplies no actor.
const DefaultRequester = "system"

// Orchestrator coordinates verification jobs against one store and one step
// registry. It is safe for concurrent use.
type Orchestrator struct {
	store store.Store
	steps *verify.Registry
	cfg   config.OrchestratorConfig
}

func New(st store.Store, steps *verify.Registry, cfg config.OrchestratorConfig) *Orchestrator {
	if cfg.MaxStepsPerJob <= 0 {
		cfg.MaxStepsPerJob = 8
	}
	if cfg.JobTimeoutSecs <= 0 {
		cfg.JobTimeoutSecs = 600
	}
	return &Orchestrator{store: st, steps: steps, cfg: cfg}
}

// StepKeys returns the registered step keys in sorted order.
func (o *Orchestrator) StepKeys() []string {
	return o.steps.Keys()
}

// ProcessJob runs the requested verification steps for one application.
//
// Unknown step keys fail the whole job before any side effects. Steps with
// an existing recorded decision are skipped and their responses
// reconstructed from the stored state; the rest run concurrently, bounded
// by MaxStepsPerJob, with per-step error capture. An error escaping a
// verification function is normalized right here into a failed response;
// it never aborts sibling steps. The returned JobResult carries one
// response per requested step.
func (o *Orchestrator) ProcessJob(ctx context.Context, applicationID int64, requestedSteps []string, requester string) (*model.JobResult, error) {
	if requester == "" {
		requester = DefaultRequester
	}

	keys := dedupe(requestedSteps)
	if len(keys) == 0 {
		return nil, eris.New("orchestrator: no verification steps requested")
	}

	configs := make([]verify.StepConfig, 0, len(keys))
	var unknown []string
	for _, key := range keys {
		cfg, ok := o.steps.Get(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		configs = append(configs, cfg)
	}
	if len(unknown) > 0 {
		return nil, eris.Errorf("orchestrator: unknown step key(s) %q (available: %s)",
			unknown, strings.Join(o.steps.Keys(), ", "))
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout())
	defer cancel()

	log := zap.L().With(
		zap.Int64("application_id", applicationID),
		zap.Strings("steps", keys),
		zap.String("requester", requester),
	)
	log.Info("orchestrator: starting verification job")

	app, err := o.store.LoadApplication(ctx, applicationID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: load application %d", applicationID)
	}
	if err := o.store.SetApplicationInProgress(ctx, applicationID, requester); err != nil {
		return nil, eris.Wrapf(err, "orchestrator: mark application %d in progress", applicationID)
	}

	result := &model.JobResult{
		ApplicationID: applicationID,
		Results:       make(map[string]model.StepResponse, len(keys)),
		Summary:       model.JobSummary{TotalRequested: len(keys)},
	}

	// Idempotency sweep. Decided steps are reconstructed, not re-run.
	var pending []verify.StepConfig
	for _, cfg := range configs {
		existing, err := o.store.CheckExistingStepState(ctx, applicationID, cfg.Key)
		if err != nil {
			return nil, eris.Wrapf(err, "orchestrator: check step state for %s", cfg.Key)
		}
		if existing != nil {
			result.Results[cfg.Key] = *reconstructResponse(existing)
			result.Summary.SkippedExisting++
			result.Summary.SkippedSteps = append(result.Summary.SkippedSteps, cfg.Key)
			log.Info("orchestrator: skipping already-decided step",
				zap.String("step", cfg.Key),
				zap.String("decided_by", existing.DecidedBy),
			)
			continue
		}
		pending = append(pending, cfg)
	}
	result.Summary.NewlyProcessed = len(pending)

	responses := make([]*model.StepResponse, len(pending))
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxStepsPerJob)
	for i, cfg := range pending {
		g.Go(func() error {
			start := time.Now()
			resp, err := o.runStep(ctx, app, cfg, requester)
			if err != nil {
				log.Warn("orchestrator: step failed",
					zap.String("step", cfg.Key),
					zap.Error(err),
				)
				resp = failedResponse(err, start)
			}
			responses[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	for i, cfg := range pending {
		result.Results[cfg.Key] = *responses[i]
	}

	for _, resp := range result.Results {
		if resp.Metadata.Status == model.StepStatusComplete {
			result.Summary.Successful++
		} else {
			result.Summary.Failed++
		}
	}
	if result.Summary.Failed == 0 {
		result.Status = model.JobStatusCompleted
	} else {
		result.Status = model.JobStatusPartialFailure
	}

	if err := o.store.SetApplicationReadyForReview(ctx, applicationID, requester); err != nil {
		log.Warn("orchestrator: failed to mark application ready for review", zap.Error(err))
	}

	log.Info("orchestrator: job finished",
		zap.String("status", string(result.Status)),
		zap.Int("skipped_existing", result.Summary.SkippedExisting),
		zap.Int("newly_processed", result.Summary.NewlyProcessed),
		zap.Int("failed", result.Summary.Failed),
	)
	return result, nil
}

// ProcessStep is the single-step variant of ProcessJob.
func (o *Orchestrator) ProcessStep(ctx context.Context, applicationID int64, stepKey, requester string) (*model.StepResponse, error) {
	result, err := o.ProcessJob(ctx, applicationID, []string{stepKey}, requester)
	if err != nil {
		return nil, err
	}
	resp := result.Results[stepKey]
	return &resp, nil
}

// runStep executes one verification function with panic containment and
// records the authoritative decision row on success. A panic is converted
// into an ordinary error so it is normalized like any other escaped fault.
func (o *Orchestrator) runStep(ctx context.Context, app *model.Application, cfg verify.StepConfig, requester string) (resp *model.StepResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = eris.Errorf("orchestrator: step %s panicked: %v", cfg.Key, r)
		}
	}()

	fn := tracked(Tracking{ApplicationID: app.ID, StepKey: cfg.Key, Actor: requester}, cfg.Func)
	resp, err = fn(ctx, verify.StepRequest{
		Application: *app,
		Requester:   requester,
		DB:          o.store,
	})
	if err != nil {
		return nil, err
	}
	resp.Normalize()

	// Decisions are recorded only for executed steps; failed steps stay
	// undecided and eligible for retry. That covers a response that
	// reports failure without an accompanying error too.
	if resp.Metadata.Status == model.StepStatusFailed {
		return resp, nil
	}
	if _, err := o.store.LogStepState(ctx, app.ID, cfg.Key, resp.Decision, requester, resp.Reasoning); err != nil {
		zap.L().Warn("orchestrator: failed to record step state",
			zap.Int64("application_id", app.ID),
			zap.String("step", cfg.Key),
			zap.Error(err),
		)
	}
	return resp, nil
}

// reconstructResponse rebuilds a step response from a stored decision.
// Unknown stored decision values fail closed to requires_review.
func reconstructResponse(state *model.StepState) *model.StepResponse {
	return &model.StepResponse{
		Decision: model.NormalizeDecision(state.Decision),
		Metadata: model.StepMetadata{
			Status:      model.StepStatusComplete,
			ProcessedAt: state.DecidedAt,
		},
		Reasoning: fmt.Sprintf("previously decided by %s at %s",
			state.DecidedBy, state.DecidedAt.Format(time.RFC3339)),
	}
}

// failedResponse normalizes an escaped error into a terminal response. This
// is the only place escaped step errors become responses.
func failedResponse(err error, start time.Time) *model.StepResponse {
	return &model.StepResponse{
		Decision: model.DecisionRequiresReview,
		Metadata: model.StepMetadata{
			Status:      model.StepStatusFailed,
			ProcessedAt: time.Now().UTC(),
			DurationMS:  time.Since(start).Milliseconds(),
		},
		Error: err.Error(),
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
