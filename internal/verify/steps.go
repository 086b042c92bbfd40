package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/registry"
)

// stepSpec parameterizes the shared lookup-pseudonymize-judge-persist flow.
type stepSpec struct {
	key        string
	name       string
	client     registry.Client
	identifier func(model.Application) string
	identLabel string

	// review optionally forces requires_review after a complete verdict,
	// e.g. when an exclusion list is non-empty.
	review func(rec *registry.Record) (bool, string)
}

func builtinSteps(d Deps) []StepConfig {
	specs := []stepSpec{
		{
			key:        "npi",
			name:       "NPI Verification",
			client:     d.NPI,
			identifier: func(a model.Application) string { return a.NPINumber },
			identLabel: "NPI number",
		},
		{
			key:        "dea",
			name:       "DEA Registration Verification",
			client:     d.DEA,
			identifier: func(a model.Application) string { return a.DEANumber },
			identLabel: "DEA number",
		},
		{
			key:        "oig_sanctions",
			name:       "OIG Exclusion Screening",
			client:     d.OIG,
			identifier: func(a model.Application) string { return a.FullName() },
			identLabel: "practitioner name",
			review: func(rec *registry.Record) (bool, string) {
				exclusions, _ := rec.Fields["exclusions"].([]string)
				if len(exclusions) > 0 {
					return true, fmt.Sprintf("%d exclusion record(s) found", len(exclusions))
				}
				return false, ""
			},
		},
		{
			key:        "abms",
			name:       "Board Certification Verification",
			client:     d.ABMS,
			identifier: func(a model.Application) string { return a.LicenseNumber },
			identLabel: "license number",
		},
		{
			key:        "license_dca",
			name:       "State License Verification",
			client:     d.DCA,
			identifier: func(a model.Application) string { return a.LicenseNumber },
			identLabel: "license number",
			review: func(rec *registry.Record) (bool, string) {
				if disciplined, _ := rec.Fields["disciplinary_action"].(bool); disciplined {
					return true, "disciplinary action on record"
				}
				return false, ""
			},
		},
		{
			key:        "medical_education",
			name:       "Medical Education Verification",
			client:     d.Education,
			identifier: func(a model.Application) string { return a.FullName() },
			identLabel: "practitioner name",
		},
	}

	configs := make([]StepConfig, 0, len(specs))
	for _, spec := range specs {
		configs = append(configs, StepConfig{
			Key:  spec.key,
			Name: spec.name,
			Func: d.lookupStep(spec),
		})
	}
	return configs
}

// lookupStep builds the verification function for one spec. The returned
// function classifies every business outcome into a terminal response; an
// error return is reserved for infrastructure faults.
func (d Deps) lookupStep(spec stepSpec) StepFunc {
	return func(ctx context.Context, req StepRequest) (*model.StepResponse, error) {
		start := time.Now()
		app := req.Application
		log := zap.L().With(
			zap.Int64("application_id", app.ID),
			zap.String("step", spec.key),
		)

		ident := spec.identifier(app)
		if ident == "" {
			resp := newResponse(model.DecisionRequiresReview, model.StepStatusNotProvided,
				spec.identLabel+" not provided on application", start)
			d.persist(ctx, req, spec.key, resp, nil)
			return resp, nil
		}

		rec, err := spec.client.Lookup(ctx, registry.Query{
			Identifier: ident,
			FirstName:  app.FirstName,
			LastName:   app.LastName,
			State:      app.Address.State,
		})
		if errors.Is(err, registry.ErrNotFound) {
			resp := newResponse(model.DecisionRequiresReview, model.StepStatusNotFound,
				fmt.Sprintf("no %s record found for the supplied %s", spec.client.Source(), spec.identLabel), start)
			d.persist(ctx, req, spec.key, resp, nil)
			return resp, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "verify: %s lookup", spec.key)
		}

		if rec.Status == registry.StatusExpired {
			resp := newResponse(model.DecisionRequiresReview, model.StepStatusExpired,
				fmt.Sprintf("%s record expired %s", spec.client.Source(), rec.ExpirationDate), start)
			d.persist(ctx, req, spec.key, resp, map[string]any{"expiration_date": rec.ExpirationDate})
			return resp, nil
		}

		// Everything leaving the process from here on is pseudonymized.
		record := map[string]any{
			"application":   d.pseudonymizeApplication(app),
			"source_record": d.pseudonymizeRecord(ctx, rec),
		}
		if err := req.DB.LogEvent(ctx, app.ID, req.Requester, "pseudonymized:"+spec.key, "", false); err != nil {
			log.Warn("verify: failed to log pseudonymization event", zap.Error(err))
		}

		verdict, err := d.Judge.Evaluate(ctx, spec.key, record)
		if err != nil {
			d.saveInvocation(ctx, req, spec.key, "reasoning", "errored", record, nil)
			return nil, err
		}
		d.saveInvocation(ctx, req, spec.key, "reasoning", "succeeded", record, map[string]any{
			"decision":   string(verdict.Decision),
			"confidence": verdict.Confidence,
			"reasoning":  verdict.Reasoning,
		})

		resp := newResponse(verdict.Decision, model.StepStatusComplete, verdict.Reasoning, start)
		resp.Analysis = &model.Analysis{
			Decision:   verdict.Decision,
			Confidence: verdict.Confidence,
			Reasoning:  verdict.Reasoning,
			Flags:      verdict.Flags,
		}
		resp.Metadata.Usage = verdict.Usage

		if spec.review != nil {
			if flagged, reason := spec.review(rec); flagged {
				resp.Decision = model.DecisionRequiresReview
				resp.Reasoning = reason
				if resp.Analysis != nil {
					resp.Analysis.Flags = append(resp.Analysis.Flags, reason)
				}
			}
		}

		d.persist(ctx, req, spec.key, resp, map[string]any{
			"source":     spec.client.Source(),
			"confidence": verdict.Confidence,
		})
		return resp, nil
	}
}

// persist records the step outcome on the audit trail. Audit write failures
// degrade to warnings: the decision still flows back to the orchestrator.
func (d Deps) persist(ctx context.Context, req StepRequest, stepKey string, resp *model.StepResponse, extra map[string]any) {
	data := map[string]any{
		"decision":  string(resp.Decision),
		"reasoning": resp.Reasoning,
	}
	for k, v := range extra {
		data[k] = v
	}

	if _, err := req.DB.RecordChange(ctx, req.Application.ID, stepKey, resp.Metadata.Status, data, req.Requester, ""); err != nil {
		zap.L().Warn("verify: failed to record audit change",
			zap.Int64("application_id", req.Application.ID),
			zap.String("step", stepKey),
			zap.Error(err),
		)
	}
}

func (d Deps) saveInvocation(ctx context.Context, req StepRequest, stepKey, invType, status string, request, response map[string]any) {
	inv := &model.Invocation{
		ApplicationID:  req.Application.ID,
		StepKey:        stepKey,
		InvocationType: invType,
		Status:         status,
		Request:        request,
		Response:       response,
	}
	if err := req.DB.SaveInvocation(ctx, inv); err != nil {
		zap.L().Warn("verify: failed to save invocation",
			zap.Int64("application_id", req.Application.ID),
			zap.String("step", stepKey),
			zap.Error(err),
		)
	}
}
