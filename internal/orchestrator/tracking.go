package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/verify"
)

// Tracking identifies one step execution on the application event log.
type Tracking struct {
	ApplicationID int64
	StepKey       string
	Actor         string
}

// tracked wraps a verification function with lifecycle events. Every
// execution logs a started event and exactly one of completed or failed.
// Event-log write failures degrade to warnings so tracking can never change
// a step's outcome.
func tracked(t Tracking, fn verify.StepFunc) verify.StepFunc {
	return func(ctx context.Context, req verify.StepRequest) (*model.StepResponse, error) {
		log := zap.L().With(
			zap.Int64("application_id", t.ApplicationID),
			zap.String("step", t.StepKey),
		)

		if err := req.DB.LogEvent(ctx, t.ApplicationID, t.Actor, "step_started:"+t.StepKey, "", false); err != nil {
			log.Warn("orchestrator: failed to log step start", zap.Error(err))
		}

		resp, err := fn(ctx, req)
		if err != nil {
			if logErr := req.DB.LogEvent(ctx, t.ApplicationID, t.Actor, "step_failed:"+t.StepKey, err.Error(), false); logErr != nil {
				log.Warn("orchestrator: failed to log step failure", zap.Error(logErr))
			}
			return nil, err
		}

		if logErr := req.DB.LogEvent(ctx, t.ApplicationID, t.Actor, "step_completed:"+t.StepKey, string(resp.Metadata.Status), false); logErr != nil {
			log.Warn("orchestrator: failed to log step completion", zap.Error(logErr))
		}
		return resp, nil
	}
}
