package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
)

// ErrNotFound is returned when a requested application does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface shared by the orchestrator and
// the verification functions. The audit trail and step-state tables are
// append-only; nothing in this interface updates or deletes history.
type Store interface {
	// Applications
	LoadApplication(ctx context.Context, applicationID int64) (*model.Application, error)
	SaveApplication(ctx context.Context, app *model.Application) error
	SetApplicationInProgress(ctx context.Context, applicationID int64, actorID string) error
	SetApplicationReadyForReview(ctx context.Context, applicationID int64, actorID string) error

	// Events. With preventDuplicates set, a write is skipped when an
	// identical (application, actor, action) tuple already exists.
	LogEvent(ctx context.Context, applicationID int64, actorID, action, notes string, preventDuplicates bool) error

	// Audit trail. RecordChange reads the latest entry for the
	// (application, step) pair and snapshots its status and data onto the
	// new row before inserting.
	RecordChange(ctx context.Context, applicationID int64, stepKey string, status model.StepStatus, data map[string]any, changedBy, notes string) (*model.AuditEntry, error)
	LatestChange(ctx context.Context, applicationID int64, stepKey string) (*model.AuditEntry, error)

	// Step state. CheckExistingStepState returns (nil, nil) when no
	// decision has been recorded yet; the latest row by decided_at wins.
	LogStepState(ctx context.Context, applicationID int64, stepKey string, decision model.Decision, decidedBy, notes string) (*model.StepState, error)
	CheckExistingStepState(ctx context.Context, applicationID int64, stepKey string) (*model.StepState, error)

	// Invocations
	SaveInvocation(ctx context.Context, inv *model.Invocation) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
