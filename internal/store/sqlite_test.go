package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedApplication(t *testing.T, st *SQLiteStore, id int64) {
	t.Helper()
	require.NoError(t, st.SaveApplication(context.Background(), &model.Application{
		ID:        id,
		FirstName: "Jane",
		LastName:  "Doe",
		NPINumber: "1234567890",
	}))
}

// --- Applications ---

func TestSQLite_Application_SaveAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedApplication(t, st, 123)

	app, err := st.LoadApplication(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), app.ID)
	assert.Equal(t, "Jane Doe", app.FullName())
	assert.Equal(t, "1234567890", app.NPINumber)
}

func TestSQLite_Application_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.LoadApplication(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Application_StatusTransitions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedApplication(t, st, 123)

	require.NoError(t, st.SetApplicationInProgress(ctx, 123, "analyst-1"))
	require.NoError(t, st.SetApplicationReadyForReview(ctx, 123, "analyst-1"))

	var status string
	err := st.db.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = 123`).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, string(model.ApplicationStatusReadyForReview), status)
}

func TestSQLite_Application_StatusTransitionMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SetApplicationInProgress(context.Background(), 999, "analyst-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Application_StatusTransitionIdempotentEvent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedApplication(t, st, 123)

	// Repeating the transition must not accumulate duplicate events.
	require.NoError(t, st.SetApplicationInProgress(ctx, 123, "analyst-1"))
	require.NoError(t, st.SetApplicationInProgress(ctx, 123, "analyst-1"))

	assert.Equal(t, 1, countEvents(t, st, 123, "analyst-1", "application_in_progress"))
}

// --- Events ---

func countEvents(t *testing.T, st *SQLiteStore, appID int64, actorID, action string) int {
	t.Helper()
	var n int
	err := st.db.QueryRow(
		`SELECT COUNT(*) FROM application_events WHERE application_id = ? AND actor_id = ? AND action = ?`,
		appID, actorID, action,
	).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestSQLite_LogEvent_DedupExactTuple(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.LogEvent(ctx, 1, "actor-a", "step_started:npi", "", true))
	require.NoError(t, st.LogEvent(ctx, 1, "actor-a", "step_started:npi", "", true))
	assert.Equal(t, 1, countEvents(t, st, 1, "actor-a", "step_started:npi"))

	// A different actor or action is a different tuple.
	require.NoError(t, st.LogEvent(ctx, 1, "actor-b", "step_started:npi", "", true))
	require.NoError(t, st.LogEvent(ctx, 1, "actor-a", "step_started:dea", "", true))
	assert.Equal(t, 1, countEvents(t, st, 1, "actor-b", "step_started:npi"))
	assert.Equal(t, 1, countEvents(t, st, 1, "actor-a", "step_started:dea"))
}

func TestSQLite_LogEvent_DuplicatesAllowedByDefault(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.LogEvent(ctx, 1, "actor-a", "step_started:npi", "", false))
	require.NoError(t, st.LogEvent(ctx, 1, "actor-a", "step_started:npi", "", false))
	assert.Equal(t, 2, countEvents(t, st, 1, "actor-a", "step_started:npi"))
}

// --- Audit trail ---

func TestSQLite_RecordChange_ChainsPreviousState(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.RecordChange(ctx, 123, "npi", model.StepStatusNotStarted,
		map[string]any{"phase": "queued"}, "system", "")
	require.NoError(t, err)
	assert.Empty(t, first.PreviousStatus)
	assert.Nil(t, first.PreviousData)

	time.Sleep(5 * time.Millisecond)
	second, err := st.RecordChange(ctx, 123, "npi", model.StepStatusComplete,
		map[string]any{"decision": "approved"}, "system", "")
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusNotStarted, second.PreviousStatus)
	assert.Equal(t, map[string]any{"phase": "queued"}, second.PreviousData)

	// The stored row carries the chain too, not just the returned struct.
	latest, err := st.LatestChange(ctx, 123, "npi")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, model.StepStatusNotStarted, latest.PreviousStatus)
	assert.Equal(t, map[string]any{"phase": "queued"}, latest.PreviousData)
}

func TestSQLite_RecordChange_SeparateStepsDoNotChain(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RecordChange(ctx, 123, "npi", model.StepStatusComplete, nil, "system", "")
	require.NoError(t, err)

	entry, err := st.RecordChange(ctx, 123, "dea", model.StepStatusComplete, nil, "system", "")
	require.NoError(t, err)
	assert.Empty(t, entry.PreviousStatus)
}

func TestSQLite_LatestChange_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	entry, err := st.LatestChange(context.Background(), 123, "npi")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// --- Step state ---

func TestSQLite_StepState_NoneRecorded(t *testing.T) {
	st := newTestSQLiteStore(t)

	state, err := st.CheckExistingStepState(context.Background(), 123, "npi")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSQLite_StepState_LatestWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.LogStepState(ctx, 123, "npi", model.DecisionRequiresReview, "job-1", "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := st.LogStepState(ctx, 123, "npi", model.DecisionApproved, "job-2", "")
	require.NoError(t, err)

	state, err := st.CheckExistingStepState(ctx, 123, "npi")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, second.ID, state.ID)
	assert.Equal(t, model.DecisionApproved, state.Decision)
	assert.Equal(t, "job-2", state.DecidedBy)
}

func TestSQLite_StepState_HistoryRetained(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.LogStepState(ctx, 123, "npi", model.DecisionApproved, "job-1", "")
	require.NoError(t, err)
	_, err = st.LogStepState(ctx, 123, "npi", model.DecisionApproved, "job-2", "")
	require.NoError(t, err)

	var n int
	require.NoError(t, st.db.QueryRow(
		`SELECT COUNT(*) FROM step_states WHERE application_id = 123 AND step_key = 'npi'`,
	).Scan(&n))
	assert.Equal(t, 2, n)
}

// --- Invocations ---

func TestSQLite_SaveInvocation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	inv := &model.Invocation{
		ApplicationID:  123,
		StepKey:        "npi",
		InvocationType: "reasoning",
		Status:         "succeeded",
		Request:        map[string]any{"step": "npi"},
		Response:       map[string]any{"decision": "approved"},
	}
	require.NoError(t, st.SaveInvocation(ctx, inv))
	assert.NotEmpty(t, inv.ID)
	assert.False(t, inv.CreatedAt.IsZero())

	var n int
	require.NoError(t, st.db.QueryRow(
		`SELECT COUNT(*) FROM invocations WHERE application_id = 123 AND step_key = 'npi'`,
	).Scan(&n))
	assert.Equal(t, 1, n)
}
