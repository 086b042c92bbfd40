package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and tests; the audit and step-state semantics are identical
// to the Postgres store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqldb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS applications (
	id         INTEGER PRIMARY KEY,
	data       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'new',
	updated_by TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS application_events (
	id             TEXT PRIMARY KEY,
	application_id INTEGER NOT NULL,
	actor_id       TEXT NOT NULL,
	action         TEXT NOT NULL,
	notes          TEXT,
	timestamp      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_trail (
	id              TEXT PRIMARY KEY,
	application_id  INTEGER NOT NULL,
	step_key        TEXT NOT NULL,
	status          TEXT NOT NULL,
	data            TEXT,
	notes           TEXT,
	changed_by      TEXT NOT NULL,
	timestamp       DATETIME NOT NULL,
	previous_status TEXT,
	previous_data   TEXT
);

CREATE TABLE IF NOT EXISTS step_states (
	id             TEXT PRIMARY KEY,
	application_id INTEGER NOT NULL,
	step_key       TEXT NOT NULL,
	decision       TEXT NOT NULL,
	decided_by     TEXT NOT NULL,
	decided_at     DATETIME NOT NULL,
	notes          TEXT
);

CREATE TABLE IF NOT EXISTS invocations (
	id              TEXT PRIMARY KEY,
	application_id  INTEGER NOT NULL,
	step_key        TEXT NOT NULL,
	invocation_type TEXT NOT NULL,
	status          TEXT NOT NULL,
	request         TEXT,
	response        TEXT,
	metadata        TEXT,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_app_actor_action ON application_events(application_id, actor_id, action);
CREATE INDEX IF NOT EXISTS idx_audit_app_step_ts ON audit_trail(application_id, step_key, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_states_app_step_ts ON step_states(application_id, step_key, decided_at DESC);
CREATE INDEX IF NOT EXISTS idx_invocations_app_step ON invocations(application_id, step_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadApplication(ctx context.Context, applicationID int64) (*model.Application, error) {
	var dataJSON string
	var status string
	var createdAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT data, status, created_at FROM applications WHERE id = ?`,
		applicationID,
	).Scan(&dataJSON, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get application %d", applicationID)
	}

	var app model.Application
	if err := json.Unmarshal([]byte(dataJSON), &app); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal application")
	}
	app.ID = applicationID
	app.CreatedAt = createdAt
	return &app, nil
}

func (s *SQLiteStore) SaveApplication(ctx context.Context, app *model.Application) error {
	dataJSON, err := json.Marshal(app)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal application")
	}

	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO applications (id, data, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		app.ID, string(dataJSON), string(model.ApplicationStatusNew), app.CreatedAt, now,
	)
	return eris.Wrapf(err, "sqlite: save application %d", app.ID)
}

func (s *SQLiteStore) SetApplicationInProgress(ctx context.Context, applicationID int64, actorID string) error {
	return s.setApplicationStatus(ctx, applicationID, actorID, model.ApplicationStatusInProgress, "application_in_progress")
}

func (s *SQLiteStore) SetApplicationReadyForReview(ctx context.Context, applicationID int64, actorID string) error {
	return s.setApplicationStatus(ctx, applicationID, actorID, model.ApplicationStatusReadyForReview, "application_ready_for_review")
}

func (s *SQLiteStore) setApplicationStatus(ctx context.Context, applicationID int64, actorID string, status model.ApplicationStatus, action string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET status = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		string(status), actorID, time.Now().UTC(), applicationID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set application %d %s", applicationID, status)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.LogEvent(ctx, applicationID, actorID, action, "", true)
}

func (s *SQLiteStore) LogEvent(ctx context.Context, applicationID int64, actorID, action, notes string, preventDuplicates bool) error {
	if preventDuplicates {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM application_events WHERE application_id = ? AND actor_id = ? AND action = ?)`,
			applicationID, actorID, action,
		).Scan(&exists)
		if err != nil {
			return eris.Wrap(err, "sqlite: event exists")
		}
		if exists {
			return nil
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO application_events (id, application_id, actor_id, action, notes, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), applicationID, actorID, action, notes, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert event %s", action)
}

func (s *SQLiteStore) LatestChange(ctx context.Context, applicationID int64, stepKey string) (*model.AuditEntry, error) {
	entry := model.AuditEntry{
		ApplicationID: applicationID,
		StepKey:       stepKey,
	}
	var dataJSON, prevDataJSON, notes, prevStatus sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, data, notes, changed_by, timestamp, previous_status, previous_data FROM audit_trail WHERE application_id = ? AND step_key = ? ORDER BY timestamp DESC LIMIT 1`,
		applicationID, stepKey,
	).Scan(&entry.ID, &entry.Status, &dataJSON, &notes, &entry.ChangedBy, &entry.Timestamp, &prevStatus, &prevDataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest change %d/%s", applicationID, stepKey)
	}

	entry.Notes = notes.String
	entry.PreviousStatus = model.StepStatus(prevStatus.String)
	if dataJSON.Valid && dataJSON.String != "" {
		if err := json.Unmarshal([]byte(dataJSON.String), &entry.Data); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit data")
		}
	}
	if prevDataJSON.Valid && prevDataJSON.String != "" {
		if err := json.Unmarshal([]byte(prevDataJSON.String), &entry.PreviousData); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit previous data")
		}
	}
	return &entry, nil
}

func (s *SQLiteStore) RecordChange(ctx context.Context, applicationID int64, stepKey string, status model.StepStatus, data map[string]any, changedBy, notes string) (*model.AuditEntry, error) {
	prev, err := s.LatestChange(ctx, applicationID, stepKey)
	if err != nil {
		return nil, err
	}

	entry := &model.AuditEntry{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		StepKey:       stepKey,
		Status:        status,
		Data:          data,
		Notes:         notes,
		ChangedBy:     changedBy,
		Timestamp:     time.Now().UTC(),
	}
	if prev != nil {
		entry.PreviousStatus = prev.Status
		entry.PreviousData = prev.Data
	}

	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal audit data")
	}
	prevDataJSON, err := json.Marshal(entry.PreviousData)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal audit previous data")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_trail (id, application_id, step_key, status, data, notes, changed_by, timestamp, previous_status, previous_data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, applicationID, stepKey, string(status), string(dataJSON), notes, changedBy, entry.Timestamp, string(entry.PreviousStatus), string(prevDataJSON),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert audit %d/%s", applicationID, stepKey)
	}
	return entry, nil
}

func (s *SQLiteStore) LogStepState(ctx context.Context, applicationID int64, stepKey string, decision model.Decision, decidedBy, notes string) (*model.StepState, error) {
	state := &model.StepState{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		StepKey:       stepKey,
		Decision:      decision,
		DecidedBy:     decidedBy,
		DecidedAt:     time.Now().UTC(),
		Notes:         notes,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO step_states (id, application_id, step_key, decision, decided_by, decided_at, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.ID, applicationID, stepKey, string(decision), decidedBy, state.DecidedAt, notes,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert step state %d/%s", applicationID, stepKey)
	}
	return state, nil
}

func (s *SQLiteStore) CheckExistingStepState(ctx context.Context, applicationID int64, stepKey string) (*model.StepState, error) {
	state := model.StepState{
		ApplicationID: applicationID,
		StepKey:       stepKey,
	}
	var notes sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, decision, decided_by, decided_at, notes FROM step_states WHERE application_id = ? AND step_key = ? ORDER BY decided_at DESC LIMIT 1`,
		applicationID, stepKey,
	).Scan(&state.ID, &state.Decision, &state.DecidedBy, &state.DecidedAt, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: check step state %d/%s", applicationID, stepKey)
	}
	state.Notes = notes.String
	return &state, nil
}

func (s *SQLiteStore) SaveInvocation(ctx context.Context, inv *model.Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	reqJSON, err := json.Marshal(inv.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal invocation request")
	}
	respJSON, err := json.Marshal(inv.Response)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal invocation response")
	}
	metaJSON, err := json.Marshal(inv.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal invocation metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, application_id, step_key, invocation_type, status, request, response, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ApplicationID, inv.StepKey, inv.InvocationType, inv.Status, string(reqJSON), string(respJSON), string(metaJSON), inv.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert invocation %d/%s", inv.ApplicationID, inv.StepKey)
}
