package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/db"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations. The idempotency check
// and audit writes run once per step per job.
var preparedStatements = map[string]string{
	"get_application":     `SELECT data, status, created_at FROM applications WHERE id = $1`,
	"set_app_status":      `UPDATE applications SET status = $1, updated_by = $2, updated_at = $3 WHERE id = $4`,
	"insert_event":        `INSERT INTO application_events (id, application_id, actor_id, action, notes, timestamp) VALUES ($1, $2, $3, $4, $5, $6)`,
	"event_exists":        `SELECT EXISTS (SELECT 1 FROM application_events WHERE application_id = $1 AND actor_id = $2 AND action = $3)`,
	"latest_audit":        `SELECT id, status, data, notes, changed_by, timestamp, previous_status, previous_data FROM audit_trail WHERE application_id = $1 AND step_key = $2 ORDER BY timestamp DESC LIMIT 1`,
	"insert_audit":        `INSERT INTO audit_trail (id, application_id, step_key, status, data, notes, changed_by, timestamp, previous_status, previous_data) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"insert_step_state":   `INSERT INTO step_states (id, application_id, step_key, decision, decided_by, decided_at, notes) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"latest_step_state":   `SELECT id, decision, decided_by, decided_at, notes FROM step_states WHERE application_id = $1 AND step_key = $2 ORDER BY decided_at DESC LIMIT 1`,
	"insert_invocation":   `INSERT INTO invocations (id, application_id, step_key, invocation_type, status, request, response, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests (pgxmock) and by
// the importer, which shares one pool across store and bulk-copy paths.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (bulk application import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// step_states deliberately carries no unique constraint on
// (application_id, step_key): the idempotency check is read-then-write and
// two concurrent jobs can both insert. The latest-by-decided_at query makes
// that eventually consistent; history rows are retained.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS applications (
	id         BIGINT PRIMARY KEY,
	data       JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'new',
	updated_by TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS application_events (
	id             TEXT PRIMARY KEY,
	application_id BIGINT NOT NULL,
	actor_id       TEXT NOT NULL,
	action         TEXT NOT NULL,
	notes          TEXT,
	timestamp      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_trail (
	id              TEXT PRIMARY KEY,
	application_id  BIGINT NOT NULL,
	step_key        TEXT NOT NULL,
	status          TEXT NOT NULL,
	data            JSONB,
	notes           TEXT,
	changed_by      TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL DEFAULT now(),
	previous_status TEXT,
	previous_data   JSONB
);

CREATE TABLE IF NOT EXISTS step_states (
	id             TEXT PRIMARY KEY,
	application_id BIGINT NOT NULL,
	step_key       TEXT NOT NULL,
	decision       TEXT NOT NULL,
	decided_by     TEXT NOT NULL,
	decided_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	notes          TEXT
);

CREATE TABLE IF NOT EXISTS invocations (
	id              TEXT PRIMARY KEY,
	application_id  BIGINT NOT NULL,
	step_key        TEXT NOT NULL,
	invocation_type TEXT NOT NULL,
	status          TEXT NOT NULL,
	request         JSONB,
	response        JSONB,
	metadata        JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_app_actor_action ON application_events(application_id, actor_id, action);
CREATE INDEX IF NOT EXISTS idx_audit_app_step_ts ON audit_trail(application_id, step_key, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_states_app_step_ts ON step_states(application_id, step_key, decided_at DESC);
CREATE INDEX IF NOT EXISTS idx_invocations_app_step ON invocations(application_id, step_key);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadApplication(ctx context.Context, applicationID int64) (*model.Application, error) {
	var dataJSON []byte
	var status string
	var createdAt time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT data, status, created_at FROM applications WHERE id = $1`,
		applicationID,
	).Scan(&dataJSON, &status, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get application %d", applicationID)
	}

	var app model.Application
	if err := json.Unmarshal(dataJSON, &app); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal application")
	}
	app.ID = applicationID
	app.CreatedAt = createdAt
	return &app, nil
}

func (s *PostgresStore) SaveApplication(ctx context.Context, app *model.Application) error {
	dataJSON, err := json.Marshal(app)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal application")
	}

	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO applications (id, data, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		app.ID, dataJSON, string(model.ApplicationStatusNew), app.CreatedAt, now,
	)
	return eris.Wrapf(err, "postgres: save application %d", app.ID)
}

func (s *PostgresStore) SetApplicationInProgress(ctx context.Context, applicationID int64, actorID string) error {
	return s.setApplicationStatus(ctx, applicationID, actorID, model.ApplicationStatusInProgress, "application_in_progress")
}

func (s *PostgresStore) SetApplicationReadyForReview(ctx context.Context, applicationID int64, actorID string) error {
	return s.setApplicationStatus(ctx, applicationID, actorID, model.ApplicationStatusReadyForReview, "application_ready_for_review")
}

func (s *PostgresStore) setApplicationStatus(ctx context.Context, applicationID int64, actorID string, status model.ApplicationStatus, action string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE applications SET status = $1, updated_by = $2, updated_at = $3 WHERE id = $4`,
		string(status), actorID, time.Now().UTC(), applicationID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set application %d %s", applicationID, status)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	// Repeated transitions to the same status log once.
	return s.LogEvent(ctx, applicationID, actorID, action, "", true)
}

func (s *PostgresStore) LogEvent(ctx context.Context, applicationID int64, actorID, action, notes string, preventDuplicates bool) error {
	if preventDuplicates {
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM application_events WHERE application_id = $1 AND actor_id = $2 AND action = $3)`,
			applicationID, actorID, action,
		).Scan(&exists)
		if err != nil {
			return eris.Wrap(err, "postgres: event exists")
		}
		if exists {
			return nil
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO application_events (id, application_id, actor_id, action, notes, timestamp) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), applicationID, actorID, action, notes, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert event %s", action)
}

func (s *PostgresStore) LatestChange(ctx context.Context, applicationID int64, stepKey string) (*model.AuditEntry, error) {
	entry := model.AuditEntry{
		ApplicationID: applicationID,
		StepKey:       stepKey,
	}
	var dataJSON, prevDataJSON []byte
	var notes, prevStatus *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, data, notes, changed_by, timestamp, previous_status, previous_data FROM audit_trail WHERE application_id = $1 AND step_key = $2 ORDER BY timestamp DESC LIMIT 1`,
		applicationID, stepKey,
	).Scan(&entry.ID, &entry.Status, &dataJSON, &notes, &entry.ChangedBy, &entry.Timestamp, &prevStatus, &prevDataJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: latest change %d/%s", applicationID, stepKey)
	}

	if notes != nil {
		entry.Notes = *notes
	}
	if prevStatus != nil {
		entry.PreviousStatus = model.StepStatus(*prevStatus)
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit data")
		}
	}
	if len(prevDataJSON) > 0 {
		if err := json.Unmarshal(prevDataJSON, &entry.PreviousData); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit previous data")
		}
	}
	return &entry, nil
}

func (s *PostgresStore) RecordChange(ctx context.Context, applicationID int64, stepKey string, status model.StepStatus, data map[string]any, changedBy, notes string) (*model.AuditEntry, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal audit data")
	}
	prevDataJSON, err := json.Marshal(entry.PreviousData)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal audit previous data")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_trail (id, application_id, step_key, status, data, notes, changed_by, timestamp, previous_status, previous_data) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, applicationID, stepKey, string(status), dataJSON, notes, changedBy, entry.Timestamp, string(entry.PreviousStatus), prevDataJSON,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert audit %d/%s", applicationID, stepKey)
	}
	return entry, nil
}

func (s *PostgresStore) LogStepState(ctx context.Context, applicationID int64, stepKey string, decision model.Decision, decidedBy, notes string) (*model.StepState, error) {
	state := &model.StepState{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		StepKey:       stepKey,
		Decision:      decision,
		DecidedBy:     decidedBy,
		DecidedAt:     time.Now().UTC(),
		Notes:         notes,
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO step_states (id, application_id, step_key, decision, decided_by, decided_at, notes) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		state.ID, applicationID, stepKey, string(decision), decidedBy, state.DecidedAt, notes,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert step state %d/%s", applicationID, stepKey)
	}
	return state, nil
}

func (s *PostgresStore) CheckExistingStepState(ctx context.Context, applicationID int64, stepKey string) (*model.StepState, error) {
	state := model.StepState{
		ApplicationID: applicationID,
		StepKey:       stepKey,
	}
	var notes *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, decision, decided_by, decided_at, notes FROM step_states WHERE application_id = $1 AND step_key = $2 ORDER BY decided_at DESC LIMIT 1`,
		applicationID, stepKey,
	).Scan(&state.ID, &state.Decision, &state.DecidedBy, &state.DecidedAt, &notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: check step state %d/%s", applicationID, stepKey)
	}
	if notes != nil {
		state.Notes = *notes
	}
	return &state, nil
}

func (s *PostgresStore) SaveInvocation(ctx context.Context, inv *model.Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	reqJSON, err := json.Marshal(inv.Request)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal invocation request")
	}
	respJSON, err := json.Marshal(inv.Response)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal invocation response")
	}
	metaJSON, err := json.Marshal(inv.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal invocation metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO invocations (id, application_id, step_key, invocation_type, status, request, response, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.ApplicationID, inv.StepKey, inv.InvocationType, inv.Status, reqJSON, respJSON, metaJSON, inv.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert invocation %d/%s", inv.ApplicationID, inv.StepKey)
}
