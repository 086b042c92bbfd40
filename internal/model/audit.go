package model

import "time"

// AuditEntry is one append-only row in the audit trail. Each new entry for
// an (application, step key) pair snapshots the status and data of the entry
// it supersedes, producing a linked history without foreign keys. Entries
// are never updated or deleted.
type AuditEntry struct {
	ID            string         `json:"id"`
	ApplicationID int64          `json:"application_id"`
	StepKey       string         `json:"step_key"`
	Status        StepStatus     `json:"status"`
	Data          map[string]any `json:"data,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	ChangedBy     string         `json:"changed_by"`
	Timestamp     time.Time      `json:"timestamp"`

	PreviousStatus StepStatus     `json:"previous_status,omitempty"`
	PreviousData   map[string]any `json:"previous_data,omitempty"`
}

// EventEntry is a coarse-grained application event (job accepted, status
// transition, pseudonymization performed). Unlike AuditEntry it is not
// chained; it exists for timeline reconstruction.
type EventEntry struct {
	ID            string    `json:"id"`
	ApplicationID int64     `json:"application_id"`
	ActorID       string    `json:"actor_id"`
	Action        string    `json:"action"`
	Notes         string    `json:"notes,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// StepState is the authoritative "has this been decided" record consumed by
// the idempotency check. Rows accrete; the latest row by DecidedAt wins.
type StepState struct {
	ID            string    `json:"id"`
	ApplicationID int64     `json:"application_id"`
	StepKey       string    `json:"step_key"`
	Decision      Decision  `json:"decision"`
	DecidedBy     string    `json:"decided_by"`
	DecidedAt     time.Time `json:"decided_at"`
	Notes         string    `json:"notes,omitempty"`
}

// Invocation captures the raw request/response of one external call made on
// behalf of a step (registry lookup or judge evaluation).
type Invocation struct {
	ID             string         `json:"id"`
	ApplicationID  int64          `json:"application_id"`
	StepKey        string         `json:"step_key"`
	InvocationType string         `json:"invocation_type"`
	Status         string         `json:"status"`
	Request        map[string]any `json:"request,omitempty"`
	Response       map[string]any `json:"response,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
