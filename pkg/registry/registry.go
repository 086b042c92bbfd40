// Package registry provides lookups against practitioner data sources
// (NPI, DEA, OIG exclusions, board certification, state licensing,
// education). Only the interface boundary is real; the bundled
// implementations simulate each source with deterministic records so the
// verification flow can run end to end without upstream credentials.
package registry

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the source has no record for the query.
var ErrNotFound = eris.New("registry: record not found")

// Record statuses reported by sources.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Query identifies a practitioner to a source. Identifier is the
// source-native number (NPI, DEA registration, license number); the name
// fields support sources that match on demographics.
type Query struct {
	Identifier string
	FirstName  string
	LastName   string
	State      string
}

// Record is a normalized lookup result.
type Record struct {
	Source         string         `json:"source"`
	Identifier     string         `json:"identifier"`
	FullName       string         `json:"full_name,omitempty"`
	Status         string         `json:"status"`
	ExpirationDate string         `json:"expiration_date,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// Client looks up one practitioner data source.
type Client interface {
	// Source returns the stable source name ("npi", "dea", ...).
	Source() string
	// Lookup returns the source record for the query, ErrNotFound when the
	// source has none.
	Lookup(ctx context.Context, q Query) (*Record, error)
}
