package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_SourceNames(t *testing.T) {
	assert.Equal(t, "npi", NewNPI().Source())
	assert.Equal(t, "dea", NewDEA().Source())
	assert.Equal(t, "oig_sanctions", NewOIG().Source())
	assert.Equal(t, "abms", NewABMS().Source())
	assert.Equal(t, "license_dca", NewDCA().Source())
	assert.Equal(t, "medical_education", NewEducation().Source())
}

func TestSimulated_EmptyIdentifierNotFound(t *testing.T) {
	for _, c := range []Client{NewNPI(), NewDEA(), NewOIG(), NewABMS(), NewDCA(), NewEducation()} {
		_, err := c.Lookup(context.Background(), Query{})
		assert.True(t, errors.Is(err, ErrNotFound), "source %s", c.Source())
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	q := Query{Identifier: "1234567890", FirstName: "Jane", LastName: "Doe", State: "CA"}

	c := NewNPI()
	first, err := c.Lookup(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Lookup(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// A fresh client instance sees the same record.
	third, err := NewNPI().Lookup(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestSimulated_RecordShape(t *testing.T) {
	q := Query{Identifier: "1234567890", FirstName: "Jane", LastName: "Doe", State: "CA"}

	rec, err := NewNPI().Lookup(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, "npi", rec.Source)
	assert.Equal(t, "1234567890", rec.Identifier)
	assert.Equal(t, "Jane Doe", rec.FullName)
	assert.Contains(t, []string{StatusActive, StatusExpired}, rec.Status)
	assert.NotEmpty(t, rec.ExpirationDate)
	assert.Contains(t, rec.Fields, "primary_taxonomy")
	assert.Contains(t, rec.Fields, "enumeration_date")
}

func TestSimulated_IdentifiersDiverge(t *testing.T) {
	c := NewEducation()

	a, err := c.Lookup(context.Background(), Query{Identifier: "Jane Doe A"})
	require.NoError(t, err)
	b, err := c.Lookup(context.Background(), Query{Identifier: "Robert Chen"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Fields, b.Fields)
}

func TestSimulated_EdgeSlicesReachable(t *testing.T) {
	// Sweep a chunk of the identifier space and confirm the deterministic
	// edge slices actually produce each outcome.
	c := NewDEA()

	var active, expired, notFound int
	for i := range 500 {
		q := Query{Identifier: string(rune('A'+i%26)) + string(rune('0'+i%10)) + "1234567"}
		rec, err := c.Lookup(context.Background(), q)
		switch {
		case errors.Is(err, ErrNotFound):
			notFound++
		case err == nil && rec.Status == StatusExpired:
			expired++
			assert.NotEmpty(t, rec.ExpirationDate)
		case err == nil:
			active++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Positive(t, active)
	assert.Positive(t, expired)
	assert.Positive(t, notFound)
}

func TestSimulated_OIGNeverNotFound(t *testing.T) {
	c := NewOIG()

	var withExclusions int
	for i := range 500 {
		rec, err := c.Lookup(context.Background(), Query{Identifier: "Jane Doe " + string(rune('A'+i%26)) + string(rune('a'+i%13))})
		require.NoError(t, err)

		exclusions, ok := rec.Fields["exclusions"].([]string)
		require.True(t, ok)
		if len(exclusions) > 0 {
			withExclusions++
		}
	}

	// Most of the space is clean, a fixed slice carries exclusions.
	assert.Positive(t, withExclusions)
	assert.Less(t, withExclusions, 100)
}

func TestSimulated_DCADisciplinarySliceReachable(t *testing.T) {
	c := NewDCA()

	var flagged int
	for i := range 500 {
		rec, err := c.Lookup(context.Background(), Query{Identifier: "A" + string(rune('0'+i%10)) + string(rune('A'+i%26)) + "456", State: "CA"})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		require.NoError(t, err)
		if rec.Fields["disciplinary_action"] == true {
			flagged++
		}
	}

	assert.Positive(t, flagged)
}
