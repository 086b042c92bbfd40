package pseudonym

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, seed string) *Engine {
	t.Helper()
	e, err := New(seed)
	require.NoError(t, err)
	return e
}

func TestNew_EmptySeed(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty seed")
}

func TestEngine_Deterministic(t *testing.T) {
	a := newTestEngine(t, "seed-1")
	b := newTestEngine(t, "seed-1")

	assert.Equal(t, a.Name("Jane Q. Doe", ""), b.Name("Jane Q. Doe", ""))
	assert.Equal(t, a.SSN("123-45-6789"), b.SSN("123-45-6789"))
	assert.Equal(t, a.Phone("(555) 123-4567"), b.Phone("(555) 123-4567"))
	assert.Equal(t, a.Address("1 Main St"), b.Address("1 Main St"))
	assert.Equal(t, a.Generic("LIC-99881"), b.Generic("LIC-99881"))
}

func TestEngine_SeedDivergence(t *testing.T) {
	a := newTestEngine(t, "seed-1")
	b := newTestEngine(t, "seed-2")

	assert.NotEqual(t, a.Name("Jane Q. Doe", ""), b.Name("Jane Q. Doe", ""))
	assert.NotEqual(t, a.Generic("LIC-99881"), b.Generic("LIC-99881"))
}

func TestEngine_DistinctInputsDiverge(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	assert.NotEqual(t, e.Name("Jane Doe", ""), e.Name("John Roe", ""))
}

func TestEngine_Generic_Format(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	out := e.Generic("some-identifier")
	assert.Len(t, out, 16)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), out)
}

func TestEngine_Name_GenderHint(t *testing.T) {
	e := newTestEngine(t, "seed-1")

	male := e.Name("Sam Smith", GenderMale)
	female := e.Name("Sam Smith", GenderFemale)

	maleFirst := strings.SplitN(male, " ", 2)[0]
	femaleFirst := strings.SplitN(female, " ", 2)[0]
	assert.Contains(t, maleFirstNames, maleFirst)
	assert.Contains(t, femaleFirstNames, femaleFirst)

	// Surname selector is independent of the gender hint.
	assert.Equal(t, strings.SplitN(male, " ", 2)[1], strings.SplitN(female, " ", 2)[1])
}

func TestEngine_SSN_Format(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	out := e.SSN("987-65-4321")
	require.Regexp(t, regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`), out)

	area := out[:3]
	assert.NotEqual(t, "000", area)
	assert.NotEqual(t, "666", area)
	assert.Less(t, area, "900")
}

func TestEngine_Phone_Format(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	assert.Regexp(t, regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`), e.Phone("555-0100"))
}

func TestEngine_Email_PreservesDomain(t *testing.T) {
	e := newTestEngine(t, "seed-1")

	out := e.Email("jane.doe@stanfordhealth.org")
	assert.True(t, strings.HasSuffix(out, "@stanfordhealth.org"), "got %q", out)
	assert.NotContains(t, out, "jane.doe")
}

func TestEngine_Email_NoAtSign(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	out := e.Email("not-an-email")
	assert.True(t, strings.HasSuffix(out, "@example.com"), "got %q", out)
}

func TestEngine_Date_YearOnly(t *testing.T) {
	e, err := New("seed-1", WithClock(func() time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	assert.Equal(t, "1975", e.Date("1975-03-14"))
	assert.Equal(t, "1975", e.Date("03/14/1975"))
	assert.Equal(t, "1975", e.Date("March 14, 1975"))
}

func TestEngine_Date_AgeCollapse(t *testing.T) {
	e, err := New("seed-1", WithClock(func() time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	assert.Equal(t, AgeCollapseSentinel, e.Date("1936-01-01"))
	assert.Equal(t, AgeCollapseSentinel, e.Date("1920-05-20"))
	assert.Equal(t, "1937", e.Date("1937-01-01"))
}

func TestEngine_Date_Unparseable(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	out := e.Date("sometime last spring")
	assert.Equal(t, e.Generic("sometime last spring"), out)
}

func TestEngine_IP_And_URL(t *testing.T) {
	e := newTestEngine(t, "seed-1")
	assert.Regexp(t, regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`), e.IP("10.0.0.1"))
	assert.Regexp(t, regexp.MustCompile(`^https://[a-z]+\d+\.example\.com$`), e.URL("https://realsite.com/path"))
}
