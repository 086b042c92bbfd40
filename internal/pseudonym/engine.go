// Package pseudonym implements deterministic, seed-keyed pseudonymization
// of practitioner PII. The same (value, seed) pair always produces the same
// stand-in, so a record stays internally consistent across fields, repeated
// calls and independent services sharing the seed; different seeds produce
// unlinkable outputs.
package pseudonym

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Gender hints for Name. When empty, gender is inferred from digest parity.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Engine mints deterministic pseudonyms. Construct with New; the seed is an
// explicit value threaded from configuration, never read from the process
// environment.
type Engine struct {
	seed []byte
	now  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for age computation in Date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine keyed by seed.
func New(seed string, opts ...Option) (*Engine, error) {
	if seed == "" {
		return nil, eris.New("pseudonym: empty seed")
	}
	e := &Engine{
		seed: []byte(seed),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// digest returns HMAC-SHA256(seed, value).
func (e *Engine) digest(value string) []byte {
	h := hmac.New(sha256.New, e.seed)
	h.Write([]byte(value))
	return h.Sum(nil)
}

// prng returns a PRNG seeded from the value's digest. Every synthesized
// fake draws from one of these, which is what makes the output stable.
func (e *Engine) prng(value string) *rand.Rand {
	d := e.digest(value)
	hi := binary.BigEndian.Uint64(d[:8])
	lo := binary.BigEndian.Uint64(d[8:16])
	return rand.New(rand.NewPCG(hi, lo))
}

// Generic pseudonymizes an opaque identifier (license or registration
// number) into a 16-hex-char token.
func (e *Engine) Generic(value string) string {
	return hex.EncodeToString(e.digest(value))[:16]
}

// Name maps a full name to a realistic "First Last" stand-in. The digest is
// split into two selectors: the first picks from a gendered first-name pool
// (parity decides the pool unless a hint is supplied), the second picks a
// surname.
func (e *Engine) Name(fullName, genderHint string) string {
	d := e.digest(fullName)
	first := binary.BigEndian.Uint64(d[:8])
	second := binary.BigEndian.Uint64(d[8:16])

	pool := maleFirstNames
	switch genderHint {
	case GenderFemale:
		pool = femaleFirstNames
	case GenderMale:
		pool = maleFirstNames
	default:
		if first%2 == 1 {
			pool = femaleFirstNames
		}
	}

	return pool[first%uint64(len(pool))] + " " + surnames[second%uint64(len(surnames))]
}

// Address synthesizes a deliverable-looking street address.
func (e *Engine) Address(value string) string {
	r := e.prng(value)
	num := 100 + r.IntN(9900)
	street := streetNames[r.IntN(len(streetNames))]
	suffix := streetSuffixes[r.IntN(len(streetSuffixes))]
	city := cityNames[r.IntN(len(cityNames))]
	state := stateCodes[r.IntN(len(stateCodes))]
	zip := 10000 + r.IntN(89999)
	return fmt.Sprintf("%d %s %s, %s, %s %05d", num, street, suffix, city, state, zip)
}

// Phone synthesizes a NANP-format phone number.
func (e *Engine) Phone(value string) string {
	r := e.prng(value)
	area := 200 + r.IntN(800)
	exchange := 200 + r.IntN(800)
	line := r.IntN(10000)
	return fmt.Sprintf("(%03d) %03d-%04d", area, exchange, line)
}

// Email synthesizes a fake local part while preserving the original domain,
// so institutional affiliation survives pseudonymization.
func (e *Engine) Email(value string) string {
	at := strings.LastIndex(value, "@")
	if at < 0 {
		return e.Generic(value) + "@example.com"
	}
	domain := value[at+1:]

	r := e.prng(value)
	const letters = "abcdefghijklmnopqrstuvwxyz"
	local := make([]byte, 8)
	for i := range local {
		local[i] = letters[r.IntN(len(letters))]
	}
	return fmt.Sprintf("%s%d@%s", local, r.IntN(100), domain)
}

// IP synthesizes a syntactically valid IPv4 address.
func (e *Engine) IP(value string) string {
	r := e.prng(value)
	return fmt.Sprintf("%d.%d.%d.%d", 1+r.IntN(223), r.IntN(256), r.IntN(256), 1+r.IntN(254))
}

// URL synthesizes a fake https URL with a word-derived host.
func (e *Engine) URL(value string) string {
	r := e.prng(value)
	word := strings.ToLower(streetNames[r.IntN(len(streetNames))])
	return fmt.Sprintf("https://%s%d.example.com", word, r.IntN(1000))
}

// SSN synthesizes an SSN-shaped value avoiding the invalid 000/666/9xx
// area prefixes.
func (e *Engine) SSN(value string) string {
	r := e.prng(value)
	area := 1 + r.IntN(665)
	group := 1 + r.IntN(99)
	serial := 1 + r.IntN(9999)
	return fmt.Sprintf("%03d-%02d-%04d", area, group, serial)
}

// dateLayouts are the accepted input formats for Date, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
}

// AgeCollapseSentinel replaces any date implying an age of 90 or more.
const AgeCollapseSentinel = "90+"

// Date applies the safe-harbor rule for dates: retain only the year, unless
// the implied age is 90 or more, in which case collapse to a sentinel.
// Unparseable input falls back to the generic token.
func (e *Engine) Date(value string) string {
	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return e.Generic(value)
	}

	age := e.now().Year() - parsed.Year()
	if age >= 90 {
		return AgeCollapseSentinel
	}
	return fmt.Sprintf("%d", parsed.Year())
}
