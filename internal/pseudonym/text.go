package pseudonym

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Detector finds PII spans in free text, keyed by entity type.
type Detector interface {
	Analyze(ctx context.Context, text string) (map[string][]string, error)
}

// minLiteralLen filters out detector noise: one-character "values" would
// otherwise rewrite unrelated substrings all over the text.
const minLiteralLen = 2

// Text pseudonymizes free text by substituting every occurrence of each
// detected PII literal with its typed pseudonym. Detector failures fail
// open: the original text is returned unchanged, since refusing to proceed
// would block the whole verification step. That trade-off is deliberate and
// the caller-facing contract.
func (e *Engine) Text(ctx context.Context, text string, detector Detector) string {
	if text == "" || detector == nil {
		return text
	}

	entities, err := detector.Analyze(ctx, text)
	if err != nil {
		zap.L().Warn("pseudonym: detector failed, returning text unmodified", zap.Error(err))
		return text
	}

	out := text
	for _, f := range orderFindings(entities) {
		out = strings.ReplaceAll(out, f.value, e.ForEntity(f.entityType, f.value))
	}
	return out
}

type finding struct {
	entityType string
	value      string
}

// orderFindings flattens the detector result into a deterministic
// substitution order: longest literal first, so a literal that is a
// substring of another ("Doe" inside "Jane Doe") can never preempt the
// containing match, with value and entity type as tie-breakers. Map
// iteration order must not leak into the output.
func orderFindings(entities map[string][]string) []finding {
	var findings []finding
	seen := make(map[finding]bool)
	for entityType, values := range entities {
		for _, value := range values {
			if len(value) < minLiteralLen {
				continue
			}
			f := finding{entityType: entityType, value: value}
			if seen[f] {
				continue
			}
			seen[f] = true
			findings = append(findings, f)
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if len(findings[i].value) != len(findings[j].value) {
			return len(findings[i].value) > len(findings[j].value)
		}
		if findings[i].value != findings[j].value {
			return findings[i].value < findings[j].value
		}
		return findings[i].entityType < findings[j].entityType
	})
	return findings
}

// ForEntity routes a detected entity type to the matching pseudonymization
// function, falling back to the generic token for unmapped types. Entity
// type names follow the Presidio taxonomy.
func (e *Engine) ForEntity(entityType, value string) string {
	switch strings.ToUpper(entityType) {
	case "PERSON":
		return e.Name(value, "")
	case "EMAIL_ADDRESS":
		return e.Email(value)
	case "PHONE_NUMBER":
		return e.Phone(value)
	case "LOCATION", "ADDRESS":
		return e.Address(value)
	case "IP_ADDRESS":
		return e.IP(value)
	case "URL":
		return e.URL(value)
	case "US_SSN":
		return e.SSN(value)
	case "DATE_TIME":
		return e.Date(value)
	default:
		return e.Generic(value)
	}
}
