package registry

import (
	"context"
	"fmt"
	"hash/fnv"
)

// simulated deterministically synthesizes records from the query hash: the
// same identifier always yields the same record, and a fixed slice of the
// identifier space yields not-found or expired outcomes, so edge-case paths
// are reachable in demos and tests.
type simulated struct {
	source string
	fields func(q Query, h uint64) map[string]any

	// notFoundMod and expiredMod carve out the deterministic edge slices.
	// Zero disables the slice.
	notFoundMod uint64
	expiredMod  uint64
}

func (s *simulated) Source() string {
	return s.source
}

func (s *simulated) Lookup(_ context.Context, q Query) (*Record, error) {
	if q.Identifier == "" {
		return nil, ErrNotFound
	}

	h := fnv.New64a()
	h.Write([]byte(s.source))
	h.Write([]byte(q.Identifier))
	sum := h.Sum64()

	if s.notFoundMod != 0 && sum%s.notFoundMod == 0 {
		return nil, ErrNotFound
	}

	rec := &Record{
		Source:     s.source,
		Identifier: q.Identifier,
		FullName:   q.FirstName + " " + q.LastName,
		Status:     StatusActive,
	}
	if s.expiredMod != 0 && sum%s.expiredMod == 1 {
		rec.Status = StatusExpired
		rec.ExpirationDate = fmt.Sprintf("%d-06-30", 2018+int(sum%5))
	} else {
		rec.ExpirationDate = fmt.Sprintf("%d-06-30", 2027+int(sum%3))
	}
	if s.fields != nil {
		rec.Fields = s.fields(q, sum)
	}
	return rec, nil
}

// NewNPI simulates the NPPES NPI registry.
func NewNPI() Client {
	return &simulated{
		source:      "npi",
		notFoundMod: 13,
		fields: func(q Query, h uint64) map[string]any {
			return map[string]any{
				"enumeration_type": "NPI-1",
				"primary_taxonomy": taxonomies[h%uint64(len(taxonomies))],
				"enumeration_date": fmt.Sprintf("%d-01-15", 2005+int(h%15)),
			}
		},
	}
}

// NewDEA simulates DEA registration verification.
func NewDEA() Client {
	return &simulated{
		source:      "dea",
		notFoundMod: 17,
		expiredMod:  11,
		fields: func(q Query, h uint64) map[string]any {
			return map[string]any{
				"business_activity": "Practitioner",
				"schedules":         []string{"2", "2N", "3", "3N", "4", "5"},
				"state":             q.State,
			}
		},
	}
}

// NewOIG simulates the OIG List of Excluded Individuals/Entities. A
// not-found result is the desirable outcome here: it means the
// practitioner carries no exclusion.
func NewOIG() Client {
	return &simulated{
		source:      "oig_sanctions",
		notFoundMod: 0,
		fields: func(q Query, h uint64) map[string]any {
			// Most practitioners have a clean match set.
			if h%29 != 0 {
				return map[string]any{"exclusions": []string{}}
			}
			return map[string]any{
				"exclusions": []string{
					fmt.Sprintf("exclusion %d under 1128(b)(4)", h%1000),
				},
			}
		},
	}
}

// NewABMS simulates ABMS board certification lookup.
func NewABMS() Client {
	return &simulated{
		source:      "abms",
		notFoundMod: 19,
		expiredMod:  13,
		fields: func(q Query, h uint64) map[string]any {
			return map[string]any{
				"board":         boards[h%uint64(len(boards))],
				"certification": "certified",
				"moc_status":    "participating",
			}
		},
	}
}

// NewDCA simulates state licensing board (DCA-style) verification.
func NewDCA() Client {
	return &simulated{
		source:      "license_dca",
		notFoundMod: 23,
		expiredMod:  7,
		fields: func(q Query, h uint64) map[string]any {
			return map[string]any{
				"license_type":        "Physician and Surgeon",
				"disciplinary_action": h%31 == 0,
				"state":               q.State,
			}
		},
	}
}

// NewEducation simulates medical education verification.
func NewEducation() Client {
	return &simulated{
		source:      "medical_education",
		notFoundMod: 27,
		fields: func(q Query, h uint64) map[string]any {
			return map[string]any{
				"school":          schools[h%uint64(len(schools))],
				"degree":          "MD",
				"graduation_year": 1990 + int(h%30),
			}
		},
	}
}

var taxonomies = []string{
	"207Q00000X Family Medicine",
	"207R00000X Internal Medicine",
	"208000000X Pediatrics",
	"207P00000X Emergency Medicine",
	"207X00000X Orthopaedic Surgery",
	"2084N0400X Neurology",
}

var boards = []string{
	"American Board of Family Medicine",
	"American Board of Internal Medicine",
	"American Board of Pediatrics",
	"American Board of Emergency Medicine",
	"American Board of Surgery",
}

var schools = []string{
	"Johns Hopkins University School of Medicine",
	"Stanford University School of Medicine",
	"University of Michigan Medical School",
	"Baylor College of Medicine",
	"Emory University School of Medicine",
	"University of Washington School of Medicine",
}
