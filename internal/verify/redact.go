package verify

import (
	"context"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/registry"
)

// pseudonymizeApplication maps the application's PII to stable stand-ins.
// Because the engine is deterministic per seed, the same practitioner keeps
// one consistent fake identity across every field and every step of a job,
// which is what lets the judge cross-check fields without seeing real PII.
func (d Deps) pseudonymizeApplication(app model.Application) map[string]any {
	out := map[string]any{
		"name":            d.Engine.Name(app.FullName(), ""),
		"credential_type": app.CredentialType,
	}
	if app.SSN != "" {
		out["ssn"] = d.Engine.SSN(app.SSN)
	}
	if app.DateOfBirth != "" {
		out["birth_year"] = d.Engine.Date(app.DateOfBirth)
	}
	if app.Email != "" {
		out["email"] = d.Engine.Email(app.Email)
	}
	if app.Phone != "" {
		out["phone"] = d.Engine.Phone(app.Phone)
	}
	if addr := app.Address.String(); addr != "" {
		out["address"] = d.Engine.Address(addr)
	}
	if app.NPINumber != "" {
		out["npi_number"] = d.Engine.Generic(app.NPINumber)
	}
	if app.DEANumber != "" {
		out["dea_number"] = d.Engine.Generic(app.DEANumber)
	}
	if app.LicenseNumber != "" {
		out["license_number"] = d.Engine.Generic(app.LicenseNumber)
	}
	return out
}

// pseudonymizeRecord redacts a source record the same way, running free-text
// fields through entity detection so narrative remarks cannot leak names or
// identifiers the structured mapping missed.
func (d Deps) pseudonymizeRecord(ctx context.Context, rec *registry.Record) map[string]any {
	out := map[string]any{
		"source": rec.Source,
		"status": rec.Status,
	}
	if rec.Identifier != "" {
		out["identifier"] = d.Engine.Generic(rec.Identifier)
	}
	if rec.FullName != "" {
		out["full_name"] = d.Engine.Name(rec.FullName, "")
	}
	if rec.ExpirationDate != "" {
		out["expiration_date"] = rec.ExpirationDate
	}

	fields := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		if s, ok := v.(string); ok {
			fields[k] = d.Engine.Text(ctx, s, d.Detector)
			continue
		}
		if ss, ok := v.([]string); ok {
			redacted := make([]string, len(ss))
			for i, s := range ss {
				redacted[i] = d.Engine.Text(ctx, s, d.Detector)
			}
			fields[k] = redacted
			continue
		}
		fields[k] = v
	}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	return out
}
