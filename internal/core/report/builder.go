// Package report assembles the final safety summary from resolved names and
// source records.
package report

import (
	"strings"
	"time"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/hazard"
)

// Unknown fills fields no source could supply.
const Unknown = "Unknown"

// Advisory notes.
const (
	NotePPE      = "Handle with extreme care; use appropriate PPE."
	NoteWater    = "Avoid contamination of water sources."
	NoteDegraded = "No source returned data; this summary is based on defaults only."
	NoteNone     = "No special notes."
)

// Builder assembles reports.
type Builder struct {
	Clock func() time.Time
}

// Build assembles a report with the default builder.
func Build(query core.ChemicalQuery, resolution *core.ResolutionResult, records []*core.SourceRecord) *core.Report {
	return (&Builder{}).Build(query, resolution, records)
}

// LookupName is the name sent to the source adapters: the resolved name for
// products, the raw text otherwise.
func LookupName(query core.ChemicalQuery, resolution *core.ResolutionResult) string {
	if query.ClassifiedType == core.QueryTypeProduct {
		return resolution.Name()
	}
	return strings.TrimSpace(query.RawText)
}

// Build assembles a report. Records may be in any order; they are reported in
// the order given.
func (b *Builder) Build(query core.ChemicalQuery, resolution *core.ResolutionResult, records []*core.SourceRecord) *core.Report {
	regulatory := firstByRole(records, core.SourceRoleRegulatory)
	identities := okByRole(records, core.SourceRoleIdentity)

	codes := core.NewCodeSet()
	anyOK := false
	for _, record := range records {
		if !record.OK() {
			continue
		}
		anyOK = true
		codes.Add(record.HazardCodes.Sorted()...)
	}
	toxicity := hazard.Normalize(codes)

	recommendedUse := Unknown
	precautions := make([]string, 0)
	regulatoryStatus := map[string]any{"ECHA": Unknown, "CLP": []string{}}
	if regulatory != nil {
		regulatoryStatus["ECHA"] = string(regulatory.Status)
		regulatoryStatus["CLP"] = regulatory.HazardCodes.Sorted()
		if regulatory.OK() {
			if regulatory.RecommendedUse != nil && strings.TrimSpace(*regulatory.RecommendedUse) != "" {
				recommendedUse = *regulatory.RecommendedUse
			}
			precautions = hazard.PrecautionLines(regulatory.PrecautionaryCodes)
		}
	}

	sources := records
	if sources == nil {
		sources = []*core.SourceRecord{}
	}

	return &core.Report{
		Query:            query.RawText,
		QueryType:        query.ClassifiedType,
		LookupName:       LookupName(query, resolution),
		ActiveIngredient: pick(regulatory, "active_ingredient", identities),
		Resolution:       resolution,
		Product:          pick(regulatory, "product_name", identities),
		RecommendedUse:   recommendedUse,
		Toxicity:         toxicity,
		Precautions:      precautions,
		RegulatoryStatus: regulatoryStatus,
		Notes:            notes(toxicity, anyOK),
		Sources:          sources,
		GeneratedAt:      b.now(),
	}
}

// pick prefers the regulatory field, then the first identity title.
func pick(regulatory *core.SourceRecord, field string, identities []*core.SourceRecord) string {
	if regulatory.OK() {
		if value := strings.TrimSpace(regulatory.StringField(field)); value != "" {
			return value
		}
	}
	for _, record := range identities {
		if value := strings.TrimSpace(record.StringField("title")); value != "" {
			return value
		}
	}
	return Unknown
}

func notes(toxicity core.ToxicitySummary, anyOK bool) []string {
	out := make([]string, 0, 3)
	if !anyOK {
		out = append(out, NoteDegraded)
	}
	if toxicity.MammalianLevel == core.MammalianHigh {
		out = append(out, NotePPE)
	}
	if hazard.MentionsAquatic(toxicity) {
		out = append(out, NoteWater)
	}
	if len(out) == 0 || (len(out) == 1 && !anyOK) {
		out = append(out, NoteNone)
	}
	return out
}

func firstByRole(records []*core.SourceRecord, role core.SourceRole) *core.SourceRecord {
	for _, record := range records {
		if record != nil && record.Role == role {
			return record
		}
	}
	return nil
}

func okByRole(records []*core.SourceRecord, role core.SourceRole) []*core.SourceRecord {
	out := make([]*core.SourceRecord, 0, len(records))
	for _, record := range records {
		if record.OK() && record.Role == role {
			out = append(out, record)
		}
	}
	return out
}

func (b *Builder) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}
