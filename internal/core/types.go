package core

import (
	"encoding/json"
	"sort"
	"time"
)

// QueryType labels a raw query as a commercial product or an active ingredient.
type QueryType string

const (
	QueryTypeProduct          QueryType = "product"
	QueryTypeActiveIngredient QueryType = "active_ingredient"
)

// ChemicalQuery is a classified user query. It is immutable once built.
type ChemicalQuery struct {
	RawText        string    `json:"raw_text"`
	ClassifiedType QueryType `json:"classified_type"`
}

// NewChemicalQuery classifies raw text and returns the resulting query.
func NewChemicalQuery(raw string) ChemicalQuery {
	return ChemicalQuery{RawText: raw, ClassifiedType: Classify(raw)}
}

// ResolutionMethod records how a product name was mapped to an ingredient.
type ResolutionMethod string

const (
	MethodDirect         ResolutionMethod = "direct"
	MethodSearchMatch    ResolutionMethod = "search_match"
	MethodSearchFallback ResolutionMethod = "search_fallback"
	MethodFailed         ResolutionMethod = "failed"
)

// Confidence is a qualitative grade attached to a resolution.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
	ConfidenceNone    Confidence = "none"
)

// ResolutionResult is the outcome of resolving a product name.
// ResolvedName is nil only when Method is MethodFailed.
type ResolutionResult struct {
	ResolvedName    *string          `json:"resolved_name"`
	Method          ResolutionMethod `json:"method"`
	Confidence      Confidence       `json:"confidence"`
	SourceReference *string          `json:"source_reference"`
	Error           *string          `json:"error"`
	FromCache       bool             `json:"from_cache,omitempty"`
}

// Resolved reports whether the resolution produced a usable name.
func (r *ResolutionResult) Resolved() bool {
	return r != nil && r.Method != MethodFailed && r.ResolvedName != nil && *r.ResolvedName != ""
}

// Name returns the resolved name or an empty string.
func (r *ResolutionResult) Name() string {
	if r == nil || r.ResolvedName == nil {
		return ""
	}
	return *r.ResolvedName
}

// SourceStatus is the availability of a single source for a request.
type SourceStatus string

const (
	SourceStatusOK          SourceStatus = "ok"
	SourceStatusUnavailable SourceStatus = "unavailable"
)

// SourceRole describes what a source contributes to a report.
type SourceRole string

const (
	SourceRoleIdentity   SourceRole = "identity"
	SourceRoleRegulatory SourceRole = "regulatory"
)

// CodeSet is a set of GHS statement codes. It marshals as a sorted array.
type CodeSet map[string]struct{}

// NewCodeSet builds a set from the supplied codes.
func NewCodeSet(codes ...string) CodeSet {
	set := make(CodeSet, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

// Add inserts codes into the set.
func (s CodeSet) Add(codes ...string) {
	for _, code := range codes {
		if code == "" {
			continue
		}
		s[code] = struct{}{}
	}
}

// Has reports whether code is present.
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the codes in ascending order.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted array, never null.
func (s CodeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts an array of codes.
func (s *CodeSet) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	*s = NewCodeSet(codes...)
	return nil
}

// Provenance captures how a source record was obtained.
type Provenance struct {
	RecordID       string     `json:"record_id"`
	RequestedAt    time.Time  `json:"requested_at"`
	ResolvedAt     time.Time  `json:"resolved_at"`
	URL            string     `json:"url,omitempty"`
	FromCache      bool       `json:"from_cache"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
	ToolVersion    string     `json:"tool_version,omitempty"`
}

// SourceRecord is the normalized output of one source adapter.
type SourceRecord struct {
	SourceID           string         `json:"source_id"`
	Role               SourceRole     `json:"role"`
	Status             SourceStatus   `json:"status"`
	IdentityFields     map[string]any `json:"identity_fields"`
	HazardCodes        CodeSet        `json:"hazard_codes"`
	PrecautionaryCodes CodeSet        `json:"precautionary_codes"`
	RecommendedUse     *string        `json:"recommended_use"`
	Note               *string        `json:"note,omitempty"`
	Error              *string        `json:"error"`
	Provenance         Provenance     `json:"provenance"`
}

// NewSourceRecord returns an ok record with empty, non-nil collections.
func NewSourceRecord(sourceID string, role SourceRole) *SourceRecord {
	return &SourceRecord{
		SourceID:           sourceID,
		Role:               role,
		Status:             SourceStatusOK,
		IdentityFields:     map[string]any{},
		HazardCodes:        NewCodeSet(),
		PrecautionaryCodes: NewCodeSet(),
	}
}

// UnavailableRecord returns a record marking a source as unreachable.
func UnavailableRecord(sourceID string, role SourceRole, err error) *SourceRecord {
	record := NewSourceRecord(sourceID, role)
	record.Status = SourceStatusUnavailable
	message := "source unavailable"
	if err != nil {
		message = err.Error()
	}
	record.Error = &message
	return record
}

// Normalize replaces nil collections with empty ones.
func (r *SourceRecord) Normalize() {
	if r == nil {
		return
	}
	if r.IdentityFields == nil {
		r.IdentityFields = map[string]any{}
	}
	if r.HazardCodes == nil {
		r.HazardCodes = NewCodeSet()
	}
	if r.PrecautionaryCodes == nil {
		r.PrecautionaryCodes = NewCodeSet()
	}
}

// OK reports whether the source returned data.
func (r *SourceRecord) OK() bool {
	return r != nil && r.Status == SourceStatusOK
}

// StringField returns a trimmed string identity field.
func (r *SourceRecord) StringField(key string) string {
	if r == nil || r.IdentityFields == nil {
		return ""
	}
	value, ok := r.IdentityFields[key].(string)
	if !ok {
		return ""
	}
	return value
}

// SetNote records an advisory note on the record.
func (r *SourceRecord) SetNote(note string) {
	r.Note = &note
}

// MammalianLevel is the summary mammalian toxicity grade.
type MammalianLevel string

const (
	MammalianLow           MammalianLevel = "Low"
	MammalianModerate      MammalianLevel = "Moderate"
	MammalianHigh          MammalianLevel = "High"
	MammalianLowToModerate MammalianLevel = "Low to moderate"
	MammalianUnknown       MammalianLevel = "Unknown"
)

// ToxicitySummary is the normalized view of a set of hazard codes.
type ToxicitySummary struct {
	MammalianLevel       MammalianLevel `json:"mammalian_level"`
	MammalianDetails     []string       `json:"mammalian_details"`
	EnvironmentalDetails []string       `json:"environmental_details"`
}

// Report is the terminal artifact of an analysis.
type Report struct {
	Query            string            `json:"query"`
	QueryType        QueryType         `json:"query_type"`
	LookupName       string            `json:"lookup_name"`
	ActiveIngredient string            `json:"active_ingredient"`
	Resolution       *ResolutionResult `json:"resolution"`
	Product          string            `json:"product"`
	RecommendedUse   string            `json:"recommended_use"`
	Toxicity         ToxicitySummary   `json:"toxicity"`
	Precautions      []string          `json:"precautions"`
	RegulatoryStatus map[string]any    `json:"regulatory_status"`
	Notes            []string          `json:"notes"`
	Sources          []*SourceRecord   `json:"sources"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// StringPtr returns a pointer to a copy of value.
func StringPtr(value string) *string {
	return &value
}
