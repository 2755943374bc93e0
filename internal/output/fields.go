package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agritox/agritox/internal/core"
)

func resolutionLabel(resolution *core.ResolutionResult) string {
	if resolution == nil {
		return "not needed"
	}
	label := fmt.Sprintf("%s (%s)", resolution.Method, resolution.Confidence)
	if resolution.SourceReference != nil && *resolution.SourceReference != "" {
		label += " via " + *resolution.SourceReference
	}
	if resolution.Error != nil && *resolution.Error != "" {
		label += ": " + *resolution.Error
	}
	return label
}

// sourceDetail summarizes what a record contributed, or why it did not.
func sourceDetail(record *core.SourceRecord) string {
	if record == nil {
		return ""
	}
	if !record.OK() {
		if record.Error != nil {
			return *record.Error
		}
		return "unavailable"
	}

	var parts []string
	for _, key := range []string{"title", "preferred_name", "product_name", "active_ingredient", "cid", "dtxsid", "casrn", "cas_number", "ec_number"} {
		value, ok := record.IdentityFields[key]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	if codes := record.HazardCodes.Sorted(); len(codes) > 0 {
		parts = append(parts, "hazards="+strings.Join(codes, ","))
	}
	if record.Note != nil && *record.Note != "" {
		parts = append(parts, *record.Note)
	}
	if record.Provenance.FromCache {
		parts = append(parts, "cached")
	}
	return strings.Join(parts, "; ")
}

// regulatoryRows flattens the regulatory status map into sorted key/value pairs.
func regulatoryRows(status map[string]any) [][2]string {
	keys := make([]string, 0, len(status))
	for key := range status {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][2]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, [2]string{key, regulatoryValue(status[key])})
	}
	return rows
}

func regulatoryValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []string:
		if len(typed) == 0 {
			return "none"
		}
		return strings.Join(typed, ", ")
	case []any:
		if len(typed) == 0 {
			return "none"
		}
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(typed)
	}
}
