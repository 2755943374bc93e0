package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/core"
)

func fixedBuilder() *Builder {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Builder{Clock: func() time.Time { return now }}
}

func echaRecord(hazards, precautions []string, use string) *core.SourceRecord {
	record := core.NewSourceRecord("echa", core.SourceRoleRegulatory)
	record.HazardCodes.Add(hazards...)
	record.PrecautionaryCodes.Add(precautions...)
	if use != "" {
		record.RecommendedUse = core.StringPtr(use)
	}
	return record
}

func pubchemRecord(title string) *core.SourceRecord {
	record := core.NewSourceRecord("pubchem", core.SourceRoleIdentity)
	if title != "" {
		record.IdentityFields["title"] = title
	}
	return record
}

func TestBuildProductWithAquaticHazard(t *testing.T) {
	query := core.NewChemicalQuery("RoundUp Max")
	resolution := &core.ResolutionResult{
		ResolvedName:    core.StringPtr("glyphosate"),
		Method:          core.MethodDirect,
		Confidence:      core.ConfidenceHigh,
		SourceReference: core.StringPtr("alias-table"),
	}
	records := []*core.SourceRecord{
		pubchemRecord("Glyphosate"),
		echaRecord([]string{"H302", "H411"}, []string{"P273", "P391"}, "Herbicide"),
	}

	report := fixedBuilder().Build(query, resolution, records)

	require.Equal(t, "RoundUp Max", report.Query)
	require.Equal(t, core.QueryTypeProduct, report.QueryType)
	require.Equal(t, "glyphosate", report.LookupName)
	require.Equal(t, "Glyphosate", report.ActiveIngredient)
	require.Equal(t, "Glyphosate", report.Product)
	require.Equal(t, "Herbicide", report.RecommendedUse)
	require.Equal(t, core.MammalianLow, report.Toxicity.MammalianLevel)
	require.Contains(t, report.Toxicity.EnvironmentalDetails, "Toxic to aquatic life with long lasting effects")
	require.Equal(t, []string{"Avoid contamination of water sources."}, report.Notes)
	require.Equal(t, []string{"P273: Avoid release to the environment.", "P391: Collect spillage."}, report.Precautions)
	require.Equal(t, "ok", report.RegulatoryStatus["ECHA"])
	require.Equal(t, []string{"H302", "H411"}, report.RegulatoryStatus["CLP"])
	require.Len(t, report.Sources, 2)
	require.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), report.GeneratedAt)
}

func TestBuildPrefersRegulatoryNames(t *testing.T) {
	regulatory := echaRecord(nil, nil, "")
	regulatory.IdentityFields["product_name"] = "Roundup Max"
	regulatory.IdentityFields["active_ingredient"] = "Glyphosate isopropylamine salt"

	report := fixedBuilder().Build(core.NewChemicalQuery("glyphosate"), nil, []*core.SourceRecord{pubchemRecord("Glyphosate"), regulatory})

	require.Equal(t, "Roundup Max", report.Product)
	require.Equal(t, "Glyphosate isopropylamine salt", report.ActiveIngredient)
	require.Equal(t, "glyphosate", report.LookupName)
}

func TestBuildNoHazards(t *testing.T) {
	records := []*core.SourceRecord{pubchemRecord(""), echaRecord(nil, nil, "")}

	report := fixedBuilder().Build(core.NewChemicalQuery("Unknown Compound 9999"), nil, records)

	require.Equal(t, core.QueryTypeActiveIngredient, report.QueryType)
	require.Nil(t, report.Resolution)
	require.Equal(t, core.MammalianLowToModerate, report.Toxicity.MammalianLevel)
	require.Equal(t, []string{"Low to moderate"}, report.Toxicity.EnvironmentalDetails)
	require.Equal(t, []string{"No special notes."}, report.Notes)
	require.Equal(t, "Unknown", report.Product)
	require.Equal(t, "Unknown", report.ActiveIngredient)
	require.Equal(t, "Unknown", report.RecommendedUse)
	require.Empty(t, report.Precautions)
	require.NotNil(t, report.Precautions)
}

func TestBuildHighLevelAddsPPE(t *testing.T) {
	records := []*core.SourceRecord{echaRecord([]string{"H300", "H410"}, nil, "")}

	report := fixedBuilder().Build(core.NewChemicalQuery("paraquat"), nil, records)

	require.Equal(t, core.MammalianHigh, report.Toxicity.MammalianLevel)
	require.Equal(t, []string{NotePPE, NoteWater}, report.Notes)
}

func TestBuildRegulatoryUnavailable(t *testing.T) {
	records := []*core.SourceRecord{
		pubchemRecord("Glyphosate"),
		core.UnavailableRecord("echa", core.SourceRoleRegulatory, errors.New("echa search: transport failure: timeout")),
	}

	report := fixedBuilder().Build(core.NewChemicalQuery("glyphosate"), nil, records)

	require.Equal(t, "Unknown", report.RecommendedUse)
	require.Equal(t, "Glyphosate", report.ActiveIngredient)
	require.Equal(t, "unavailable", report.RegulatoryStatus["ECHA"])
	require.Equal(t, []string{}, report.RegulatoryStatus["CLP"])
	require.Equal(t, []string{"No special notes."}, report.Notes)
}

func TestBuildAllUnavailableAddsDegradedNote(t *testing.T) {
	records := []*core.SourceRecord{
		core.UnavailableRecord("pubchem", core.SourceRoleIdentity, errors.New("down")),
		core.UnavailableRecord("echa", core.SourceRoleRegulatory, errors.New("down")),
	}

	report := fixedBuilder().Build(core.NewChemicalQuery("glyphosate"), nil, records)

	require.Equal(t, []string{NoteDegraded, NoteNone}, report.Notes)
}

func TestBuildWithoutRegulatorySource(t *testing.T) {
	report := fixedBuilder().Build(core.NewChemicalQuery("glyphosate"), nil, nil)

	require.Equal(t, "Unknown", report.RegulatoryStatus["ECHA"])
	require.NotNil(t, report.Sources)
}

func TestLookupName(t *testing.T) {
	product := core.NewChemicalQuery("Gold Spray")
	require.Equal(t, "", LookupName(product, nil))
	require.Equal(t, "atrazine", LookupName(product, &core.ResolutionResult{ResolvedName: core.StringPtr("atrazine"), Method: core.MethodDirect}))
	require.Equal(t, "atrazine", LookupName(core.NewChemicalQuery(" atrazine "), nil))
}
