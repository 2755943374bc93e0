package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/agritox/agritox/internal/core"
)

// TableFormatter renders reports as ASCII tables.
type TableFormatter struct{}

// FormatReport renders a report as a summary table followed by a source table.
func (f *TableFormatter) FormatReport(report *core.Report) (string, error) {
	if report == nil {
		return "", nil
	}

	summary := table.NewWriter()
	summary.SetStyle(table.StyleRounded)
	summary.SetTitle("AgriTox: " + report.Query)
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 72, WidthMaxEnforcer: text.WrapSoft}})

	summary.AppendRow(table.Row{"Query type", string(report.QueryType)})
	summary.AppendRow(table.Row{"Resolution", resolutionLabel(report.Resolution)})
	summary.AppendRow(table.Row{"Active ingredient", report.ActiveIngredient})
	summary.AppendRow(table.Row{"Product", report.Product})
	summary.AppendRow(table.Row{"Recommended use", report.RecommendedUse})
	summary.AppendSeparator()
	summary.AppendRow(table.Row{"Mammalian level", string(report.Toxicity.MammalianLevel)})
	summary.AppendRow(table.Row{"Mammalian", strings.Join(report.Toxicity.MammalianDetails, "\n")})
	summary.AppendRow(table.Row{"Environmental", strings.Join(report.Toxicity.EnvironmentalDetails, "\n")})
	if len(report.Precautions) > 0 {
		summary.AppendRow(table.Row{"Precautions", strings.Join(report.Precautions, "\n")})
	}
	summary.AppendSeparator()
	for _, row := range regulatoryRows(report.RegulatoryStatus) {
		summary.AppendRow(table.Row{row[0], row[1]})
	}
	summary.AppendSeparator()
	summary.AppendRow(table.Row{"Notes", strings.Join(report.Notes, "\n")})

	rendered := summary.Render()
	if len(report.Sources) == 0 {
		return rendered, nil
	}

	sources := table.NewWriter()
	sources.SetStyle(table.StyleRounded)
	sources.AppendHeader(table.Row{"Source", "Role", "Status", "Detail"})
	sources.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft}})
	for _, record := range report.Sources {
		if record == nil {
			continue
		}
		sources.AppendRow(table.Row{record.SourceID, string(record.Role), string(record.Status), sourceDetail(record)})
	}

	return rendered + "\n" + sources.Render(), nil
}
