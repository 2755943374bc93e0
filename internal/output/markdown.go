package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/agritox/agritox/internal/core"
)

// MarkdownFormatter renders a report as a standalone Markdown document. This
// is the export format.
type MarkdownFormatter struct{}

// FormatReport renders a report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Safety summary: %s\n\n", escapeMarkdown(report.Query))

	fmt.Fprintf(&sb, "- **Query type**: %s\n", report.QueryType)
	if report.Resolution != nil {
		fmt.Fprintf(&sb, "- **Resolution**: %s\n", escapeMarkdown(resolutionLabel(report.Resolution)))
	}
	fmt.Fprintf(&sb, "- **Active ingredient**: %s\n", escapeMarkdown(report.ActiveIngredient))
	fmt.Fprintf(&sb, "- **Product**: %s\n", escapeMarkdown(report.Product))
	fmt.Fprintf(&sb, "- **Recommended use**: %s\n", escapeMarkdown(report.RecommendedUse))

	sb.WriteString("\n## Toxicity\n\n")
	fmt.Fprintf(&sb, "**Mammalian level**: %s\n\n", report.Toxicity.MammalianLevel)
	writeList(&sb, report.Toxicity.MammalianDetails)
	sb.WriteString("\n**Environmental**\n\n")
	writeList(&sb, report.Toxicity.EnvironmentalDetails)

	if len(report.Precautions) > 0 {
		sb.WriteString("\n## Precautions\n\n")
		writeList(&sb, report.Precautions)
	}

	sb.WriteString("\n## Regulatory status\n\n")
	sb.WriteString("| Authority | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	for _, row := range regulatoryRows(report.RegulatoryStatus) {
		fmt.Fprintf(&sb, "| %s | %s |\n", escapeMarkdownCell(row[0]), escapeMarkdownCell(row[1]))
	}

	sb.WriteString("\n## Notes\n\n")
	writeList(&sb, report.Notes)

	if len(report.Sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		sb.WriteString("| Source | Status | Detail |\n")
		sb.WriteString("|--------|--------|--------|\n")
		for _, record := range report.Sources {
			if record == nil {
				continue
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n",
				escapeMarkdownCell(record.SourceID),
				escapeMarkdownCell(string(record.Status)),
				escapeMarkdownCell(sourceDetail(record)),
			)
		}
	}

	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "\n_Generated %s_\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	}
	return sb.String(), nil
}

func writeList(sb *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", escapeMarkdown(item))
	}
}

func escapeMarkdown(value string) string {
	return strings.NewReplacer("*", "\\*", "_", "\\_").Replace(value)
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, "|", "\\|"), "\n", " ")
}
