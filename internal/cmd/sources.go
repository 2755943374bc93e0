package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/agritox/agritox/internal/core/source"
	"github.com/agritox/agritox/internal/output"
	"github.com/agritox/agritox/internal/server/handlers"
)

var sourcesTestOutput string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect external data sources",
}

var sourcesTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that every enabled source answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(sourcesTestOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		ctx := cmd.Context()
		cfg := loadConfig(ctx, nil)

		p, err := buildPipeline(ctx, cfg, pipelineOptions{noCache: true})
		if err != nil {
			return err
		}
		defer p.Close()

		results := handlers.ProbeAll(ctx, p.probers)

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(handlers.SourcesTestResponse{Sources: results}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderProbeTable(results))
		return err
	},
}

func renderProbeTable(results []source.ProbeResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Reachable", "Status", "Latency", "Detail"})
	for _, result := range results {
		reachable := "no"
		if result.Reachable {
			reachable = "yes"
		}
		status := "-"
		if result.StatusCode > 0 {
			status = fmt.Sprintf("%d", result.StatusCode)
		}
		detail := result.Error
		if detail == "" {
			detail = result.URL
		}
		t.AppendRow(table.Row{result.SourceID, reachable, status, result.Latency.Round(time.Millisecond), detail})
	}
	if len(results) == 0 {
		t.AppendRow(table.Row{"(none enabled)", "", "", "", ""})
	}
	return strings.TrimRight(t.Render(), "\n")
}

func init() {
	sourcesTestCmd.Flags().StringVar(&sourcesTestOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	sourcesCmd.AddCommand(sourcesTestCmd)
	rootCmd.AddCommand(sourcesCmd)
}
