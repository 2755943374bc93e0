package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/output"
)

var (
	exportFile    string
	exportNoCache bool
)

var exportCmd = &cobra.Command{
	Use:   "export <query>",
	Short: "Export a Markdown safety summary",
	Long: `Analyze the query and write the Markdown safety summary. Without --file the
document is written to agritox-<query>.md in the current directory; use
--file - for stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("a query is required")
		}

		ctx := cmd.Context()
		cfg := loadConfig(ctx, nil)

		p, err := buildPipeline(ctx, cfg, pipelineOptions{noCache: exportNoCache})
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to build analysis pipeline", err)
		}
		defer p.Close()

		report, err := analyzeOne(ctx, p, cfg, query)
		if err != nil {
			return err
		}

		path := strings.TrimSpace(exportFile)
		if path == "" {
			path = output.ExportFilename(query)
		}
		if err := writeReports(path, output.FormatMarkdown, []*core.Report{report}); err != nil {
			return err
		}
		if path != "-" {
			observability.CLILogger.Info("Exported safety summary", zap.String("path", path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "Destination path (default agritox-<query>.md, - for stdout)")
	exportCmd.Flags().BoolVar(&exportNoCache, "no-cache", false, "Bypass the source and resolution cache")
}
