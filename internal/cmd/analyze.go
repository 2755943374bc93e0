package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/config"
	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/output"
)

var (
	analyzeOutput  string
	analyzeNoCache bool
	analyzeBatch   string
	analyzeOut     string
	analyzeOutDir  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Build a safety summary for a product or active ingredient",
	Long: `Classify the query, resolve product names to an active ingredient, fetch
PubChem, ECHA and EPA CompTox concurrently, and print the safety summary.

Multi-word queries may be quoted or passed as separate arguments.`,
	Example: `  agritox analyze glyphosate
  agritox analyze "RoundUp Max" --output json
  agritox analyze --batch products.txt --output markdown --out-dir reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(analyzeOutput)
		if err != nil {
			return err
		}

		queries, err := collectQueries(args, analyzeBatch)
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			return fmt.Errorf("a query is required (pass it as an argument or use --batch)")
		}

		outPath := strings.TrimSpace(analyzeOut)
		outDir := strings.TrimSpace(analyzeOutDir)
		if outPath != "" && outDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}

		ctx := cmd.Context()
		cfg := loadConfig(ctx, nil)

		p, err := buildPipeline(ctx, cfg, pipelineOptions{noCache: analyzeNoCache})
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to build analysis pipeline", err)
		}
		defer p.Close()

		reports := make([]*core.Report, 0, len(queries))
		for _, query := range queries {
			report, err := analyzeOne(ctx, p, cfg, query)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}

		if outDir != "" {
			for _, report := range reports {
				path, err := sinkPath("", outDir, sanitizeFilename(report.Query), format)
				if err != nil {
					return err
				}
				if err := writeReports(path, format, []*core.Report{report}); err != nil {
					return err
				}
			}
			return nil
		}
		return writeReports(outPath, format, reports)
	},
}

func analyzeOne(ctx context.Context, p *pipeline, cfg *config.Config, query string) (*core.Report, error) {
	if cfg.Server.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.AnalyzeTimeout)
		defer cancel()
	}

	started := time.Now()
	report, err := p.orchestrator.Analyze(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", query, err)
	}

	observability.CLILogger.Debug("Analysis complete",
		zap.String("query", query),
		zap.String("query_type", string(report.QueryType)),
		zap.String("mammalian_level", string(report.Toxicity.MammalianLevel)),
		zap.Duration("elapsed", time.Since(started)))
	return report, nil
}

func writeReports(path string, format output.Format, reports []*core.Report) error {
	var (
		rendered string
		err      error
	)
	if len(reports) == 1 {
		rendered, err = output.NewFormatter(format).FormatReport(reports[0])
	} else {
		rendered, err = output.FormatReportList(format, reports)
	}
	if err != nil {
		return err
	}

	sink, err := openSink(path)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	_, err = fmt.Fprintln(sink.writer, strings.TrimRight(rendered, "\n"))
	return err
}

// collectQueries joins positional args into one query and appends one query
// per non-blank, non-comment line of the batch file.
func collectQueries(args []string, batchPath string) ([]string, error) {
	var queries []string
	if joined := strings.TrimSpace(strings.Join(args, " ")); joined != "" {
		queries = append(queries, joined)
	}

	batchPath = strings.TrimSpace(batchPath)
	if batchPath == "" {
		return queries, nil
	}

	file, err := os.Open(batchPath)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer file.Close() // nolint:errcheck // read-only

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return queries, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", string(output.FormatTable), "Output format: table|json|markdown")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Bypass the source and resolution cache")
	analyzeCmd.Flags().StringVar(&analyzeBatch, "batch", "", "Read additional queries from a file (one per line)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Write output to a file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "out-dir", "", "Write one file per query to a directory")
}
