package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/output"
)

var (
	cachePurgeExpired bool
	cachePurgeOutput  string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the source and resolution cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached source records and resolutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(cachePurgeOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		result, err := db.PurgeCache(cmd.Context(), cachePurgeExpired)
		if err != nil {
			return err
		}
		observability.CLILogger.Debug("Cache purged",
			zap.Bool("expired_only", cachePurgeExpired),
			zap.Int64("sources", result.Sources),
			zap.Int64("resolutions", result.Resolutions))

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		}

		scope := "all"
		if cachePurgeExpired {
			scope = "expired"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %s cache entries: %d source record(s), %d resolution(s)\n",
			scope, result.Sources, result.Resolutions)
		return err
	},
}

func init() {
	cachePurgeCmd.Flags().BoolVar(&cachePurgeExpired, "expired", false, "Only delete entries past their expiry")
	cachePurgeCmd.Flags().StringVar(&cachePurgeOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
