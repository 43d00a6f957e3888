package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"
)

var (
	gifOut          string
	gifIncludeShort bool
	gifPlayers      string
	gifTheme        string

	historyOut    string
	historyFormat string
)

var exportGIFCmd = &cobra.Command{
	Use:   "export-gif",
	Short: "Render the whole race of the stored competition to an animated GIF",
	Args:  cobra.NoArgs,
	RunE:  runExportGIF,
}

var exportHistoryCmd = &cobra.Command{
	Use:   "export-history",
	Short: "Write every player's daily portfolio value to a parquet or JSON file",
	Long: `Writes one row per player and trading day with the long-only value, the
value including the short position and the short P&L.

Formats: parquet (default), json`,
	Args: cobra.NoArgs,
	RunE: runExportHistory,
}

func init() {
	exportGIFCmd.Flags().StringVarP(&gifOut, "out", "o", "cheese-stick-race.gif", "output file")
	exportGIFCmd.Flags().BoolVar(&gifIncludeShort, "include-short", false, "plot values including the short position")
	exportGIFCmd.Flags().StringVar(&gifPlayers, "players", "", "comma separated player indices (default: everyone)")
	exportGIFCmd.Flags().StringVar(&gifTheme, "theme", string(dashboard.ThemeDark), "chart theme (dark, light)")

	exportHistoryCmd.Flags().StringVarP(&historyOut, "out", "o", "", "output file (default: cheese-stick-history.<format>)")
	exportHistoryCmd.Flags().StringVar(&historyFormat, "format", "parquet", "output format (parquet, json)")
}

// -----------------------------------------------------------------------------

// loadPerformance values the stored competition for the offline commands.
func loadPerformance(ctx context.Context) (*models.MConfig, *models.MPerformance, *models.MCompetition, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	comps, err := setupComponents(conf.MConfig, appLogger)
	if err != nil {
		return nil, nil, nil, err
	}
	defer comps.Close()

	perf, comp, err := comps.Portfolio.Performance(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return conf.MConfig, perf, comp, nil
}

// -----------------------------------------------------------------------------

func runExportGIF(cmd *cobra.Command, args []string) error {
	theme, ok := dashboard.ParseTheme(gifTheme)
	if !ok {
		return fmt.Errorf("unknown theme %q", gifTheme)
	}

	cfg, perf, comp, err := loadPerformance(cmd.Context())
	if err != nil {
		return err
	}
	active, err := dashboard.ParsePlayers(gifPlayers, len(perf.Players))
	if err != nil {
		return err
	}

	data, err := dashboard.ExportGIF(cmd.Context(), cfg, perf, comp, dashboard.ExportOptions{
		IncludeShort: gifIncludeShort,
		Theme:        theme,
		Active:       active,
	}, logger.NewLogger(cfg, "Export"))
	if err != nil {
		return err
	}
	if err := os.WriteFile(gifOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", gifOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %d trading days)\n", gifOut, len(data), len(perf.TradingDays))
	return nil
}

// -----------------------------------------------------------------------------

func runExportHistory(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(historyFormat)
	if format != "parquet" && format != "json" {
		return fmt.Errorf("unsupported format %q (parquet, json)", historyFormat)
	}
	out := historyOut
	if out == "" {
		out = "cheese-stick-history." + format
	}

	_, perf, _, err := loadPerformance(cmd.Context())
	if err != nil {
		return err
	}
	rows := analysis.HistoryRows(perf)
	if err := writeHistory(out, format, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
	return nil
}

// writeHistory stores rows at path as parquet or indented JSON.
func writeHistory(path, format string, rows []models.MHistoryRow) error {
	switch format {
	case "parquet":
		if err := parquet.WriteFile(path, rows); err != nil {
			return fmt.Errorf("failed to write parquet %s: %w", path, err)
		}
		return nil
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
