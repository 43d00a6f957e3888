package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"cheese-stick/src/config"
	"cheese-stick/src/logger"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cheese-stick",
	Short: "Cheese Stick portfolio race dashboard",
	Long: `Cheese Stick values a stock picking competition against daily closes and
plays it back as a race: a live dashboard over HTTP and websockets, a gRPC
control service, and offline GIF and history exports.

Run "cheese-stick serve" to start the dashboard.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.NewLogger(nil, "cli").Sync()
	},
}

// -----------------------------------------------------------------------------

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/default.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (DEBUG, INFO, WARNING, ERROR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportGIFCmd)
	rootCmd.AddCommand(exportHistoryCmd)
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(controlCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

// loadConfig reads the YAML file, falling back to defaults plus environment
// when the file does not exist, and applies the log level.
func loadConfig() (*config.Config, error) {
	conf, err := config.NewConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		conf, err = config.Parse([]byte("{}"))
	}
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		conf.LogLevel = strings.ToUpper(logLevel)
	}
	logger.SetLevel(conf.LogLevel)
	return conf, nil
}

// -----------------------------------------------------------------------------

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the configuration, then print the effective values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config OK: %s\n", configPath)
		fmt.Fprintf(out, "  http:    %s:%d\n", conf.Host, conf.Port)
		fmt.Fprintf(out, "  grpc:    %s:%d\n", conf.GrpcHost, grpcPort(conf.MConfig))
		fmt.Fprintf(out, "  storage: %s\n", conf.Storage.DBType)
		fmt.Fprintf(out, "  sources: %d\n", len(conf.DataSource.Sources))
		fmt.Fprintf(out, "  gif:     %dx%d, %d frames max\n", conf.Dashboard.GifWidth, conf.Dashboard.GifHeight, conf.Dashboard.GifMaxFrames)
		return nil
	},
}
