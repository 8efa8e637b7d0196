package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/config"
	"github.com/iksnae/agentlog-viewer/internal/storage"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	envFile string
	exclude string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"

	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agentlog-viewer",
	Short: "Inspect, convert and render agent conversation logs exported as CSV",
	Long: `A CLI and HTTP service that turns agent conversation logs exported as CSV
into searchable documents.

Each row is parsed, profiled and converted into a record with its decoded user
input, media links and the step log mined from the agent output. Records can be
grouped into sessions and exported as HTML, JSON, JSONL, YAML or Markdown.

Features:
  • Structure analysis with a recommended layout
  • Single-turn, multi-turn and custom column layouts
  • Processing cache keyed by file content and settings
  • Optional upload to Cloudflare R2 with a local history

Quick Start:
  agentlog-viewer analyze logs.csv            # Profile a file
  agentlog-viewer render logs.csv --format md  # Render a document
  agentlog-viewer serve                        # Start the HTTP service`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if cfg.LogLevel != "" && !verbose {
			internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
		}
		if exclude != "" {
			cfg.ExcludedFields = config.SplitList(exclude)
		}
		appConfig = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load settings from this .env file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&exclude, "exclude", "", "Comma separated header fragments to leave out of type inference")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// currentConfig returns the loaded configuration, loading defaults when a
// command runs without the root pre-run.
func currentConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// newProcessor builds the pipeline from the loaded configuration.
func newProcessor(cfg *config.Config, lineScan bool) *internal.Processor {
	pc := internal.DefaultConfig()
	if len(cfg.ExcludedFields) > 0 {
		pc.ExcludedFields = cfg.ExcludedFields
	}
	pc.Media.LineScan = lineScan
	return internal.NewProcessor(pc)
}

// readCSV reads a CSV file as text
func readCSV(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// openStore connects to the configured bucket. The returned store reports
// Enabled() == false when R2 is not configured.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	return store, nil
}

// recordHistory adds rec to the history database, logging instead of failing
// when the database is unavailable.
func recordHistory(ctx context.Context, cfg *config.Config, rec internal.HistoryRecord) *internal.HistoryRecord {
	history, err := internal.OpenHistory(cfg.HistoryDB)
	if err != nil {
		internal.LogWarn("Failed to open history: %v", err)
		return nil
	}
	defer func() { _ = history.Close() }()

	saved, err := history.Add(ctx, rec)
	if err != nil {
		internal.LogWarn("Failed to record history: %v", err)
		return nil
	}
	return saved
}
