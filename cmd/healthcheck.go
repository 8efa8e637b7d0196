package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/config"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that configuration, history, cache and storage are usable",
	Long: `Check the health of agentlog-viewer by verifying:
  • Configuration loading
  • History database access
  • Cache directory access
  • R2 bucket reachability (when configured)

Use --verbose for paths and other diagnostic details.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		return runHealthcheck(cmd.Context(), cmd.OutOrStdout(), cfg, verbose)
	},
}

func runHealthcheck(ctx context.Context, out io.Writer, cfg *config.Config, detailed bool) error {
	line := func(a ...interface{}) { _, _ = fmt.Fprintln(out, a...) }
	linef := func(format string, a ...interface{}) { _, _ = fmt.Fprintf(out, format, a...) }
	failures := 0

	line(sectionStyle.Render("🔍 Agent Log Viewer Health Check"))
	line()

	// Step 1: Configuration
	line(infoStyle.Render("Step 1: Loading configuration..."))
	line(successStyle.Render("✅ Configuration loaded"))
	if detailed {
		linef("   Port: %s\n", cfg.Port)
		linef("   Max upload: %d bytes\n", cfg.MaxUploadBytes)
		if len(cfg.ExcludedFields) > 0 {
			linef("   Excluded fields: %v\n", cfg.ExcludedFields)
		}
	}
	line()

	// Step 2: History database
	line(infoStyle.Render("Step 2: Checking history database..."))
	history, err := internal.OpenHistory(cfg.HistoryDB)
	if err == nil {
		err = history.Ping(ctx)
	}
	if err != nil {
		failures++
		line(errorStyle.Render("❌ History database unavailable:"), err)
	} else {
		records, listErr := history.List(ctx, 0)
		if listErr != nil {
			failures++
			line(errorStyle.Render("❌ Failed to read history:"), listErr)
		} else {
			line(successStyle.Render(fmt.Sprintf("✅ History database ready (%d record(s))", len(records))))
		}
	}
	if history != nil {
		_ = history.Close()
	}
	if detailed {
		linef("   Database: %s\n", cfg.HistoryDB)
	}
	line()

	// Step 3: Cache directory
	line(infoStyle.Render("Step 3: Checking cache directory..."))
	cacheManager := internal.NewCacheManager(cfg.CacheDir)
	if err := cacheManager.EnsureCacheDir(); err != nil {
		failures++
		line(errorStyle.Render("❌ Cache directory unavailable:"), err)
	} else if index, err := cacheManager.LoadIndex(); err == nil {
		line(successStyle.Render(fmt.Sprintf("✅ Cache ready (%d entr(ies), version %s)", len(index.Entries), index.Metadata.CacheVersion)))
	} else {
		line(successStyle.Render("✅ Cache ready (empty)"))
	}
	if detailed {
		linef("   Directory: %s\n", cacheManager.GetCacheDir())
	}
	line()

	// Step 4: Object storage
	line(infoStyle.Render("Step 4: Checking R2 object storage..."))
	storageOK := false
	if !cfg.R2Enabled() {
		line(warningStyle.Render("⚠️  R2 is not configured"))
		if detailed {
			linef("   Set R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME to enable uploads\n")
		}
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		store, err := openStore(pingCtx, cfg)
		if err == nil {
			err = store.Ping(pingCtx)
		}
		cancel()
		if err != nil {
			failures++
			line(errorStyle.Render("❌ Bucket unreachable:"), err)
		} else {
			storageOK = true
			line(successStyle.Render("✅ Bucket reachable"))
		}
		if detailed {
			linef("   Endpoint: %s\n", cfg.Endpoint())
			linef("   Bucket: %s\n", cfg.R2BucketName)
		}
	}
	line()

	// Summary
	line(sectionStyle.Render("📊 Summary"))
	line()

	if failures > 0 {
		line(errorStyle.Render("❌ Health check failed"))
		linef("   • %d check(s) failed\n", failures)
		return fmt.Errorf("health check failed: %d check(s) failed", failures)
	}
	line(successStyle.Render("✅ Health check passed!"))
	if storageOK {
		line(successStyle.Render("   • Uploads: Available"))
	} else {
		line("   • Uploads: Disabled")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
