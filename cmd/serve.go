package cmd

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	servePort       string
	serveNoLineScan bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP service",
	Long: `Serve the analysis, preview, render and upload API over HTTP.

History is kept in HISTORY_DB and uploads go to R2 when it is configured.
Prometheus metrics are exposed at /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		opts := server.Options{
			Processor:      newProcessor(cfg, !serveNoLineScan),
			Metrics:        server.NewMetrics(reg),
			Gatherer:       reg,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Version:        version,
		}

		history, err := internal.OpenHistory(cfg.HistoryDB)
		if err != nil {
			internal.LogWarn("Upload history disabled: %v", err)
		} else {
			defer func() { _ = history.Close() }()
			opts.History = history
		}

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if store.Enabled() {
			internal.LogInfo("Uploading to bucket %s", store.Bucket())
			opts.Store = store
		} else {
			internal.LogWarn("R2 is not configured; upload endpoints will answer 503")
		}

		port := servePort
		if port == "" {
			port = cfg.Port
		}
		internal.PrintInfo("Serving on http://localhost:" + port)
		return server.New(opts).ListenAndServe(ctx, net.JoinHostPort("", port))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default $PORT or 3000)")
	serveCmd.Flags().BoolVar(&serveNoLineScan, "no-line-scan", false, "Disable the keyword line scan fallback for media URLs")
}
