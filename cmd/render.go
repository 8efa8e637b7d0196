package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/config"
	"github.com/iksnae/agentlog-viewer/internal/export"
	"github.com/iksnae/agentlog-viewer/internal/storage"
	"github.com/spf13/cobra"
)

var (
	renderTemplate   string
	renderFormat     string
	renderOutputDir  string
	renderColumns    string
	renderNoLineScan bool
	renderClearCache bool
	renderUpload     bool
	renderDedupe     bool
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <file.csv>",
	Short: "Render a CSV file to HTML, JSON, JSONL, YAML or Markdown",
	Long: `Parse and convert a CSV file, group its records into sessions and write a
document in the requested format.

The template defaults to the one recommended by the structure analysis. Results
are cached by file content and settings, so rendering the same file again skips
the pipeline. Use --upload to also store the rendered document in R2.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		content, err := readCSV(args[0])
		if err != nil {
			return err
		}
		filename := filepath.Base(args[0])

		// Create exporter first so a bad --format fails before any work
		exporter, err := export.NewExporter(renderFormat)
		if err != nil {
			return err
		}

		proc := newProcessor(cfg, !renderNoLineScan)
		res, err := processCached(cmd, cfg, proc, filename, content)
		if err != nil {
			return err
		}

		if renderDedupe {
			res.Records = internal.NewDeduplicator().Deduplicate(res.Records)
			res.Sessions = proc.Group(res.Records)
		}

		tmpl := res.Profile.RecommendedTemplate
		if renderTemplate != "" && renderTemplate != "auto" {
			if tmpl, err = internal.ParseTemplate(renderTemplate); err != nil {
				return err
			}
		}

		doc := export.NewDocument(filename, tmpl, config.SplitList(renderColumns), res)
		var buf bytes.Buffer
		if err := exporter.Export(doc, &buf); err != nil {
			return &internal.ExportError{Format: renderFormat, Path: filename, Err: err}
		}

		// Ensure output directory exists
		if err := os.MkdirAll(renderOutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		outName := export.OutputName(filename, tmpl, exporter.Extension(), doc.GeneratedAt)
		outPath := filepath.Join(renderOutputDir, outName)
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return &internal.ExportError{Format: renderFormat, Path: outPath, Err: err}
		}

		rec := internal.HistoryRecord{
			FileName:     outName,
			FileSize:     int64(buf.Len()),
			Template:     string(tmpl),
			RowCount:     len(res.Records),
			SessionCount: len(res.Sessions),
		}

		if renderUpload {
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			if !store.Enabled() {
				return fmt.Errorf("--upload needs R2 storage; set R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME")
			}
			var obj *storage.Object
			err = internal.ShowProgress(ctx, fmt.Sprintf("Uploading %s", outName), func() error {
				o, err := store.Upload(ctx, outName, exporter.ContentType(), buf.Bytes())
				obj = o
				return err
			})
			if err != nil {
				return err
			}
			rec.ObjectKey = obj.Key
			rec.PublicURL = obj.URL
		}

		recordHistory(cmd.Context(), cfg, rec)

		internal.PrintSuccess(fmt.Sprintf("Rendered %d record(s) as %s (%s) to %s", len(res.Records), renderFormat, tmpl, outPath))
		if rec.PublicURL != "" {
			internal.PrintInfo(fmt.Sprintf("Uploaded to %s", rec.PublicURL))
		}
		return nil
	},
}

// processCached runs the pipeline over content, reusing a cached result when
// the content and settings have been processed before.
func processCached(cmd *cobra.Command, cfg *config.Config, proc *internal.Processor, filename, content string) (*internal.Result, error) {
	cacheManager := internal.NewCacheManager(cfg.CacheDir)

	// Clear cache if requested
	if renderClearCache {
		if err := cacheManager.ClearCache(); err != nil {
			internal.LogWarn("Failed to clear cache: %v", err)
		} else {
			internal.LogInfo("Cache cleared")
		}
	}

	key := internal.CacheKey([]byte(content), proc.Config())
	if valid, err := cacheManager.IsCacheValid(key); err == nil && valid {
		internal.LogInfo("Loading result from cache...")
		res, err := cacheManager.Load(key)
		if err == nil {
			internal.LogInfo("Loaded %d record(s) from cache", len(res.Records))
			return res, nil
		}
		internal.LogWarn("Failed to load cache: %v, processing...", err)
	}

	res := &internal.Result{}
	steps := []internal.ProgressStep{
		{
			Message: "Parsing CSV",
			Fn: func() error {
				start := time.Now()
				doc, err := proc.Parse(content)
				if err != nil {
					return err
				}
				res.Document = doc
				res.Profile = proc.Analyze(doc)
				internal.LogDebug("Parsed %d row(s) in %s", len(doc.Rows), time.Since(start))
				return nil
			},
		},
		{
			Message: "Converting records and grouping sessions",
			Fn: func() error {
				res.Records = proc.Convert(res.Document)
				res.Sessions = proc.Group(res.Records)
				return nil
			},
		},
		{
			Message: "Caching result",
			Fn: func() error {
				if err := cacheManager.Save(key, filename, res); err != nil {
					internal.LogWarn("Failed to save cache: %v", err)
				}
				return nil
			},
		},
	}

	if err := internal.ShowProgressWithSteps(cmd.Context(), steps); err != nil {
		return nil, err
	}
	return res, nil
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "auto", "Layout (auto, single-turn, multi-turn, custom)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "html", "Output format (html, json, jsonl, yaml, md)")
	renderCmd.Flags().StringVarP(&renderOutputDir, "out", "o", ".", "Output directory")
	renderCmd.Flags().StringVar(&renderColumns, "columns", "", "Comma separated columns for the custom layout and row projections")
	renderCmd.Flags().BoolVar(&renderNoLineScan, "no-line-scan", false, "Disable the keyword line scan fallback for media URLs")
	renderCmd.Flags().BoolVar(&renderClearCache, "clear-cache", false, "Clear the cache before running")
	renderCmd.Flags().BoolVar(&renderUpload, "upload", false, "Upload the rendered document to R2")
	renderCmd.Flags().BoolVar(&renderDedupe, "dedupe", false, "Drop records whose content repeats an earlier record")
}
