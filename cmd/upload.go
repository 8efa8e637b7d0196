package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/storage"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload a CSV file to R2 and record it in the history",
	Long: `Store a CSV file in the configured R2 bucket under uploads/<millis>-<name>
and add it to the local history with its row and session counts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		ctx := cmd.Context()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if !store.Enabled() {
			return storage.ErrNotConfigured
		}

		name := filepath.Base(args[0])
		rec := internal.HistoryRecord{FileName: name, FileSize: int64(len(data))}

		// Counts are informational; an unparsable file is still uploaded
		res, err := newProcessor(cfg, true).Process(string(data))
		var formatErr *internal.FormatError
		switch {
		case errors.As(err, &formatErr):
			internal.LogWarn("Uploading %s without counts: %v", name, err)
		case err != nil:
			return err
		default:
			rec.Template = string(res.Profile.RecommendedTemplate)
			rec.RowCount = len(res.Records)
			rec.SessionCount = len(res.Sessions)
		}

		var obj *storage.Object
		err = internal.ShowProgress(ctx, fmt.Sprintf("Uploading %s", name), func() error {
			o, err := store.Upload(ctx, name, "text/csv", data)
			obj = o
			return err
		})
		if err != nil {
			return err
		}
		rec.ObjectKey = obj.Key
		rec.PublicURL = obj.URL

		saved := recordHistory(ctx, cfg, rec)

		out := cmd.OutOrStdout()
		pairs := [][2]string{
			{"Key", obj.Key},
			{"Size", fmt.Sprintf("%d bytes", obj.Size)},
		}
		if obj.URL != "" {
			pairs = append(pairs, [2]string{"URL", obj.URL})
		}
		if saved != nil {
			pairs = append(pairs, [2]string{"History ID", saved.ID})
		}
		_, _ = fmt.Fprint(out, internal.RenderKeyValues(pairs))
		internal.PrintSuccess(fmt.Sprintf("Uploaded %s", name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
