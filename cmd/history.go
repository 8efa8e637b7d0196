package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	templateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the upload and render history",
	Long:  `List, delete or clear the records kept in the local history database.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded uploads and renders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		history, err := internal.OpenHistory(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() { _ = history.Close() }()

		records, err := history.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		displayHistory(cmd.OutOrStdout(), records, time.Now())
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a history record and its uploaded object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		history, err := internal.OpenHistory(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() { _ = history.Close() }()

		ctx := cmd.Context()
		rec, err := history.Get(ctx, args[0])
		if errors.Is(err, internal.ErrHistoryNotFound) {
			return fmt.Errorf("history record not found: %s (use 'agentlog-viewer history list' to see available records)", args[0])
		}
		if err != nil {
			return err
		}

		if rec.ObjectKey != "" {
			store, err := openStore(ctx, cfg)
			switch {
			case err != nil:
				internal.LogWarn("Skipping object delete: %v", err)
			case !store.Enabled():
				internal.LogWarn("Object storage is not configured, leaving %s in the bucket", rec.ObjectKey)
			default:
				if err := store.Delete(ctx, rec.ObjectKey); err != nil {
					return err
				}
				internal.LogInfo("Deleted object %s", rec.ObjectKey)
			}
		}

		if err := history.Delete(ctx, rec.ID); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Deleted history record %s", rec.ID))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every history record",
	Long:  `Remove every history record. Uploaded objects are left in the bucket.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		history, err := internal.OpenHistory(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() { _ = history.Close() }()

		n, err := history.Clear(cmd.Context())
		if err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Cleared %d history record(s)", n))
		return nil
	},
}

func displayHistory(out io.Writer, records []internal.HistoryRecord, now time.Time) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No history found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d record(s)", len(records)))
	_, _ = fmt.Fprintln(out, header)
	_, _ = fmt.Fprintln(out)

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("File")+"\t"+titleStyle.Render("Rows")+"\t"+titleStyle.Render("Sessions")+"\t"+titleStyle.Render("Template")+"\t"+titleStyle.Render("When")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, rec := range records {
		name := rec.FileName
		if name == "" {
			name = "Untitled"
		}
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		tmpl := dateStyle.Render("—")
		if rec.Template != "" {
			tmpl = templateStyle.Render(rec.Template)
		}

		shortID := rec.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID),
			name,
			countStyle.Render(strconv.Itoa(rec.RowCount)),
			countStyle.Render(strconv.Itoa(rec.SessionCount)),
			tmpl,
			dateStyle.Render(formatWhen(rec.UploadedAt, now)),
		)
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the full ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(records[0].ID)+
		idStyle.Render(") with `agentlog-viewer history delete <id>`"))
}

// formatWhen renders t relative to now the way the history list shows it
func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyDeleteCmd, historyClearCmd)
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum number of records to show (0 for all)")
}
