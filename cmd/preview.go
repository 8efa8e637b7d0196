package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	previewLimit   int
	previewSession string
	previewSince   string
)

var (
	// Styles for preview command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var previewCmd = &cobra.Command{
	Use:   "preview <file.csv>",
	Short: "Show the first converted records of a CSV file",
	Long: `Convert a CSV file and print its first records with their input, outcome,
step log and media links.`,
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

		res, err := newProcessor(cfg, true).Process(content)
		if err != nil {
			return err
		}

		records := res.Records
		if previewSession != "" {
			records = nil
			for _, s := range res.Sessions {
				if s.SessionID == previewSession {
					records = s.Turns
					break
				}
			}
			if records == nil {
				return fmt.Errorf("session not found: %s", previewSession)
			}
		}

		// Filter by timestamp if --since is provided
		if previewSince != "" {
			since, err := time.Parse(time.RFC3339, previewSince)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			filtered := make([]*internal.StandardRecord, 0, len(records))
			for _, r := range records {
				if t, ok := internal.ParseTimestamp(r.Timestamp); ok && !t.Before(since) {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}

		out := cmd.OutOrStdout()
		displayPreviewHeader(out, filepath.Base(args[0]), res, len(records))

		total := len(records)
		if previewLimit > 0 && previewLimit < len(records) {
			records = records[:previewLimit]
		}
		for i, r := range records {
			displayRecord(out, i+1, r, total)
		}

		// Show remaining count if limit was applied
		if previewLimit > 0 && previewLimit < total {
			_, _ = fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more record(s))", total-previewLimit)))
		}
		return nil
	},
}

func displayPreviewHeader(out io.Writer, name string, res *internal.Result, shown int) {
	_, _ = fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", name)))

	metaParts := []string{
		fmt.Sprintf("Records: %d", shown),
		fmt.Sprintf("Sessions: %d", len(res.Sessions)),
		fmt.Sprintf("Template: %s", res.Profile.RecommendedTemplate),
	}
	if n := len(res.Document.Skipped); n > 0 {
		metaParts = append(metaParts, fmt.Sprintf("Skipped lines: %d", n))
	}
	_, _ = fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(out)
}

func displayRecord(out io.Writer, index int, r *internal.StandardRecord, total int) {
	header := userMessageStyle.Render("👤 "+recordLabel(r)) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if r.Timestamp != "" {
		if t, ok := internal.ParseTimestamp(r.Timestamp); ok {
			header += " " + timestampStyle.Render(t.Format("2006-01-02 15:04:05"))
		} else {
			header += " " + timestampStyle.Render(r.Timestamp)
		}
	}
	_, _ = fmt.Fprintln(out, header)

	input := strings.TrimSpace(r.Input)
	if input != "" {
		_, _ = fmt.Fprintln(out, messageContentStyle.Render(wrapText(internal.Truncate(input, 400), 80)))
	} else {
		_, _ = fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty input)"))
	}

	_, _ = fmt.Fprintln(out, assistantMessageStyle.Render("🤖 "+internal.Outcome(r)))
	if r.StepLog.HasSteps {
		var lines []string
		lines = append(lines, r.StepLog.Summary)
		for _, s := range r.StepLog.Steps {
			lines = append(lines, fmt.Sprintf("%d. %s", s.StepNumber, internal.Truncate(firstLine(s.Content), 100)))
		}
		_, _ = fmt.Fprintln(out, messageContentStyle.Render(strings.Join(lines, "\n")))
	}

	media := append(append([]internal.MediaReference{}, r.InputMedia...), r.OutputMedia...)
	for _, m := range media {
		_, _ = fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("   %s: %s", m.Type, m.URL)))
	}
	_, _ = fmt.Fprintln(out)
}

func recordLabel(r *internal.StandardRecord) string {
	switch {
	case r.ID != "" && r.SessionID != "":
		return fmt.Sprintf("%s (session %s)", r.ID, r.SessionID)
	case r.ID != "":
		return r.ID
	default:
		return "record"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 20, "Limit number of records to show (0 for all)")
	previewCmd.Flags().StringVar(&previewSession, "session", "", "Only show the turns of this session")
	previewCmd.Flags().StringVar(&previewSince, "since", "", "Show records since timestamp (RFC3339)")
}
