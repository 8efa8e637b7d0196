package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	analyzeJSON bool
)

// analysisReport is the --json output of analyze
type analysisReport struct {
	Filename string                     `json:"filename"`
	Headers  []string                   `json:"headers"`
	Analysis *internal.StructureProfile `json:"analysis"`
	Skipped  []internal.RowDiagnostic   `json:"skipped"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Profile the structure of an agent log CSV",
	Long: `Parse a CSV file and report its shape: row and column counts, which
well-known columns are present, the inferred type of every column and the
recommended rendering template.`,
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

		proc := newProcessor(cfg, true)
		doc, err := proc.Parse(content)
		if err != nil {
			return err
		}
		profile := proc.Analyze(doc)

		out := cmd.OutOrStdout()
		if analyzeJSON {
			skipped := doc.Skipped
			if skipped == nil {
				skipped = []internal.RowDiagnostic{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(analysisReport{
				Filename: filepath.Base(args[0]),
				Headers:  doc.Headers,
				Analysis: profile,
				Skipped:  skipped,
			})
		}

		printProfile(out, filepath.Base(args[0]), doc, profile)
		return nil
	},
}

func printProfile(out io.Writer, name string, doc *internal.ParsedDocument, p *internal.StructureProfile) {
	_, _ = fmt.Fprintln(out, internal.RenderHeading("📊 "+name))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, internal.RenderKeyValues([][2]string{
		{"Rows", countStyle.Render(strconv.Itoa(p.TotalRows))},
		{"Columns", strconv.Itoa(p.TotalColumns)},
		{"Analyzed columns", strconv.Itoa(p.FilteredColumns)},
		{"Excluded columns", strconv.Itoa(p.ExcludedColumns)},
		{"Skipped lines", strconv.Itoa(len(doc.Skipped))},
		{"Session IDs", yesNo(p.HasSessionID)},
		{"Turn numbers", yesNo(p.HasTurnNumber)},
		{"Timestamps", yesNo(p.HasTimestamp)},
		{"Input / output", yesNo(p.HasInput) + " / " + yesNo(p.HasOutput)},
		{"Media URLs", yesNo(p.HasMediaURLs)},
		{"Recommended template", titleStyle.Render(string(p.RecommendedTemplate))},
	}))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Column")+"\t"+titleStyle.Render("Type")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 40))
	for _, h := range doc.Headers {
		typ, ok := p.DataTypes[h]
		if !ok {
			_, _ = fmt.Fprintf(w, "%s\t%s\t\n", h, dateStyle.Render("excluded"))
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t\n", h, templateStyle.Render(string(typ)))
	}
	_ = w.Flush()

	if len(doc.Skipped) > 0 {
		_, _ = fmt.Fprintln(out)
		for _, d := range doc.Skipped {
			_, _ = fmt.Fprintln(out, idStyle.Render(fmt.Sprintf("line %d: %s", d.Line, d.Reason)))
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the analysis as JSON")
}
