package internal

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Column names the converter and analyzer read by exact match.
const (
	ColumnID        = "id"
	ColumnTimestamp = "timestamp"
	ColumnUserID    = "userId"
	ColumnSessionID = "sessionId"
	ColumnInput     = "input"
	ColumnOutput    = "output"
)

const (
	defaultMediaSampleRows = 10
	defaultTypeSampleSize  = 10
	profileSampleRows      = 3
)

// DefaultExcludedFields are header fragments dropped from type inference.
var DefaultExcludedFields = []string{"latency", "level", "observationcount"}

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Analyzer profiles parsed documents.
type Analyzer struct {
	excluded        []string
	mediaSampleRows int
	typeSampleSize  int
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithExcludedFields replaces the exclusion blocklist. Matching is case-insensitive.
func WithExcludedFields(fields []string) AnalyzerOption {
	return func(a *Analyzer) {
		a.excluded = make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				a.excluded = append(a.excluded, f)
			}
		}
	}
}

// WithMediaSampleRows sets how many leading rows are scanned for media.
func WithMediaSampleRows(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.mediaSampleRows = n
		}
	}
}

// WithTypeSampleSize sets how many non-blank values are sampled per column.
func WithTypeSampleSize(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.typeSampleSize = n
		}
	}
}

// NewAnalyzer creates an Analyzer with the default blocklist and sample sizes.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		excluded:        append([]string(nil), DefaultExcludedFields...),
		mediaSampleRows: defaultMediaSampleRows,
		typeSampleSize:  defaultTypeSampleSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsExcluded reports whether a header matches the blocklist.
func (a *Analyzer) IsExcluded(header string) bool {
	lower := strings.ToLower(header)
	for _, ex := range a.excluded {
		if strings.Contains(lower, ex) {
			return true
		}
	}
	return false
}

// FilterHeaders returns the headers that survive the blocklist, in order.
func (a *Analyzer) FilterHeaders(headers []string) []string {
	kept := make([]string, 0, len(headers))
	for _, h := range headers {
		if !a.IsExcluded(h) {
			kept = append(kept, h)
		}
	}
	return kept
}

// Analyze builds the structure profile of a document.
func (a *Analyzer) Analyze(rows []Row, headers []string) *StructureProfile {
	filtered := a.FilterHeaders(headers)

	p := &StructureProfile{
		TotalRows:       len(rows),
		TotalColumns:    len(headers),
		FilteredColumns: len(filtered),
		ExcludedColumns: len(headers) - len(filtered),
		HasSessionID:    anyHeaderContains(headers, "session"),
		HasTurnNumber:   anyHeaderContains(headers, "turn"),
		HasTimestamp:    anyHeaderContains(headers, "time"),
		HasInput:        anyHeaderContains(headers, "input"),
		HasOutput:       anyHeaderContains(headers, "output"),
		DataTypes:       make(map[string]DataType, len(filtered)),
		SampleData:      append([]Row{}, rows[:min(profileSampleRows, len(rows))]...),
	}

	p.HasMediaURLs = a.detectMedia(rows[:min(a.mediaSampleRows, len(rows))])
	for _, h := range filtered {
		p.DataTypes[h] = a.detectDataType(rows, h)
	}
	p.RecommendedTemplate = RecommendTemplate(p)

	LogDebug("Analyzed %d rows: %d/%d columns kept, template %s", p.TotalRows, p.FilteredColumns, p.TotalColumns, p.RecommendedTemplate)
	return p
}

// RecommendTemplate picks a layout from the role flags.
func RecommendTemplate(p *StructureProfile) Template {
	switch {
	case p.HasSessionID && p.HasTurnNumber:
		return TemplateMultiTurn
	case p.HasInput && p.HasOutput:
		return TemplateSingleTurn
	default:
		return TemplateCustom
	}
}

func (a *Analyzer) detectMedia(rows []Row) bool {
	for _, row := range rows {
		if input := row.Get(ColumnInput); input != "" && DecodeUserInput(input).HasImage() {
			return true
		}
		if strings.Contains(row.Get(ColumnOutput), KnownAgentImagePath) {
			return true
		}
		for _, v := range row.values {
			if ContainsMediaURL(v) {
				return true
			}
		}
	}
	return false
}

func (a *Analyzer) detectDataType(rows []Row, column string) DataType {
	samples := make([]string, 0, a.typeSampleSize)
	for _, row := range rows {
		if v := strings.TrimSpace(row.Get(column)); v != "" {
			samples = append(samples, v)
			if len(samples) == a.typeSampleSize {
				break
			}
		}
	}

	switch {
	case len(samples) == 0:
		return DataTypeEmpty
	case strings.Contains(strings.ToLower(column), "time") && allMatch(samples, isoDatePrefix.MatchString):
		return DataTypeTimestamp
	case anyMatch(samples, func(s string) bool { return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") }):
		return DataTypeJSON
	case allMatch(samples, isNumber):
		return DataTypeNumber
	case anyMatch(samples, func(s string) bool { return strings.Contains(s, "http") }):
		return DataTypeURL
	default:
		return DataTypeText
	}
}

// isNumber accepts finite decimal values only; ParseFloat alone also takes nan and inf.
func isNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func anyHeaderContains(headers []string, fragment string) bool {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), fragment) {
			return true
		}
	}
	return false
}

func allMatch(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func anyMatch(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}
