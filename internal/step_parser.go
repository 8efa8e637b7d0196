package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultStepLabel is the marker word agents write before each step number.
const DefaultStepLabel = "步骤"

// UnknownTool is the tool name of a step synthesized by the fallback.
const UnknownTool = "unknown"

const (
	summaryRunes    = 50
	maxDesignPoints = 6
	maxPlanSteps    = 5
)

// HighlightFunc pulls short display bullets out of a tool's output.
type HighlightFunc func(output string) []string

// ToolLabel maps a family of tool names to its display prefix.
type ToolLabel struct {
	Category string
	Icon     string
	Tools    []string
	// Strip is removed once from the output before formatting, when set.
	Strip      *regexp.Regexp
	Highlights HighlightFunc
}

// StepConfig configures a StepParser.
type StepConfig struct {
	Label   string
	Tools   []ToolLabel
	Generic ToolLabel
}

// DefaultToolLabels returns the built-in tool table.
func DefaultToolLabels() []ToolLabel {
	return []ToolLabel{
		{Category: "analysis", Icon: "🔍", Tools: []string{"image_analyzer"}, Strip: regexp.MustCompile(`Image analysis result:\s*`)},
		{Category: "generation", Icon: "🎨", Tools: []string{"Navo_image_generate", "image_generate"}},
		{Category: "guidance", Icon: "📋", Tools: []string{"poster_design_guidance", "task_domain_guidance"}, Highlights: DesignPoints},
		{Category: "handoff", Icon: "🔄", Tools: []string{"handoff"}},
		{Category: "planning", Icon: "📝", Tools: []string{"make_plan"}, Highlights: PlanSteps},
		{Category: "completion", Icon: "✅", Tools: []string{"terminate"}},
	}
}

// DefaultStepConfig returns the default marker label and tool table.
func DefaultStepConfig() StepConfig {
	return StepConfig{
		Label:   DefaultStepLabel,
		Tools:   DefaultToolLabels(),
		Generic: ToolLabel{Category: "tool", Icon: "🔧"},
	}
}

var (
	toolHeader     = regexp.MustCompile("Observation of Tool `([^`]+)`, output is:\\s*")
	completionHint = regexp.MustCompile(`(?i)(\w+)\s*has\s+(generated|done|completed)`)
	excessBlank    = regexp.MustCompile(`\n\s*\n\s*\n`)
	numberedPoint  = regexp.MustCompile(`\d+\.\s+`)
	planStep       = regexp.MustCompile(`Step \d+[^:]*:\s*([^\n]+)`)
)

// StepParser mines agent traces for labeled steps.
// It holds only compiled patterns and is safe for concurrent use.
type StepParser struct {
	cfg    StepConfig
	marker *regexp.Regexp
	loose  *regexp.Regexp
	byTool map[string]ToolLabel
}

// NewStepParser creates a StepParser. An empty label falls back to DefaultStepLabel.
func NewStepParser(cfg StepConfig) *StepParser {
	if cfg.Label == "" {
		cfg.Label = DefaultStepLabel
	}
	if cfg.Generic.Icon == "" {
		cfg.Generic = DefaultStepConfig().Generic
	}
	label := regexp.QuoteMeta(cfg.Label)
	byTool := make(map[string]ToolLabel)
	for _, tl := range cfg.Tools {
		for _, name := range tl.Tools {
			if _, exists := byTool[name]; !exists {
				byTool[name] = tl
			}
		}
	}
	return &StepParser{
		cfg:    cfg,
		marker: regexp.MustCompile(label + `\s*(\d+):`),
		loose:  regexp.MustCompile(label + `[一二三四五六七八九十\d]+[:：]`),
		byTool: byTool,
	}
}

// Parse extracts the ordered step sequence from an agent output.
func (p *StepParser) Parse(text string) StepLog {
	if text == "" {
		return StepLog{Steps: []StepRecord{}}
	}

	steps := p.parseMarked(text)
	if len(steps) == 0 && (completionHint.MatchString(text) || p.loose.MatchString(text)) {
		steps = append(steps, StepRecord{
			StepNumber:  1,
			Tool:        UnknownTool,
			Content:     NormalizeNewlines(text),
			ToolOutput:  text,
			FullContent: text,
		})
	}

	result := StepLog{Steps: steps, HasSteps: len(steps) > 0}
	if result.HasSteps {
		result.Summary = fmt.Sprintf("%d steps", len(steps))
	} else {
		result.Summary = truncateRunes(text, summaryRunes) + "..."
	}
	return result
}

// parseMarked returns one step per marker. Each span runs to the next marker.
func (p *StepParser) parseMarked(text string) []StepRecord {
	steps := []StepRecord{}
	markers := p.marker.FindAllStringSubmatchIndex(text, -1)
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		// Overflowing numbers stay 0; the number is display metadata only.
		number, _ := strconv.Atoi(text[m[2]:m[3]])
		steps = append(steps, p.buildStep(number, strings.TrimSpace(text[m[1]:end])))
	}
	return steps
}

func (p *StepParser) buildStep(number int, span string) StepRecord {
	step := StepRecord{StepNumber: number, FullContent: span}

	loc := toolHeader.FindStringSubmatchIndex(span)
	if loc == nil {
		step.Content = NormalizeNewlines(span)
		return step
	}

	step.Tool = span[loc[2]:loc[3]]
	step.ToolOutput = strings.TrimSpace(p.cutOutput(span[loc[1]:]))

	label, ok := p.byTool[step.Tool]
	if !ok {
		label = p.cfg.Generic
	}
	output := step.ToolOutput
	if label.Strip != nil {
		if m := label.Strip.FindStringIndex(output); m != nil {
			output = output[:m[0]] + output[m[1]:]
		}
	}
	output = NormalizeNewlines(output)
	step.Content = fmt.Sprintf("%s [%s] %s", label.Icon, step.Tool, output)
	if label.Highlights != nil {
		step.Highlights = label.Highlights(output)
	}
	return step
}

// cutOutput ends tool output at the first blank line or step label.
func (p *StepParser) cutOutput(s string) string {
	end := len(s)
	if i := strings.Index(s, "\n\n"); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(s, p.cfg.Label); i >= 0 && i < end {
		end = i
	}
	return s[:end]
}

// NormalizeNewlines decodes literal \n sequences and keeps at most one blank line in a row.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = excessBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// DesignPoints returns the first line of each numbered section, at most six.
func DesignPoints(text string) []string {
	var points []string
	for _, section := range numberedPoint.Split(text, -1) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		first := strings.TrimSpace(strings.SplitN(section, "\n", 2)[0])
		if first == "" {
			continue
		}
		points = append(points, first)
		if len(points) == maxDesignPoints {
			break
		}
	}
	return points
}

// PlanSteps returns the text of each "Step N: ..." line, at most five.
func PlanSteps(text string) []string {
	var steps []string
	for _, m := range planStep.FindAllStringSubmatch(text, maxPlanSteps) {
		steps = append(steps, strings.TrimSpace(m[1]))
	}
	return steps
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
