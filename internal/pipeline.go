package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Config holds everything that changes pipeline output.
type Config struct {
	ExcludedFields []string
	Media          MediaConfig
	Steps          StepConfig
}

// DefaultConfig returns the stock pipeline configuration.
func DefaultConfig() Config {
	return Config{
		ExcludedFields: append([]string(nil), DefaultExcludedFields...),
		Media:          DefaultMediaConfig(),
		Steps:          DefaultStepConfig(),
	}
}

// Fingerprint identifies the configuration for cache keys.
func (c Config) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "exclude=%s;", strings.Join(c.ExcludedFields, ","))
	for _, r := range c.Media.Rules {
		fmt.Fprintf(&b, "rule=%s:%s;", r.Name, r.Pattern.String())
	}
	fmt.Fprintf(&b, "linescan=%t:%s;", c.Media.LineScan, strings.Join(c.Media.LineKeywords, ","))
	fmt.Fprintf(&b, "label=%s;", c.Steps.Label)
	for _, tl := range c.Steps.Tools {
		writeToolLabel(&b, "tool", tl)
	}
	writeToolLabel(&b, "generic", c.Steps.Generic)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// writeToolLabel writes tl to b. Highlight functions only contribute whether they are set.
func writeToolLabel(b *strings.Builder, kind string, tl ToolLabel) {
	strip := ""
	if tl.Strip != nil {
		strip = tl.Strip.String()
	}
	fmt.Fprintf(b, "%s=%s:%s:%s:strip=%q:highlights=%t;",
		kind, tl.Category, tl.Icon, strings.Join(tl.Tools, ","), strip, tl.Highlights != nil)
}

// Result is the full output of one pipeline run.
type Result struct {
	Document *ParsedDocument   `json:"document"`
	Profile  *StructureProfile `json:"profile"`
	Records  []*StandardRecord `json:"records"`
	Sessions []*Session        `json:"sessions"`
}

// Processor runs the parse, analyze, convert and group stages.
// It is immutable after construction and safe for concurrent use.
type Processor struct {
	cfg       Config
	analyzer  *Analyzer
	converter *Converter
}

// NewProcessor creates a Processor from cfg.
func NewProcessor(cfg Config) *Processor {
	return &Processor{
		cfg:       cfg,
		analyzer:  NewAnalyzer(WithExcludedFields(cfg.ExcludedFields)),
		converter: NewConverter(NewMediaExtractor(cfg.Media), NewStepParser(cfg.Steps)),
	}
}

// Config returns the configuration the processor was built with.
func (p *Processor) Config() Config {
	return p.cfg
}

// Parse parses raw CSV text.
func (p *Processor) Parse(content string) (*ParsedDocument, error) {
	return ParseDocument(content)
}

// Analyze profiles a parsed document.
func (p *Processor) Analyze(doc *ParsedDocument) *StructureProfile {
	return p.analyzer.Analyze(doc.Rows, doc.Headers)
}

// FilterHeaders drops the excluded columns.
func (p *Processor) FilterHeaders(headers []string) []string {
	return p.analyzer.FilterHeaders(headers)
}

// Convert turns every row of doc into a record.
func (p *Processor) Convert(doc *ParsedDocument) []*StandardRecord {
	return p.converter.Convert(doc.Rows)
}

// Group groups records into sessions.
func (p *Processor) Group(records []*StandardRecord) []*Session {
	return GroupBySession(records)
}

// Process runs every stage over content.
func (p *Processor) Process(content string) (*Result, error) {
	doc, err := p.Parse(content)
	if err != nil {
		return nil, err
	}
	records := p.Convert(doc)
	return &Result{
		Document: doc,
		Profile:  p.Analyze(doc),
		Records:  records,
		Sessions: p.Group(records),
	}, nil
}
