package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/iksnae/agentlog-viewer/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Extension() string
	ContentType() string
}

// Document is everything an exporter renders: converted records, their sessions
// and the layout they were prepared for.
type Document struct {
	Filename    string                     `json:"filename" yaml:"filename"`
	Template    internal.Template          `json:"template" yaml:"template"`
	Columns     []string                   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Records     []*internal.StandardRecord `json:"records" yaml:"records"`
	Sessions    []*internal.Session        `json:"sessions,omitempty" yaml:"sessions,omitempty"`
	GeneratedAt time.Time                  `json:"generatedAt" yaml:"generated_at"`
}

// NewDocument builds a Document from a pipeline result. Sessions are only carried
// for the multi-turn layout.
func NewDocument(filename string, tmpl internal.Template, columns []string, res *internal.Result) *Document {
	doc := &Document{
		Filename:    filename,
		Template:    tmpl,
		Columns:     columns,
		Records:     res.Records,
		GeneratedAt: time.Now().UTC(),
	}
	if tmpl == internal.TemplateMultiTurn {
		doc.Sessions = res.Sessions
	}
	return doc
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "html":
		return &HTMLExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: html, jsonl, md, yaml, json)", format)
	}
}

// OutputName returns the download name <base>_<template>_<timestamp>.<ext>
func OutputName(filename string, tmpl internal.Template, ext string, at time.Time) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "agent-logs"
	}
	return fmt.Sprintf("%s_%s_%s.%s", base, tmpl, at.UTC().Format("2006-01-02T15-04-05"), ext)
}

// columnsFor returns the selected columns, or every column of the first record.
func columnsFor(doc *Document) []string {
	if len(doc.Columns) > 0 {
		return doc.Columns
	}
	if len(doc.Records) > 0 {
		return doc.Records[0].OriginalRow.Headers()
	}
	return nil
}

// projectRow keeps only the given columns, in the given order.
func projectRow(row internal.Row, columns []string) internal.Row {
	if len(columns) == 0 {
		return row
	}
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = row.Get(c)
	}
	return internal.NewRow(columns, values)
}
