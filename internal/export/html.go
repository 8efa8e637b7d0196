package export

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/iksnae/agentlog-viewer/internal"
)

//go:embed templates/document.html.tmpl
var templateFS embed.FS

var documentTemplate = template.Must(
	template.New("document.html.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "templates/document.html.tmpl"),
)

var templateFuncs = template.FuncMap{
	"outcome":  internal.Outcome,
	"truncate": internal.Truncate,
	"shortID": func(id string) string {
		return internal.Truncate(id, 12)
	},
	"cell": func(r *internal.StandardRecord, column string) string {
		return r.OriginalRow.Get(column)
	},
	"formatTime": formatTime,
	"add": func(a, b int) int {
		return a + b
	},
}

// HTMLExporter renders a self-contained, searchable HTML page
type HTMLExporter struct{}

type htmlView struct {
	Title      string
	Layout     internal.Template
	Doc        *Document
	Columns    []string
	Sessions   []*internal.Session
	MediaCount int
	ItemCount  int
}

// Export renders the document with the layout named by its template
func (e *HTMLExporter) Export(doc *Document, w io.Writer) error {
	view := htmlView{
		Title:     "Agent logs",
		Layout:    doc.Template,
		Doc:       doc,
		Sessions:  doc.Sessions,
		ItemCount: len(doc.Records),
	}
	if doc.Filename != "" {
		view.Title = "Agent logs - " + doc.Filename
	}
	for _, r := range doc.Records {
		view.MediaCount += len(r.InputMedia) + len(r.OutputMedia)
	}

	switch doc.Template {
	case internal.TemplateMultiTurn:
		if view.Sessions == nil {
			view.Sessions = internal.GroupBySession(doc.Records)
		}
		view.ItemCount = len(view.Sessions)
	case internal.TemplateCustom:
		view.Columns = columnsFor(doc)
	case internal.TemplateSingleTurn:
	default:
		return fmt.Errorf("unsupported template: %s", doc.Template)
	}

	return documentTemplate.Execute(w, view)
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}

// ContentType returns the MIME type for this format
func (e *HTMLExporter) ContentType() string {
	return "text/html; charset=utf-8"
}

func formatTime(ts string) string {
	t, ok := internal.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}
