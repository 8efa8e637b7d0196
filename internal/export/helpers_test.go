package export

import (
	"testing"
	"time"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/testutil"
)

var fixedTime = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

// newTestDocument runs the sample CSV through the pipeline.
func newTestDocument(t *testing.T, tmpl internal.Template, columns ...string) *Document {
	t.Helper()
	res, err := internal.NewProcessor(internal.DefaultConfig()).Process(testutil.AgentLogCSV)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	doc := NewDocument("agent-logs.csv", tmpl, columns, res)
	doc.GeneratedAt = fixedTime
	return doc
}
