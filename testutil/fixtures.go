package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// AgentLogCSV is a small multi-turn agent export: two turns in session s1
// (out of time order) and one turn without a session.
const AgentLogCSV = `id,timestamp,userId,sessionId,turnNumber,input,output,latency,level
r1,2024-05-01 10:00:05,u1,s1,2,"{""user_input"":""[{\""type\"":\""text\"",\""text\"":\""make it blue\""}]""}","步骤 1: Observation of Tool ` + "`terminate`" + `, output is: done",120,INFO
r2,2024-05-01 10:00:00,u1,s1,1,"{""user_input"":""[{\""type\"":\""text\"",\""text\"":\""draw a cat\""},{\""type\"":\""image\"",\""image_url\"":\""https://example.com/ref.jpg\""}]""}","步骤 1: Observation of Tool ` + "`Navo_image_generate`" + `, output is: https://liblibai-online.liblib.cloud/agent_images/0a1b2c3d-4e5f.png",340,INFO
r3,2024-05-01 11:00:00,u2,,1,hello,plain answer,80,DEBUG
`

// SingleTurnCSV has input and output columns but no session or turn columns.
const SingleTurnCSV = `id,input,output
q1,what is 2+2?,4
q2,"say ""hi""",hi
`

// HeaderOnlyCSV has no data rows and fails to parse.
const HeaderOnlyCSV = "id,input,output\n"

// WriteCSVFixture writes content to dir/name and returns the path
func WriteCSVFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write CSV fixture %s: %v", name, err)
	}
	return path
}
