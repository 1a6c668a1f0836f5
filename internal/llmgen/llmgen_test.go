package llmgen

import (
	"testing"

	"github.com/pragnyanramtha/autopilot-go/internal/llm"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
)

// TestGenerate_StripsFencesBeforeParsing runs a fenced model reply through the
// same StripThinkBlocks, StripFences and protocol.Parse steps Generate applies
// to a reply, without a live chat client.
func TestGenerate_StripsFencesBeforeParsing(t *testing.T) {
	reply := "```json\n" + `{
  "version": "1.0",
  "metadata": {"description": "open the browser"},
  "actions": [{"action": "open_app", "params": {"name": "Safari"}}]
}` + "\n```"
	cleaned := llm.StripFences(llm.StripThinkBlocks(reply))
	program, err := protocol.Parse(cleaned)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if program.Metadata.Description != "open the browser" {
		t.Fatalf("unexpected metadata: %+v", program.Metadata)
	}
	if len(program.Actions) != 1 || program.Actions[0].Action != "open_app" {
		t.Fatalf("unexpected actions: %+v", program.Actions)
	}
}
