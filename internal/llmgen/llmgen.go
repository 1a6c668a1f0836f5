// Package llmgen implements planner.Generator against an OpenAI-compatible
// chat model: it prompts with the user's command and the registry's action
// library, then parses the model's JSON reply into a Program.
package llmgen

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/llm"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

const systemPrompt = `You are an automation AI that generates JSON protocols for desktop automation.

Extract the actual words, names, and terms from the user's command and use them verbatim in
action params. Never substitute a placeholder like "query" or "text" for the real content.

Respond with a single JSON object matching this shape, nothing else:

{
  "version": "1.0",
  "metadata": {"description": "...", "complexity": "simple|medium|complex", "uses_vision": true|false},
  "macros": {"macro_name": [{"action": "...", "params": {}, "wait_after_ms": 200}]},
  "actions": [{"action": "...", "params": {}, "wait_after_ms": 200}]
}

Use "press_key" for a single key, "shortcut" for keys pressed simultaneously. Use "verify_screen"
when uncertain about on-screen state, then reference {{verified_x}}/{{verified_y}} in the
following action's coordinates.`

// Generator adapts an llm.Client into planner.Generator.
type Generator struct {
	client *llm.Client
}

// New builds a Generator over client.
func New(client *llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate prompts the model with userInput and actionLibrary and parses the
// reply into a Program. Markdown code fences around the JSON (the model's
// most common formatting tic) are stripped before parsing, the same
// leniency _parse_protocol_response affords.
func (g *Generator) Generate(ctx context.Context, userInput, actionLibrary string) (*types.Program, error) {
	user := "USER COMMAND: \"" + userInput + "\"\n\n# AVAILABLE ACTIONS\n\n" + actionLibrary
	reply, _, err := g.client.Chat(ctx, systemPrompt, user)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindCommunicationError, err, "generate protocol")
	}
	cleaned := llm.StripFences(llm.StripThinkBlocks(reply))
	program, err := protocol.Parse(cleaned)
	if err != nil {
		return nil, err
	}
	return program, nil
}
