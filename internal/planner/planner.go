// Package planner is the Planner side (C7) of the automation pipeline: it
// turns a natural-language request into a validated Program and hands it to
// the Actuator over the bus, then waits for the terminal status.
package planner

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pragnyanramtha/autopilot-go/internal/bus"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
	"github.com/pragnyanramtha/autopilot-go/internal/registry"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// Generator turns a user request into a candidate Program. It is satisfied
// by an LLM-backed implementation that prompts with the registry's action
// library the way protocol_generator.py hands Gemini the action catalogue.
type Generator interface {
	Generate(ctx context.Context, userInput, actionLibrary string) (*types.Program, error)
}

// Planner owns Generate -> Validate -> Submit -> await-status.
type Planner struct {
	gen      Generator
	bus      *bus.Bus
	catalog  protocol.ActionCatalog
	validate protocol.ValidateOptions
}

// New builds a Planner. catalog is typically *registry.Registry.
func New(gen Generator, b *bus.Bus, catalog protocol.ActionCatalog, opts protocol.ValidateOptions) *Planner {
	return &Planner{gen: gen, bus: b, catalog: catalog, validate: opts}
}

// documenter is the optional surface a catalog can satisfy to supply the
// machine-readable action library a Generator embeds in its prompt, the way
// protocol_generator.py hands Gemini action_registry.get_action_library_for_ai().
type documenter interface {
	Describe() map[string]registry.Description
}

// Submit generates a Program for userInput, validates it, publishes it on
// the program topic, and blocks for the terminal program.status message.
// A validation failure never reaches the bus: it returns immediately as a
// protoerr.KindValidationFailed.
func (p *Planner) Submit(ctx context.Context, userInput string, statusTimeout time.Duration) (types.ExecutionResult, error) {
	library := ""
	if d, ok := p.catalog.(documenter); ok {
		if data, err := json.Marshal(d.Describe()); err == nil {
			library = string(data)
		}
	}

	program, err := p.gen.Generate(ctx, userInput, library)
	if err != nil {
		return types.ExecutionResult{}, protoerr.Wrap(protoerr.KindCommunicationError, err, "generate program")
	}

	result := protocol.Validate(program, p.catalog, p.validate)
	if !result.IsValid {
		return types.ExecutionResult{}, protoerr.New(protoerr.KindValidationFailed, "generated program failed validation: %v", result.Errors)
	}
	for _, w := range result.Warnings {
		log.Printf("[PLANNER] validation warning: %s", w)
	}

	// The Actuator reuses this ID as the correlating key on program_status,
	// so it is minted here rather than left for Send to fill in, the same
	// request/response correlation ReceiveByID is built for.
	id := uuid.NewString()
	msg := types.Message{
		ID:      id,
		Type:    types.MsgProgramSubmit,
		Payload: types.ProgramSubmitPayload{Program: *program},
	}
	if err := p.bus.Send(bus.TopicProgram, msg); err != nil {
		return types.ExecutionResult{}, protoerr.Wrap(protoerr.KindCommunicationError, err, "publish program")
	}
	log.Printf("[PLANNER] submitted program %s %q (%d actions)", id, program.Metadata.Description, len(program.Actions))

	statusMsg, err := p.bus.ReceiveByID(ctx, bus.TopicProgramStatus, id, statusTimeout)
	if err != nil {
		return types.ExecutionResult{}, protoerr.Wrap(protoerr.KindCommunicationError, err, "await program status")
	}
	if statusMsg == nil {
		return types.ExecutionResult{}, protoerr.New(protoerr.KindTimeout, "timed out waiting for program status")
	}
	payload, ok := statusMsg.Payload.(map[string]any)
	if !ok {
		return types.ExecutionResult{}, protoerr.New(protoerr.KindCommunicationError, "unexpected program status payload shape")
	}
	return decodeStatus(payload), nil
}

// decodeStatus converts the loosely-typed JSON payload the bus hands back
// (messages round-trip through encoding/json, so Payload arrives as
// map[string]any rather than the original ProgramStatusPayload) into an
// ExecutionResult-shaped summary for the caller.
func decodeStatus(payload map[string]any) types.ExecutionResult {
	res := types.ExecutionResult{}
	if v, ok := payload["status"].(string); ok {
		res.Status = types.ExecutionStatus(v)
	}
	if v, ok := payload["actions_completed"].(float64); ok {
		res.ActionsCompleted = int(v)
	}
	if v, ok := payload["total_actions"].(float64); ok {
		res.TotalActions = int(v)
	}
	if v, ok := payload["duration_ms"].(float64); ok {
		res.DurationMs = int64(v)
	}
	if v, ok := payload["error"].(string); ok {
		res.Error = v
	}
	return res
}

// Compile-time check: registry.Registry is usable directly as a Planner catalog.
var _ protocol.ActionCatalog = (*registry.Registry)(nil)
