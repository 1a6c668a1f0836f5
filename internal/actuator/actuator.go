// Package actuator is the Actuator side (C8) of the automation pipeline: it
// polls the bus for one Program at a time, runs it through the Executor,
// and reports the terminal result back on the status topic.
package actuator

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/bus"
	"github.com/pragnyanramtha/autopilot-go/internal/tasklog"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

// Runner is the narrow surface the Actuator drives a program through.
// Implemented by *executor.Executor.
type Runner interface {
	Run(ctx context.Context, program *types.Program) (types.ExecutionResult, error)
	SetLog(pl *tasklog.ProgramLog)
}

// Actuator polls for program submissions and runs them one at a time,
// mirroring communication.py's receive-workflow / execute / send-status
// loop but over the bus's watch-then-poll Receive instead of a bare
// sleep-and-retry cycle.
type Actuator struct {
	bus    *bus.Bus
	runner Runner
	logs   *tasklog.Registry
}

// New builds an Actuator. logs may be nil; every tasklog call is a no-op
// in that case.
func New(b *bus.Bus, runner Runner, logs *tasklog.Registry) *Actuator {
	return &Actuator{bus: b, runner: runner, logs: logs}
}

// Run blocks, processing one program at a time, until ctx is cancelled.
// pollTimeout bounds each individual wait for the next submission so the
// loop wakes up periodically to observe ctx.Done() even when idle.
func (a *Actuator) Run(ctx context.Context, pollTimeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := a.bus.Receive(ctx, bus.TopicProgram, pollTimeout)
		if err != nil {
			log.Printf("[ACTUATOR] receive error: %v", err)
			continue
		}
		if msg == nil {
			continue
		}

		program, ok := extractProgram(msg.Payload)
		if !ok {
			log.Printf("[ACTUATOR] dropped malformed program.submit message id=%s", msg.ID)
			continue
		}

		a.runOne(ctx, msg.ID, program)
	}
}

// runOne executes a single program and publishes its terminal status.
// programID identifies the run for the tasklog registry; it is the bus
// message ID rather than any field inside the program document, since a
// submitted Program carries no ID of its own.
func (a *Actuator) runOne(ctx context.Context, programID string, program *types.Program) {
	a.runner.SetLog(a.logs.Open(programID, program.Metadata.Description))

	log.Printf("[ACTUATOR] running program %q (%s, %d actions)", programID, program.Metadata.Description, len(program.Actions))
	result, err := a.runner.Run(ctx, program)
	if err != nil {
		log.Printf("[ACTUATOR] run error for %q: %v", programID, err)
		result = types.ExecutionResult{
			ProgramID: programID,
			Status:    types.StatusFailed,
			Error:     err.Error(),
		}
	}

	a.logs.Close(programID, string(result.Status), result.ActionsCompleted, result.TotalActions, result.Error)

	statusMsg := types.Message{
		Type: types.MsgProgramStatus,
		ID:   programID,
		Payload: types.ProgramStatusPayload{
			Status:           result.Status,
			ActionsCompleted: result.ActionsCompleted,
			TotalActions:     result.TotalActions,
			DurationMs:       result.DurationMs,
			Error:            result.Error,
			ErrorDetails:     result.ErrorDetails,
			Context:          &result.Context,
		},
	}
	if err := a.bus.Send(bus.TopicProgramStatus, statusMsg); err != nil {
		log.Printf("[ACTUATOR] failed to publish status for %q: %v", programID, err)
	}
}

// extractProgram recovers a *types.Program from a bus message payload. Every
// message the bus hands back has round-tripped through JSON, so Payload
// always arrives as map[string]any, never the original
// types.ProgramSubmitPayload value.
func extractProgram(payload any) (*types.Program, bool) {
	p, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, ok := p["program"]
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var program types.Program
	if err := json.Unmarshal(data, &program); err != nil {
		return nil, false
	}
	return &program, true
}
