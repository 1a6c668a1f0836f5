package actuator

import (
	"context"
	"testing"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/bus"
	"github.com/pragnyanramtha/autopilot-go/internal/tasklog"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

type fakeRunner struct {
	result types.ExecutionResult
	err    error
	ran    []*types.Program
	log    *tasklog.ProgramLog
}

func (f *fakeRunner) Run(ctx context.Context, program *types.Program) (types.ExecutionResult, error) {
	f.ran = append(f.ran, program)
	return f.result, f.err
}

func (f *fakeRunner) SetLog(pl *tasklog.ProgramLog) { f.log = pl }

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	b, err := bus.New(t.TempDir())
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	return b
}

func TestRun_ExecutesSubmittedProgramAndPublishesStatus(t *testing.T) {
	b := newTestBus(t)
	runner := &fakeRunner{result: types.ExecutionResult{
		Status:           types.StatusSuccess,
		ActionsCompleted: 2,
		TotalActions:     2,
	}}
	a := New(b, runner, tasklog.NewRegistry(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx, 100*time.Millisecond) }()
	defer cancel()

	program := types.Program{
		Version:  "1.0",
		Metadata: types.Metadata{Description: "demo"},
		Actions:  []types.Action{{Action: "press_key", Params: map[string]any{"key": "enter"}}},
	}
	if err := b.Send(bus.TopicProgram, types.Message{
		Type:    types.MsgProgramSubmit,
		Payload: types.ProgramSubmitPayload{Program: program},
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	status, err := b.Receive(context.Background(), bus.TopicProgramStatus, 2*time.Second)
	if err != nil {
		t.Fatalf("receive status: %v", err)
	}
	if status == nil {
		t.Fatal("expected a status message")
	}
	payload, ok := status.Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload type %T", status.Payload)
	}
	if payload["status"] != string(types.StatusSuccess) {
		t.Fatalf("expected success status, got %v", payload["status"])
	}
	if len(runner.ran) != 1 {
		t.Fatalf("expected runner to be invoked once, got %d", len(runner.ran))
	}
	if runner.ran[0].Metadata.Description != "demo" {
		t.Fatalf("expected decoded program to preserve metadata, got %+v", runner.ran[0].Metadata)
	}
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	b := newTestBus(t)
	a := New(b, &fakeRunner{}, tasklog.NewRegistry(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, 50*time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("actuator did not stop after context cancellation")
	}
}

func TestRun_RunnerErrorStillPublishesFailedStatus(t *testing.T) {
	b := newTestBus(t)
	runner := &fakeRunner{err: context.DeadlineExceeded}
	a := New(b, runner, tasklog.NewRegistry(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx, 100*time.Millisecond) }()
	defer cancel()

	program := types.Program{Version: "1.0", Metadata: types.Metadata{Description: "will fail"}}
	if err := b.Send(bus.TopicProgram, types.Message{
		Type:    types.MsgProgramSubmit,
		Payload: types.ProgramSubmitPayload{Program: program},
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	status, err := b.Receive(context.Background(), bus.TopicProgramStatus, 2*time.Second)
	if err != nil || status == nil {
		t.Fatalf("receive status: %v (msg=%v)", err, status)
	}
	payload := status.Payload.(map[string]any)
	if payload["status"] != string(types.StatusFailed) {
		t.Fatalf("expected failed status, got %v", payload["status"])
	}
}
