package planner

import (
	"context"
	"testing"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/bus"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

type fakeGenerator struct {
	program *types.Program
	err     error
}

func (g *fakeGenerator) Generate(ctx context.Context, userInput, actionLibrary string) (*types.Program, error) {
	return g.program, g.err
}

type fakeCatalog struct{}

func (fakeCatalog) Lookup(name string) (protocol.ActionSpec, bool) {
	return protocol.ActionSpec{Name: name}, true
}

func validProgram() *types.Program {
	return &types.Program{
		Version:  "1.0",
		Metadata: types.Metadata{Description: "say hello"},
		Actions: []types.Action{
			{Action: "type", Params: map[string]any{"text": "hi"}},
		},
	}
}

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	b, err := bus.New(t.TempDir())
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	return b
}

func TestSubmit_PublishesValidProgramAndAwaitsStatus(t *testing.T) {
	b := newTestBus(t)
	p := New(&fakeGenerator{program: validProgram()}, b, fakeCatalog{}, protocol.ValidateOptions{})

	go func() {
		msg, err := b.Receive(context.Background(), bus.TopicProgram, 2*time.Second)
		if err != nil || msg == nil {
			return
		}
		_ = b.Send(bus.TopicProgramStatus, types.Message{
			ID:   msg.ID,
			Type: types.MsgProgramStatus,
			Payload: types.ProgramStatusPayload{
				Status:           types.StatusSuccess,
				ActionsCompleted: 1,
				TotalActions:     1,
				DurationMs:       12,
			},
		})
	}()

	result, err := p.Submit(context.Background(), "say hi", 2*time.Second)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != types.StatusSuccess {
		t.Fatalf("expected success status, got %q", result.Status)
	}
	if result.ActionsCompleted != 1 || result.TotalActions != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestSubmit_InvalidProgramNeverReachesBus(t *testing.T) {
	b := newTestBus(t)
	empty := &types.Program{Version: "1.0", Metadata: types.Metadata{Description: "empty"}}
	p := New(&fakeGenerator{program: empty}, b, fakeCatalog{}, protocol.ValidateOptions{})

	_, err := p.Submit(context.Background(), "do nothing", 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected validation error")
	}

	pending, pErr := b.Pending(bus.TopicProgram)
	if pErr != nil {
		t.Fatalf("pending: %v", pErr)
	}
	if pending != 0 {
		t.Fatalf("expected nothing published for an invalid program, got %d pending", pending)
	}
}

func TestSubmit_GeneratorErrorPropagates(t *testing.T) {
	b := newTestBus(t)
	p := New(&fakeGenerator{err: context.DeadlineExceeded}, b, fakeCatalog{}, protocol.ValidateOptions{})

	_, err := p.Submit(context.Background(), "do something", 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestSubmit_TimesOutWithoutStatus(t *testing.T) {
	b := newTestBus(t)
	p := New(&fakeGenerator{program: validProgram()}, b, fakeCatalog{}, protocol.ValidateOptions{})

	_, err := p.Submit(context.Background(), "say hi", 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error when nothing answers on program_status")
	}
}
