package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

func newTestBus(t *testing.T) *Bus {
	dir, err := os.MkdirTemp("", "bus-test-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	b, err := New(dir)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	return b
}

func TestSendReceive_RoundTripAndDeleteOnRead(t *testing.T) {
	b := newTestBus(t)
	msg := types.Message{Type: types.MsgProgramSubmit, Payload: map[string]any{"hello": "world"}}
	if err := b.Send(TopicProgram, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	n, _ := b.Pending(TopicProgram)
	if n != 1 {
		t.Fatalf("expected 1 pending message, got %d", n)
	}
	got, err := b.Receive(context.Background(), TopicProgram, 0)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a message")
	}
	if got.Type != msg.Type {
		t.Fatalf("type mismatch: got %v want %v", got.Type, msg.Type)
	}
	n, _ = b.Pending(TopicProgram)
	if n != 0 {
		t.Fatalf("expected message file deleted after read, got %d pending", n)
	}
}

func TestReceive_OldestFirst(t *testing.T) {
	b := newTestBus(t)
	first := types.Message{ID: "first", Type: types.MsgProgramStatus, Payload: 1}
	if err := b.Send(TopicProgramStatus, first); err != nil {
		t.Fatalf("send first: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	second := types.Message{ID: "second", Type: types.MsgProgramStatus, Payload: 2}
	if err := b.Send(TopicProgramStatus, second); err != nil {
		t.Fatalf("send second: %v", err)
	}
	got, err := b.Receive(context.Background(), TopicProgramStatus, 0)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got.ID != "first" {
		t.Fatalf("expected oldest message first, got %s", got.ID)
	}
}

func TestReceive_EmptyWithZeroTimeoutReturnsNil(t *testing.T) {
	b := newTestBus(t)
	got, err := b.Receive(context.Background(), TopicVisionRequest, 0)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for empty topic with zero timeout")
	}
}

func TestReceiveByID_CorrelatesRequestResponse(t *testing.T) {
	b := newTestBus(t)
	resp := types.Message{ID: "req-123", Type: types.MsgVisionResponse, Payload: "ok"}
	if err := b.Send(TopicVisionResponse, resp); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := b.ReceiveByID(context.Background(), TopicVisionResponse, "req-123", time.Second)
	if err != nil {
		t.Fatalf("receive by id: %v", err)
	}
	if got == nil || got.ID != "req-123" {
		t.Fatalf("expected correlated message, got %+v", got)
	}
}

func TestReceive_WaitsForArrival(t *testing.T) {
	b := newTestBus(t)
	go func() {
		time.Sleep(50 * time.Millisecond)
		b.Send(TopicProgram, types.Message{Type: types.MsgProgramSubmit, Payload: "late"})
	}()
	got, err := b.Receive(context.Background(), TopicProgram, 2*time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a message to arrive within timeout")
	}
}

func TestClear_RemovesAllPending(t *testing.T) {
	b := newTestBus(t)
	b.Send(TopicProgram, types.Message{Type: types.MsgProgramSubmit, Payload: 1})
	b.Send(TopicProgram, types.Message{Type: types.MsgProgramSubmit, Payload: 2})
	if err := b.Clear(TopicProgram); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, _ := b.Pending(TopicProgram)
	if n != 0 {
		t.Fatalf("expected 0 pending after clear, got %d", n)
	}
}
