package verifier

import (
	"context"
	"testing"

	"github.com/pragnyanramtha/autopilot-go/internal/llm"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

func TestParseResponse_WellFormedJSON(t *testing.T) {
	text := `{"safe_to_proceed": true, "confidence": 0.92, "analysis": "login button visible", "coordinates": {"x": 120, "y": 340}, "suggested_actions": []}`
	got := parseResponse(text, "test-model", 0.7)
	if !got.SafeToProceed {
		t.Fatalf("expected safe_to_proceed true")
	}
	if got.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %v", got.Confidence)
	}
	if got.UpdatedCoordinates == nil || got.UpdatedCoordinates.X != 120 || got.UpdatedCoordinates.Y != 340 {
		t.Fatalf("expected coordinates (120,340), got %+v", got.UpdatedCoordinates)
	}
	if got.ModelUsed != "test-model" {
		t.Fatalf("expected model_used to be set")
	}
}

func TestParseResponse_MarkdownFencedJSON(t *testing.T) {
	text := "```json\n{\"safe_to_proceed\": false, \"confidence\": 0.4, \"analysis\": \"dialog obscures target\"}\n```"
	got := parseResponse(text, "test-model", 0.7)
	if got.SafeToProceed {
		t.Fatalf("expected safe_to_proceed false")
	}
	if got.Analysis != "dialog obscures target" {
		t.Fatalf("unexpected analysis: %q", got.Analysis)
	}
}

func TestParseResponse_BelowThresholdForcesUnsafe(t *testing.T) {
	text := `{"safe_to_proceed": true, "confidence": 0.5, "analysis": "maybe visible"}`
	got := parseResponse(text, "test-model", 0.8)
	if got.SafeToProceed {
		t.Fatalf("expected confidence below threshold to force safe_to_proceed=false")
	}
	if got.Confidence != 0.5 {
		t.Fatalf("expected raw confidence preserved at 0.5, got %v", got.Confidence)
	}
}

func TestParseResponse_UnparseableFallsBackToHeuristic(t *testing.T) {
	text := "I looked at the screen and it is safe to proceed with the next step."
	got := parseResponse(text, "test-model", 0.7)
	if !got.SafeToProceed {
		t.Fatalf("expected heuristic fallback to detect 'safe to proceed'")
	}
	if got.Confidence != 0.5 {
		t.Fatalf("expected heuristic confidence 0.5, got %v", got.Confidence)
	}
}

func TestParseResponse_ConfidenceClampedToUnitRange(t *testing.T) {
	text := `{"safe_to_proceed": true, "confidence": 1.8, "analysis": "overconfident"}`
	got := parseResponse(text, "test-model", 0.5)
	if got.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1.0, got %v", got.Confidence)
	}
}

func TestVerify_CaptureFailureReturnsUnsafeWithoutModelCall(t *testing.T) {
	v := New(llm.NewTier("VISION"), nil)
	result, err := v.Verify(context.Background(), types.VerifyRequest{Context: "c", Expected: "e"})
	if err != nil {
		t.Fatalf("expected nil error, capture failures are reported in the result: %v", err)
	}
	if result.SafeToProceed {
		t.Fatalf("expected safe_to_proceed false on capture failure")
	}
	if result.ModelUsed != "none" {
		t.Fatalf("expected model_used=none, got %q", result.ModelUsed)
	}
	stats := v.Stats()
	if stats.ErrorCount != 1 {
		t.Fatalf("expected error count incremented, got %d", stats.ErrorCount)
	}
}
