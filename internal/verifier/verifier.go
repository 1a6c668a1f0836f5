// Package verifier implements visual state verification: capture a
// screenshot (or region), ask a vision-capable model whether the expected
// state holds, and report a confidence-scored verdict with an automatic
// fallback model on primary failure.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/llm"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

const (
	// DefaultPrimaryModel and DefaultFallbackModel name the vision models
	// tried in order; both resolve against the same VISION tier credentials.
	DefaultPrimaryModel  = "gemini-2.0-flash-exp"
	DefaultFallbackModel = "gemini-1.5-flash"

	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 10 * time.Second
)

// Verifier implements registry.VerifierPort using a vision-capable chat
// client. It is constructed with one *llm.Client (the VISION tier) and
// juggles two model names against it: primary first, fallback on failure.
type Verifier struct {
	client         *llm.Client
	screen         capability.ScreenCapture
	primaryModel   string
	fallbackModel  string
	timeout        time.Duration

	mu                sync.Mutex
	verificationCount int
	fallbackCount     int
	errorCount        int
}

// Option configures a Verifier at construction.
type Option func(*Verifier)

// WithModels overrides the default primary/fallback model names.
func WithModels(primary, fallback string) Option {
	return func(v *Verifier) {
		if primary != "" {
			v.primaryModel = primary
		}
		if fallback != "" {
			v.fallbackModel = fallback
		}
	}
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// New builds a Verifier backed by client for vision calls and screen for
// screenshot capture.
func New(client *llm.Client, screen capability.ScreenCapture, opts ...Option) *Verifier {
	v := &Verifier{
		client:        client,
		screen:        screen,
		primaryModel:  DefaultPrimaryModel,
		fallbackModel: DefaultFallbackModel,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Stats reports the verification, fallback, and error call counters.
type Stats struct {
	VerificationCount int
	FallbackCount     int
	ErrorCount        int
}

func (v *Verifier) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Stats{VerificationCount: v.verificationCount, FallbackCount: v.fallbackCount, ErrorCount: v.errorCount}
}

// Verify captures the screen (or req.Region) and asks the primary model to
// assess whether req.Expected holds given req.Context, falling back to the
// fallback model if the primary call fails or returns unparseable output.
func (v *Verifier) Verify(ctx context.Context, req types.VerifyRequest) (types.VerificationResult, error) {
	v.mu.Lock()
	v.verificationCount++
	v.mu.Unlock()

	log.Printf("[VERIFY] context=%q expected=%q", req.Context, req.Expected)

	img, err := v.capture(ctx, req.Region)
	if err != nil {
		v.mu.Lock()
		v.errorCount++
		v.mu.Unlock()
		return types.VerificationResult{
			SafeToProceed: false,
			Confidence:    0,
			Analysis:      fmt.Sprintf("failed to capture screenshot: %v", err),
			ModelUsed:     "none",
		}, nil
	}

	png, err := img.Bytes()
	if err != nil {
		v.mu.Lock()
		v.errorCount++
		v.mu.Unlock()
		return types.VerificationResult{
			SafeToProceed: false,
			Confidence:    0,
			Analysis:      fmt.Sprintf("failed to encode screenshot: %v", err),
			ModelUsed:     "none",
		}, nil
	}

	threshold := req.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	prompt := buildPrompt(req.Context, req.Expected, threshold)

	result, ok := v.verifyWithModel(ctx, v.primaryModel, prompt, png, threshold)
	if !ok {
		log.Printf("[VERIFY] primary model %s failed, trying fallback %s", v.primaryModel, v.fallbackModel)
		v.mu.Lock()
		v.fallbackCount++
		v.mu.Unlock()
		result, ok = v.verifyWithModel(ctx, v.fallbackModel, prompt, png, threshold)
	}
	// An unparseable fallback reply still yields its keyword-heuristic
	// result; only a failed fallback call counts as both models failing.
	if !ok && result.ModelUsed == "" {
		v.mu.Lock()
		v.errorCount++
		v.mu.Unlock()
		return types.VerificationResult{
			SafeToProceed: false,
			Confidence:    0,
			Analysis:      "both primary and fallback models failed",
			ModelUsed:     "none",
		}, nil
	}
	return result, nil
}

func (v *Verifier) capture(ctx context.Context, region *types.Region) (capability.Image, error) {
	if v.screen == nil {
		return nil, fmt.Errorf("no screen capture backend configured")
	}
	if region != nil {
		return v.screen.CaptureRegion(ctx, region.X, region.Y, region.Width, region.Height)
	}
	return v.screen.CaptureFull(ctx)
}

func (v *Verifier) verifyWithModel(ctx context.Context, model, prompt string, png []byte, threshold float64) (types.VerificationResult, bool) {
	text, _, err := v.client.VisionChat(ctx, model, prompt, png, v.timeout)
	if err != nil {
		log.Printf("[VERIFY] model %s call failed: %v", model, err)
		return types.VerificationResult{}, false
	}
	result := parseResponse(text, model, threshold)
	if json.Unmarshal([]byte(llm.StripFences(text)), &rawResponse{}) != nil {
		log.Printf("[VERIFY] model %s returned unparseable output", model)
		return result, false
	}
	return result, true
}

func buildPrompt(context_, expected string, threshold float64) string {
	return fmt.Sprintf(`You are a visual verification AI for desktop automation.

**Context:** %s
**Expected State:** %s
**Confidence Threshold:** %.2f

Analyze this screenshot and determine:

1. Is it safe to proceed? YES if the expected state is visible and ready for
   interaction, NO if it is not visible, obscured, or not ready.
2. Confidence level from 0.0 to 1.0.
3. If you can identify the target element, its approximate center pixel
   coordinates from the top-left corner.
4. A brief analysis of what you see and why it is or is not safe to proceed.
5. If not safe to proceed, suggested alternative actions.

Respond with JSON only, in this shape:
{
  "safe_to_proceed": true,
  "confidence": 0.0,
  "analysis": "description of what you see",
  "coordinates": {"x": 123, "y": 456},
  "suggested_actions": ["action1", "action2"]
}

Be conservative: if uncertain, set safe_to_proceed to false. Only include
coordinates if you are confident about the element's location.`, context_, expected, threshold)
}

type rawResponse struct {
	SafeToProceed    bool            `json:"safe_to_proceed"`
	Confidence       json.Number     `json:"confidence"`
	Analysis         string          `json:"analysis"`
	Coordinates      *rawCoordinates `json:"coordinates"`
	SuggestedActions []string        `json:"suggested_actions"`
}

type rawCoordinates struct {
	X json.Number `json:"x"`
	Y json.Number `json:"y"`
}

// parseResponse extracts a VerificationResult from a model's raw text,
// tolerating markdown code fences and falling back to a keyword heuristic
// when the response isn't valid JSON.
func parseResponse(text, model string, threshold float64) types.VerificationResult {
	cleaned := llm.StripFences(text)

	var raw rawResponse
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		lower := strings.ToLower(text)
		safe := strings.Contains(lower, "safe to proceed") && !strings.Contains(lower, "not safe")
		return types.VerificationResult{
			SafeToProceed: safe,
			Confidence:    0.5,
			Analysis:      "failed to parse structured response: " + truncate(text, 200),
			ModelUsed:     model,
		}
	}

	confidence := numberOr(raw.Confidence, 0)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	analysis := raw.Analysis
	if analysis == "" {
		analysis = "no analysis provided"
	}

	var coords *types.Coordinates
	if raw.Coordinates != nil {
		coords = &types.Coordinates{
			X: int(numberOr(raw.Coordinates.X, 0)),
			Y: int(numberOr(raw.Coordinates.Y, 0)),
		}
	}

	safe := raw.SafeToProceed
	if confidence < threshold {
		safe = false
	}

	return types.VerificationResult{
		SafeToProceed:      safe,
		Confidence:         confidence,
		Analysis:           analysis,
		UpdatedCoordinates: coords,
		SuggestedActions:   raw.SuggestedActions,
		ModelUsed:          model,
	}
}

func numberOr(n json.Number, fallback float64) float64 {
	if n == "" {
		return fallback
	}
	f, err := n.Float64()
	if err != nil {
		return fallback
	}
	return f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
