package registry

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
	"github.com/pragnyanramtha/autopilot-go/internal/types"
)

func (r *Registry) requireVerifier() (VerifierPort, error) {
	if r.verifier == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no Visual Verifier injected")
	}
	return r.verifier, nil
}

func regionFrom(p map[string]any) *types.Region {
	raw, ok := p["region"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	return &types.Region{
		X:      intParam(raw["x"]),
		Y:      intParam(raw["y"]),
		Width:  intParam(raw["width"]),
		Height: intParam(raw["height"]),
	}
}

func verifyResultToMap(v types.VerificationResult) map[string]any {
	out := map[string]any{
		"safe_to_proceed": v.SafeToProceed,
		"confidence":      v.Confidence,
		"analysis":        v.Analysis,
		"model_used":      v.ModelUsed,
	}
	if v.UpdatedCoordinates != nil {
		out["updated_coordinates"] = map[string]any{"x": v.UpdatedCoordinates.X, "y": v.UpdatedCoordinates.Y}
	}
	if v.SuggestedActions != nil {
		out["suggested_actions"] = v.SuggestedActions
	}
	return out
}

// registerVision wires the four vision actions the catalog names. Each
// returns the map shape the Executor recognizes as a verification result
// (§4.4.3 of the wire format: safe_to_proceed/confidence/...), so the
// Executor's verification side-effect fires for all of them uniformly.
func (r *Registry) registerVision() {
	register := func(name, description string) {
		r.register(ActionHandler{
			Name: name, Category: CategoryVision,
			Description:    description,
			RequiredParams: []string{"context", "expected"},
			OptionalParams: map[string]any{"confidence_threshold": 0.7, "region": map[string]any(nil)},
			Examples: []string{
				`{"action":"verify_screen","params":{"context":"find login","expected":"login button","confidence_threshold":0.7}}`,
			},
			Handler: func(ctx context.Context, p map[string]any) (any, error) {
				v, err := r.requireVerifier()
				if err != nil {
					return nil, err
				}
				req := types.VerifyRequest{
					ConfidenceThreshold: 0.7,
				}
				if s, ok := p["context"].(string); ok {
					req.Context = s
				}
				if s, ok := p["expected"].(string); ok {
					req.Expected = s
				}
				if ct, ok := p["confidence_threshold"].(float64); ok {
					req.ConfidenceThreshold = ct
				}
				req.Region = regionFrom(p)
				result, err := v.Verify(ctx, req)
				if err != nil {
					return nil, err
				}
				return verifyResultToMap(result), nil
			},
		})
	}

	register("verify_screen", "Capture the screen and ask the Visual Verifier whether it matches the expected state")
	register("verify_element", "Verify a specific UI element is present and in the expected state")
	register("find_element", "Locate a UI element and return its coordinates via the Visual Verifier")
	register("verify_text", "Verify expected text is visible on screen")
}
