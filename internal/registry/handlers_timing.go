package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
)

const pollTick = 150 * time.Millisecond

func (r *Registry) registerTiming() {
	r.register(ActionHandler{
		Name: "delay", Category: CategoryTiming,
		Description:    "Sleep for a fixed duration",
		RequiredParams: []string{"ms"},
		Examples:       []string{`{"action":"delay","params":{"ms":500}}`},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ms := intParam(p["ms"])
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return nil, nil
		},
	})

	r.register(ActionHandler{
		Name: "wait_for_window", Category: CategoryTiming,
		Description:    "Poll the active window title until it contains the given substring or timeout elapses",
		RequiredParams: []string{"title"},
		OptionalParams: map[string]any{"timeout_ms": 5000},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireSystem()
			if err != nil {
				return nil, err
			}
			title, _ := p["title"].(string)
			deadline := time.Now().Add(time.Duration(intParam(p["timeout_ms"])) * time.Millisecond)
			for {
				active, err := s.ActiveWindow(ctx)
				if err == nil && strings.Contains(active, title) {
					return map[string]any{"found": true, "window": active}, nil
				}
				if time.Now().After(deadline) {
					return map[string]any{"found": false}, nil
				}
				select {
				case <-time.After(pollTick):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		},
	})

	r.register(ActionHandler{
		Name: "wait_for_image", Category: CategoryTiming,
		Description:    "Poll the screen until timeout elapses; reports not-found (template matching is outside this system's capability surface)",
		RequiredParams: []string{"path"},
		OptionalParams: map[string]any{"timeout_ms": 5000},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireScreen()
			if err != nil {
				return nil, err
			}
			deadline := time.Now().Add(time.Duration(intParam(p["timeout_ms"])) * time.Millisecond)
			for time.Now().Before(deadline) {
				if _, err := s.CaptureFull(ctx); err != nil {
					return nil, err
				}
				select {
				case <-time.After(pollTick):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return map[string]any{"found": false}, nil
		},
	})

	r.register(ActionHandler{
		Name: "wait_for_color", Category: CategoryTiming,
		Description:    "Poll a pixel until it matches the expected RGB color or timeout elapses",
		RequiredParams: []string{"x", "y", "color"},
		OptionalParams: map[string]any{"timeout_ms": 5000, "tolerance": 10},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireScreen()
			if err != nil {
				return nil, err
			}
			x, y := intParam(p["x"]), intParam(p["y"])
			wantR, wantG, wantB, err := parseColor(p["color"])
			if err != nil {
				return nil, err
			}
			tolerance := intParam(p["tolerance"])
			deadline := time.Now().Add(time.Duration(intParam(p["timeout_ms"])) * time.Millisecond)
			for {
				img, err := s.CaptureFull(ctx)
				if err != nil {
					return nil, err
				}
				if pr, ok := img.(capability.PixelReader); ok {
					r8, g8, b8, _ := pr.At(x, y)
					if within(int(r8), wantR, tolerance) && within(int(g8), wantG, tolerance) && within(int(b8), wantB, tolerance) {
						return map[string]any{"matched": true}, nil
					}
				}
				if time.Now().After(deadline) {
					return map[string]any{"matched": false}, nil
				}
				select {
				case <-time.After(pollTick):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		},
	})
}

func within(got, want, tolerance int) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func parseColor(v any) (r, g, b int, err error) {
	arr, ok := v.([]any)
	if !ok || len(arr) < 3 {
		return 0, 0, 0, errInvalidColor
	}
	return intParam(arr[0]), intParam(arr[1]), intParam(arr[2]), nil
}

var errInvalidColor = errors.New("color param must be an [r,g,b] array")
