package registry

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func (r *Registry) requirePointer() (capability.Pointer, error) {
	if r.pointer == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no Pointer capability injected")
	}
	return r.pointer, nil
}

func moveOptionsFrom(p map[string]any) capability.MoveOptions {
	opts := capability.MoveOptions{}
	if profile, ok := p["profile"].(string); ok {
		opts.Profile = capability.MotionProfile(profile)
	}
	if speed, ok := p["speed"].(float64); ok {
		opts.Speed = speed
	}
	return opts
}

func (r *Registry) registerMouse() {
	r.register(ActionHandler{
		Name: "mouse_move", Category: CategoryMouse,
		Description:    "Move the pointer to absolute screen coordinates",
		RequiredParams: []string{"x", "y"},
		OptionalParams: map[string]any{"profile": string(capability.MotionBezier), "speed": 1.0},
		Examples:       []string{`{"action":"mouse_move","params":{"x":640,"y":360}}`},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			x, y := intParam(p["x"]), intParam(p["y"])
			return nil, ptr.Move(ctx, x, y, moveOptionsFrom(p))
		},
	})

	r.register(ActionHandler{
		Name: "mouse_click", Category: CategoryMouse,
		Description:    "Click a mouse button at the current pointer position",
		OptionalParams: map[string]any{"button": "left", "clicks": 1},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			button, _ := p["button"].(string)
			return nil, ptr.Click(ctx, capability.Button(button), intParam(p["clicks"]))
		},
	})

	r.register(ActionHandler{
		Name: "mouse_double_click", Category: CategoryMouse,
		Description:    "Double-click a mouse button (left by default)",
		OptionalParams: map[string]any{"button": "left"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			button, _ := p["button"].(string)
			return nil, ptr.Click(ctx, capability.Button(button), 2)
		},
	})

	r.register(ActionHandler{
		Name: "mouse_right_click", Category: CategoryMouse,
		Description: "Right-click at the current pointer position",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			return nil, ptr.Click(ctx, capability.ButtonRight, 1)
		},
	})

	r.register(ActionHandler{
		Name: "mouse_drag", Category: CategoryMouse,
		Description:    "Drag from the current position to (x, y)",
		RequiredParams: []string{"x", "y"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			return nil, ptr.Drag(ctx, intParam(p["x"]), intParam(p["y"]))
		},
	})

	r.register(ActionHandler{
		Name: "mouse_scroll", Category: CategoryMouse,
		Description:    "Scroll the mouse wheel",
		RequiredParams: []string{"direction"},
		OptionalParams: map[string]any{"amount": 3},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			direction, _ := p["direction"].(string)
			return nil, ptr.Scroll(ctx, capability.ScrollDirection(direction), intParam(p["amount"]))
		},
	})

	r.register(ActionHandler{
		Name: "mouse_position", Category: CategoryMouse,
		Description: "Read the current pointer position",
		Returns:     map[string]string{"x": "int", "y": "int"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			ptr, err := r.requirePointer()
			if err != nil {
				return nil, err
			}
			x, y, err := ptr.Position(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"x": x, "y": y}, nil
		},
	})
}
