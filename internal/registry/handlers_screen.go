package registry

import (
	"context"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
	"github.com/pragnyanramtha/autopilot-go/internal/protoerr"
)

func (r *Registry) requireScreen() (capability.ScreenCapture, error) {
	if r.screen == nil {
		return nil, protoerr.New(protoerr.KindHandlerFailed, "no ScreenCapture capability injected")
	}
	return r.screen, nil
}

// encodedImage is the handler return shape for a capture: width/height plus
// the raw encoded bytes, so a caller (tasklog, bus vision payloads) can
// base64 it without re-deriving dimensions.
type encodedImage struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

func toEncodedImage(img capability.Image) (any, error) {
	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}
	return encodedImage{Width: img.Width(), Height: img.Height(), Data: data}, nil
}

func (r *Registry) registerScreen() {
	r.register(ActionHandler{
		Name: "capture_screen", Category: CategoryScreen,
		Description: "Capture the full screen",
		Returns:     map[string]string{"width": "int", "height": "int"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireScreen()
			if err != nil {
				return nil, err
			}
			img, err := s.CaptureFull(ctx)
			if err != nil {
				return nil, err
			}
			return toEncodedImage(img)
		},
	})

	r.register(ActionHandler{
		Name: "capture_region", Category: CategoryScreen,
		Description:    "Capture a rectangular region of the screen",
		RequiredParams: []string{"x", "y", "width", "height"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireScreen()
			if err != nil {
				return nil, err
			}
			img, err := s.CaptureRegion(ctx, intParam(p["x"]), intParam(p["y"]), intParam(p["width"]), intParam(p["height"]))
			if err != nil {
				return nil, err
			}
			return toEncodedImage(img)
		},
	})

	r.register(ActionHandler{
		Name: "capture_window", Category: CategoryScreen,
		Description: "Capture the screen showing the focused window (always a full-screen capture)",
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireScreen()
			if err != nil {
				return nil, err
			}
			img, err := s.CaptureFull(ctx)
			if err != nil {
				return nil, err
			}
			return toEncodedImage(img)
		},
	})

	r.register(ActionHandler{
		Name: "save_screenshot", Category: CategoryScreen,
		Description:    "Capture the full screen and write it to a file",
		RequiredParams: []string{"path"},
		Handler: func(ctx context.Context, p map[string]any) (any, error) {
			s, err := r.requireScreen()
			if err != nil {
				return nil, err
			}
			f, err := r.requireFiles()
			if err != nil {
				return nil, err
			}
			img, err := s.CaptureFull(ctx)
			if err != nil {
				return nil, err
			}
			data, err := img.Bytes()
			if err != nil {
				return nil, err
			}
			path, _ := p["path"].(string)
			if err := f.WriteFile(ctx, path, data); err != nil {
				return nil, err
			}
			return map[string]any{"path": path}, nil
		},
	})
}
