// Package mock implements every capability.* interface without touching a
// real OS surface: no mouse movement, no keystrokes, no screenshots. It
// exists so the registry and executor can be exercised deterministically in
// tests, grounded on the reference implementation's MockActionHandlers.
package mock

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"bytes"

	"github.com/pragnyanramtha/autopilot-go/internal/capability"
)

// Call records one invocation against a mock surface, for assertions in
// tests ("handler invocation sequence" in the seed scenarios).
type Call struct {
	Method string
	Args   map[string]any
}

// Surface bundles every capability behind one logging mock, mirroring the
// single MockActionHandlers instance the reference implementation wires
// into its registry.
type Surface struct {
	mu    sync.Mutex
	calls []Call

	width, height int
	posX, posY    int
	clipboard     string
}

// NewSurface returns a ready mock surface with a default 1920x1080 screen.
func NewSurface() *Surface {
	return &Surface{width: 1920, height: 1080}
}

func (s *Surface) record(method string, args map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Args: args})
}

// Calls returns the recorded call sequence in invocation order.
func (s *Surface) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Keyboard

func (s *Surface) Press(ctx context.Context, key string) error {
	s.record("press", map[string]any{"key": key})
	return nil
}

func (s *Surface) Hold(ctx context.Context, key string) error {
	s.record("hold", map[string]any{"key": key})
	return nil
}

func (s *Surface) Release(ctx context.Context, key string) error {
	s.record("release", map[string]any{"key": key})
	return nil
}

func (s *Surface) Type(ctx context.Context, text string, interKeyDelayMs int) error {
	s.record("type", map[string]any{"text": text, "inter_key_delay_ms": interKeyDelayMs})
	return nil
}

func (s *Surface) Shortcut(ctx context.Context, keys ...string) error {
	s.record("shortcut", map[string]any{"keys": keys})
	return nil
}

// Pointer

func (s *Surface) Move(ctx context.Context, x, y int, opts capability.MoveOptions) error {
	s.mu.Lock()
	s.posX, s.posY = x, y
	s.mu.Unlock()
	s.record("mouse_move", map[string]any{"x": x, "y": y, "profile": opts.Profile})
	return nil
}

func (s *Surface) Click(ctx context.Context, button capability.Button, clicks int) error {
	s.record("mouse_click", map[string]any{"button": button, "clicks": clicks})
	return nil
}

func (s *Surface) Drag(ctx context.Context, x, y int) error {
	s.record("mouse_drag", map[string]any{"x": x, "y": y})
	return nil
}

func (s *Surface) Scroll(ctx context.Context, direction capability.ScrollDirection, amount int) error {
	s.record("mouse_scroll", map[string]any{"direction": direction, "amount": amount})
	return nil
}

func (s *Surface) Position(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posX, s.posY, nil
}

// ScreenCapture

type image_ struct {
	img *image.RGBA
}

func (i *image_) Width() int  { return i.img.Bounds().Dx() }
func (i *image_) Height() int { return i.img.Bounds().Dy() }
func (i *image_) At(x, y int) (uint8, uint8, uint8, uint8) {
	c := color.RGBAModel.Convert(i.img.At(x, y)).(color.RGBA)
	return c.R, c.G, c.B, c.A
}
func (i *image_) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func solidImage(w, h int) capability.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 32})
		}
	}
	return &image_{img: img}
}

func (s *Surface) CaptureFull(ctx context.Context) (capability.Image, error) {
	s.record("capture_full", nil)
	s.mu.Lock()
	w, h := s.width, s.height
	s.mu.Unlock()
	return solidImage(w, h), nil
}

func (s *Surface) CaptureRegion(ctx context.Context, x, y, w, h int) (capability.Image, error) {
	s.record("capture_region", map[string]any{"x": x, "y": y, "w": w, "h": h})
	return solidImage(w, h), nil
}

func (s *Surface) Size(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height, nil
}

// Clipboard

func (s *Surface) Read(ctx context.Context) (string, error) {
	s.record("clipboard_read", nil)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard, nil
}

func (s *Surface) Write(ctx context.Context, text string) error {
	s.mu.Lock()
	s.clipboard = text
	s.mu.Unlock()
	s.record("clipboard_write", map[string]any{"text": text})
	return nil
}

// System

func (s *Surface) OpenApplication(ctx context.Context, name string) error {
	s.record("open_app", map[string]any{"app_name": name})
	return nil
}

func (s *Surface) CloseApplication(ctx context.Context, name string) error {
	s.record("close_app", map[string]any{"app_name": name})
	return nil
}

func (s *Surface) Lock(ctx context.Context) error {
	s.record("lock_screen", nil)
	return nil
}

func (s *Surface) Sleep(ctx context.Context) error {
	s.record("sleep_system", nil)
	return nil
}

func (s *Surface) Shutdown(ctx context.Context) error {
	s.record("shutdown_system", nil)
	return nil
}

func (s *Surface) Restart(ctx context.Context) error {
	s.record("restart_system", nil)
	return nil
}

func (s *Surface) VolumeUp(ctx context.Context) error {
	s.record("volume_up", nil)
	return nil
}

func (s *Surface) VolumeDown(ctx context.Context) error {
	s.record("volume_down", nil)
	return nil
}

func (s *Surface) VolumeMute(ctx context.Context) error {
	s.record("volume_mute", nil)
	return nil
}

func (s *Surface) ActiveWindow(ctx context.Context) (string, error) {
	s.record("get_active_window", nil)
	return "mock-window", nil
}

func (s *Surface) SwitchWindow(ctx context.Context, name string) error {
	s.record("switch_window", map[string]any{"name": name})
	return nil
}

func (s *Surface) MinimizeWindow(ctx context.Context) error {
	s.record("minimize_window", nil)
	return nil
}

func (s *Surface) MaximizeWindow(ctx context.Context) error {
	s.record("maximize_window", nil)
	return nil
}

func (s *Surface) OpenURL(ctx context.Context, url string) error {
	s.record("open_url", map[string]any{"url": url})
	return nil
}

// Files

func (s *Surface) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s.record("read_file", map[string]any{"path": path})
	return []byte("mock contents of " + path), nil
}

func (s *Surface) WriteFile(ctx context.Context, path string, data []byte) error {
	s.record("write_file", map[string]any{"path": path, "bytes": len(data)})
	return nil
}

func (s *Surface) CreateFolder(ctx context.Context, path string) error {
	s.record("create_folder", map[string]any{"path": path})
	return nil
}

func (s *Surface) DeleteFile(ctx context.Context, path string) error {
	s.record("delete_file", map[string]any{"path": path})
	return nil
}

var _ capability.PixelReader = (*image_)(nil)

var (
	_ capability.Keyboard      = (*Surface)(nil)
	_ capability.Pointer       = (*Surface)(nil)
	_ capability.ScreenCapture = (*Surface)(nil)
	_ capability.Clipboard     = (*Surface)(nil)
	_ capability.System        = (*Surface)(nil)
	_ capability.Files         = (*Surface)(nil)
)

// ErrUnsupported is returned by mock actions the reference implementation
// never simulates (none currently; kept for handlers that may need to
// signal a deliberate simulated failure in tests).
var ErrUnsupported = fmt.Errorf("mock: unsupported operation")
