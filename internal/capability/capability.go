// Package capability defines the narrowest OS-facing surfaces the core
// depends on: keyboard, pointer, screen capture, clipboard, and system.
// Every handler in the Action Registry is built against these interfaces,
// never against a concrete OS implementation, so the whole core is testable
// with a mock.
package capability

import "context"

// MotionProfile selects the pointer-movement curve a Pointer implementation
// should use. The curve math itself is a pluggable, swappable strategy, not
// part of the core.
type MotionProfile string

const (
	MotionStraight MotionProfile = "straight"
	MotionBezier   MotionProfile = "bezier"
	MotionArc      MotionProfile = "arc"
	MotionWave     MotionProfile = "wave"
)

// MoveOptions carries the optional motion profile and speed for a pointer
// move. The zero value produces smooth curved motion at default speed.
type MoveOptions struct {
	Profile MotionProfile
	Speed   float64 // multiplier; 0 means implementation default
}

// Button identifies a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// ScrollDirection identifies a scroll-wheel direction.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Keyboard abstracts keyboard input.
type Keyboard interface {
	Press(ctx context.Context, key string) error
	Hold(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
	Type(ctx context.Context, text string, interKeyDelayMs int) error
	Shortcut(ctx context.Context, keys ...string) error
}

// Pointer abstracts mouse/trackpad input. Implementations must expose a
// fail-safe: a move that lands in a screen corner aborts the current
// operation (the executor's safety floor relies on this being honored by
// the concrete implementation, not re-implemented here).
type Pointer interface {
	Move(ctx context.Context, x, y int, opts MoveOptions) error
	Click(ctx context.Context, button Button, clicks int) error
	Drag(ctx context.Context, x, y int) error
	Scroll(ctx context.Context, direction ScrollDirection, amount int) error
	Position(ctx context.Context) (x, y int, err error)
}

// Image is a captured frame. Implementations choose their own in-memory
// representation; Bytes returns it PNG-encoded for transport (e.g. to a
// vision model or the bus).
type Image interface {
	Width() int
	Height() int
	Bytes() ([]byte, error)
}

// PixelReader is an optional Image capability: a concrete implementation
// that can answer per-pixel color queries implements it so wait_for_color
// can poll without a round-trip through a vision model.
type PixelReader interface {
	At(x, y int) (r, g, b, a uint8)
}

// ScreenCapture abstracts taking screenshots.
type ScreenCapture interface {
	CaptureFull(ctx context.Context) (Image, error)
	CaptureRegion(ctx context.Context, x, y, w, h int) (Image, error)
	Size(ctx context.Context) (width, height int, err error)
}

// Clipboard abstracts the system clipboard.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// Files abstracts the host filesystem operations behind the File action
// family (open/save/create-folder/delete). It is deliberately narrow: real
// path resolution and workspace confinement live in the concrete
// implementation, not in the core.
type Files interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	CreateFolder(ctx context.Context, path string) error
	DeleteFile(ctx context.Context, path string) error
}

// System abstracts window/app/power operations that don't fit Keyboard,
// Pointer, ScreenCapture, or Clipboard.
type System interface {
	OpenApplication(ctx context.Context, name string) error
	CloseApplication(ctx context.Context, name string) error
	Lock(ctx context.Context) error
	Sleep(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Restart(ctx context.Context) error
	VolumeUp(ctx context.Context) error
	VolumeDown(ctx context.Context) error
	VolumeMute(ctx context.Context) error
	ActiveWindow(ctx context.Context) (string, error)
	SwitchWindow(ctx context.Context, name string) error
	MinimizeWindow(ctx context.Context) error
	MaximizeWindow(ctx context.Context) error
	OpenURL(ctx context.Context, url string) error
}
