// Package types holds the data model shared by every component of the
// automation pipeline: the wire-level Program/Action/Macro documents, the
// per-run Execution Context and Execution Result, the Visual Verifier's
// result shape, and the message envelope carried by the bus.
package types

import "time"

// Program is the root document transmitted between the Planner and the
// Actuator. It is produced once by the Planner, validated, and consumed
// exactly once by the Actuator.
type Program struct {
	Version  string             `json:"version"`
	Metadata Metadata           `json:"metadata"`
	Macros   map[string][]Action `json:"macros,omitempty"`
	Actions  []Action           `json:"actions"`
}

// Metadata describes a Program.
type Metadata struct {
	Description              string `json:"description"`
	Complexity               string `json:"complexity,omitempty"`
	UsesVision               bool   `json:"uses_vision,omitempty"`
	EstimatedDurationSeconds *int   `json:"estimated_duration_seconds,omitempty"`
}

// Action is one instruction, either a registered action or the reserved
// "macro" action that invokes a named Macro.
type Action struct {
	Action      string         `json:"action"`
	Params      map[string]any `json:"params,omitempty"`
	WaitAfterMs int            `json:"wait_after_ms,omitempty"`
	Description string         `json:"description,omitempty"`
}

// MacroRef is the shape of Action.Params when Action.Action == "macro".
type MacroRef struct {
	Name string         `json:"name"`
	Vars map[string]any `json:"vars,omitempty"`
}

// ParseMacroRef extracts the macro name and vars bindings from a macro
// action's params. Vars is never nil on success.
func ParseMacroRef(params map[string]any) (MacroRef, bool) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return MacroRef{}, false
	}
	ref := MacroRef{Name: name, Vars: map[string]any{}}
	if v, ok := params["vars"].(map[string]any); ok {
		ref.Vars = v
	}
	return ref, true
}

// ActionResult is one entry in an Execution Context's append-only result log.
type ActionResult struct {
	Index     int       `json:"index"`
	Action    string    `json:"action"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionContext is the per-program mutable state owned by the Executor.
// It is created at execute entry, mutated only by the Executor's thread of
// control, and returned inside the Execution Result. It is never persisted.
type ExecutionContext struct {
	ProgramID     string         `json:"program_id"`
	StartTime     time.Time      `json:"start_time"`
	CurrentIndex  int            `json:"current_index"`
	Variables     map[string]any `json:"variables"`
	ActionResults []ActionResult `json:"action_results"`
}

// NewExecutionContext returns an empty context ready for a run.
func NewExecutionContext(programID string) *ExecutionContext {
	return &ExecutionContext{
		ProgramID: programID,
		Variables: map[string]any{},
	}
}

// Snapshot returns a deep-enough copy safe to serialize and hand to a
// reader outside the Executor's thread of control.
func (c *ExecutionContext) Snapshot() ExecutionContext {
	vars := make(map[string]any, len(c.Variables))
	for k, v := range c.Variables {
		vars[k] = v
	}
	results := make([]ActionResult, len(c.ActionResults))
	copy(results, c.ActionResults)
	return ExecutionContext{
		ProgramID:     c.ProgramID,
		StartTime:     c.StartTime,
		CurrentIndex:  c.CurrentIndex,
		Variables:     vars,
		ActionResults: results,
	}
}

// ExecutionStatus is the terminal or live status of a program run.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusFailed  ExecutionStatus = "failed"
	StatusStopped ExecutionStatus = "stopped"
)

// ErrorDetails is the structured record captured when a step fails.
type ErrorDetails struct {
	ActionIndex  int            `json:"action_index"`
	ActionName   string         `json:"action_name"`
	ErrorKind    string         `json:"error_kind"`
	ErrorMessage string         `json:"error_message"`
	Params       map[string]any `json:"params,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ExecutionResult is the terminal record for one program run.
type ExecutionResult struct {
	ProgramID        string           `json:"program_id"`
	Status           ExecutionStatus  `json:"status"`
	ActionsCompleted int              `json:"actions_completed"`
	TotalActions     int              `json:"total_actions"`
	DurationMs       int64            `json:"duration_ms"`
	Error            string           `json:"error,omitempty"`
	ErrorDetails     *ErrorDetails    `json:"error_details,omitempty"`
	Context          ExecutionContext `json:"context"`
}

// Coordinates is a screen-pixel point, used both in verification results and
// in the vision.action/vision.response wire payloads.
type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is a rectangular screen area for a scoped capture.
type Region struct {
	X, Y, Width, Height int
}

// VerifyRequest is the input to the Visual Verifier's verify_screen
// handler: a free-text description of the context, the expected state, the
// confidence threshold below which safe_to_proceed is forced false, and an
// optional capture region in place of the full screen.
type VerifyRequest struct {
	Context             string
	Expected            string
	ConfidenceThreshold float64
	Region              *Region
}

// VerificationResult is produced by the Visual Verifier.
type VerificationResult struct {
	SafeToProceed      bool         `json:"safe_to_proceed"`
	Confidence         float64      `json:"confidence"`
	Analysis           string       `json:"analysis"`
	UpdatedCoordinates *Coordinates `json:"updated_coordinates,omitempty"`
	SuggestedActions   []string     `json:"suggested_actions,omitempty"`
	ModelUsed          string       `json:"model_used"`
}

// MessageType identifies the topic/payload kind of a bus envelope.
type MessageType string

const (
	MsgProgramSubmit  MessageType = "program.submit"
	MsgProgramStatus  MessageType = "program.status"
	MsgVisionRequest  MessageType = "vision.request"
	MsgVisionResponse MessageType = "vision.response"
	MsgVisionAction   MessageType = "vision.action"
	MsgVisionResult   MessageType = "vision.result"
)

// Message is the envelope for every message carried on the bus.
type Message struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// ProgramSubmitPayload is the payload of a program.submit message.
type ProgramSubmitPayload struct {
	Program Program `json:"program"`
}

// ProgramStatusPayload is the payload of a program.status message.
type ProgramStatusPayload struct {
	Status           ExecutionStatus   `json:"status"`
	ActionsCompleted int               `json:"actions_completed"`
	TotalActions     int               `json:"total_actions"`
	DurationMs       int64             `json:"duration_ms"`
	Error            string            `json:"error,omitempty"`
	ErrorDetails     *ErrorDetails     `json:"error_details,omitempty"`
	Context          *ExecutionContext `json:"context,omitempty"`
}

// VisionRequestPayload is the payload of a vision.request message: a request
// for an observation in the Visual Navigation Loop.
type VisionRequestPayload struct {
	RequestID      string `json:"request_id"`
	TaskDescription string `json:"task_description"`
	WorkflowGoal   string `json:"workflow_goal"`
	Iteration      int    `json:"iteration"`
	MaxIterations  int    `json:"max_iterations"`
}

// VisionResponsePayload answers a VisionRequestPayload with an observation.
type VisionResponsePayload struct {
	RequestID       string      `json:"request_id"`
	ScreenshotBase64 string     `json:"screenshot_base64"`
	MousePosition   Coordinates `json:"mouse_position"`
	ScreenSize      struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"screen_size"`
}

// VisionActionKind enumerates the decisions a planner can hand back in a
// vision.action message.
type VisionActionKind string

const (
	VisionActionClick       VisionActionKind = "click"
	VisionActionDoubleClick VisionActionKind = "double_click"
	VisionActionRightClick  VisionActionKind = "right_click"
	VisionActionType        VisionActionKind = "type"
)

// VisionActionPayload is the planner's decision for one navigation step.
type VisionActionPayload struct {
	RequestID      string           `json:"request_id"`
	Action         VisionActionKind `json:"action"`
	Coordinates    Coordinates      `json:"coordinates"`
	Text           string           `json:"text,omitempty"`
	RequestFollowup bool            `json:"request_followup"`
}

// VisionResultStatus enumerates the outcome reported back for a vision.action.
type VisionResultStatus string

const (
	VisionResultSuccess VisionResultStatus = "success"
	VisionResultError   VisionResultStatus = "error"
	VisionResultTimeout VisionResultStatus = "timeout"
)

// VisionResultPayload closes the loop on one vision.action dispatch.
type VisionResultPayload struct {
	RequestID       string             `json:"request_id"`
	Status          VisionResultStatus `json:"status"`
	Error           string             `json:"error,omitempty"`
	ScreenshotBase64 string            `json:"screenshot_base64,omitempty"`
	MousePosition   Coordinates        `json:"mouse_position"`
}
