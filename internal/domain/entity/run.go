package entity

type RunState string

const (
	StateReceived    RunState = "RECEIVED"
	StateNormalizing RunState = "NORMALIZING"
	StateClassifying RunState = "CLASSIFYING"
	StateCorrelating RunState = "CORRELATING"
	StateResolving   RunState = "RESOLVING"
	StateDone        RunState = "DONE"
	StateFailed      RunState = "FAILED"
)

var nextState = map[RunState]RunState{
	StateReceived:    StateNormalizing,
	StateNormalizing: StateClassifying,
	StateClassifying: StateCorrelating,
	StateCorrelating: StateResolving,
	StateResolving:   StateDone,
}

// CanTransition reports whether from -> to is a legal edge. FAILED is
// reachable from every non-terminal state.
func CanTransition(from, to RunState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return nextState[from] == to
}

func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ScreenshotDetections is the detection collaborator output for one screenshot.
type ScreenshotDetections struct {
	Screenshot string
	Detections []RawDetection
}

// RunInput is the immutable snapshot a pipeline run works on.
type RunInput struct {
	RunID       string
	Steps       []TaskStep
	Screenshots []ScreenshotDetections
}
