package entity

import "fmt"

type IssueKind string

const (
	IssueLowConfidenceDrop  IssueKind = "LowConfidenceDrop"
	IssueUnmatchedStep      IssueKind = "UnmatchedStep"
	IssueNoCompatibleAction IssueKind = "NoCompatibleAction"
	IssueInvalidDetection   IssueKind = "InvalidDetection"
	IssueUnknownTypeHint    IssueKind = "UnknownTypeHint"
	IssueFallbackRecovered  IssueKind = "FallbackRecovered"
)

// Issue is a recoverable condition recorded during a run.
type Issue struct {
	Kind       IssueKind `json:"kind" yaml:"kind"`
	Screenshot string    `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	Step       *int      `json:"step,omitempty" yaml:"step,omitempty"`
	ElementID  string    `json:"element_id,omitempty" yaml:"element_id,omitempty"`
	Label      string    `json:"label,omitempty" yaml:"label,omitempty"`
	Confidence float64   `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Message    string    `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Step != nil {
		return fmt.Sprintf("%s (step %d): %s", i.Kind, *i.Step, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// Report accumulates every recoverable condition of a run.
type Report struct {
	Issues          []Issue     `json:"issues" yaml:"issues"`
	UnmatchedSteps  []int       `json:"unmatched_steps" yaml:"unmatched_steps"`
	UnusedElements  []UIElement `json:"unused_elements" yaml:"unused_elements"`
	FallbackApplied bool        `json:"fallback_applied" yaml:"fallback_applied"`
}

func (r *Report) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// StepResult is one plan step with its linkage and ranked actions.
type StepResult struct {
	Step    TaskStep          `json:"step" yaml:"step"`
	Element *UIElement        `json:"element,omitempty" yaml:"element,omitempty"`
	Actions []ActionCandidate `json:"actions" yaml:"actions"`
}

// Top returns the highest ranked action candidate.
func (s StepResult) Top() (ActionCandidate, bool) {
	if len(s.Actions) == 0 {
		return ActionCandidate{}, false
	}
	return s.Actions[0], true
}

// CorrelatedResult is the sole externally visible artifact of a run.
type CorrelatedResult struct {
	RunID  string       `json:"run_id" yaml:"run_id"`
	State  RunState     `json:"state" yaml:"state"`
	Trace  []RunState   `json:"trace" yaml:"trace"`
	Steps  []StepResult `json:"steps" yaml:"steps"`
	Report Report       `json:"report" yaml:"report"`
}

func (r *CorrelatedResult) Matched() int {
	n := 0
	for _, s := range r.Steps {
		if s.Step.Status == StepMatched {
			n++
		}
	}
	return n
}

// Complete reports whether every step was matched with an action.
func (r *CorrelatedResult) Complete() bool {
	return len(r.Steps) > 0 && r.Matched() == len(r.Steps)
}
