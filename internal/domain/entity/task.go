package entity

type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepMatched   StepStatus = "MATCHED"
	StepUnmatched StepStatus = "UNMATCHED"
	StepFailed    StepStatus = "FAILED"
)

// TaskStep is one ordered step of a plan. Index values in a plan are
// contiguous from 0.
type TaskStep struct {
	Index       int          `json:"index" yaml:"index"`
	Description string       `json:"description" yaml:"description"`
	TypeHint    *ElementType `json:"type_hint,omitempty" yaml:"type_hint,omitempty"`
	Input       string       `json:"input,omitempty" yaml:"input,omitempty"`
	Screenshot  string       `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	Status      StepStatus   `json:"status" yaml:"status"`
}

func NewTaskStep(index int, description string, hint *ElementType) TaskStep {
	return TaskStep{
		Index:       index,
		Description: description,
		TypeHint:    hint,
		Status:      StepPending,
	}
}

// Hint is a convenience for building optional type hints.
func Hint(t ElementType) *ElementType {
	return &t
}

// Plan is the parsed output of the plan-text collaborator.
type Plan struct {
	Goal  string     `json:"goal" yaml:"goal"`
	Steps []TaskStep `json:"steps" yaml:"steps"`
}
