package entity

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindMalformedInput ErrorKind = "MalformedInput"
)

// ErrMalformedInput matches every MalformedInput PipelineError via errors.Is.
var ErrMalformedInput = errors.New("malformed input")

// PipelineError is the structured fatal error returned when a run moves to FAILED.
type PipelineError struct {
	Kind    ErrorKind
	Stage   RunState
	Context map[string]any
	Err     error
}

func MalformedInput(stage RunState, msg string, kv ...any) *PipelineError {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			ctx[key] = kv[i+1]
		}
	}
	return &PipelineError{
		Kind:    KindMalformedInput,
		Stage:   stage,
		Context: ctx,
		Err:     errors.New(msg),
	}
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	return target == ErrMalformedInput && e.Kind == KindMalformedInput
}
