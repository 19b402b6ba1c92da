package input

import (
	"context"

	"screen-agent/internal/domain/entity"
)

type RunRequest struct {
	Instruction string
	Screenshots []string
	// Plan skips the planner when set.
	Plan *entity.Plan
}

type RunResult struct {
	Plan   *entity.Plan
	Result *entity.CorrelatedResult
}

type RunExecutor interface {
	Execute(ctx context.Context, req RunRequest) (*RunResult, error)
	Correlate(ctx context.Context, in entity.RunInput) (*entity.CorrelatedResult, error)
}
