package input

import (
	"context"

	"screen-agent/internal/domain/entity"
)

type PerformReport struct {
	Performed int
	Skipped   []int
	// StoppedAt is the first step that could not be performed, or -1.
	StoppedAt int
}

type ActionPerformer interface {
	Perform(ctx context.Context, res *entity.CorrelatedResult) (*PerformReport, error)
}
