package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

// PlannerPort decomposes a natural-language instruction into ordered steps.
type PlannerPort interface {
	Plan(ctx context.Context, instruction string, screenshots []string) (*entity.Plan, error)
}
