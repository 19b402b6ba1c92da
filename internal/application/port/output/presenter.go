package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

type PresenterPort interface {
	ShowPlan(ctx context.Context, plan *entity.Plan)
	ShowResult(ctx context.Context, res *entity.CorrelatedResult)
	ShowCommand(ctx context.Context, cmd Command, err error)
}
