package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

// Command is one concrete input event derived from an action candidate.
type Command struct {
	Step       int
	ElementID  string
	Action     entity.ActionType
	X, Y       float64
	// DX, DY is the travel of a drag or scroll.
	DX, DY     float64
	Text       string
	Screenshot string
}

type AutomationPort interface {
	Perform(ctx context.Context, cmd Command) error
	Close() error
}
