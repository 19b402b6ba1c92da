// Package dryrun logs commands instead of sending input events.
package dryrun

import (
	"context"
	"sync"

	"screen-agent/internal/application/port/output"
)

var _ output.AutomationPort = (*Automation)(nil)

type Automation struct {
	logger output.LoggerPort

	mu        sync.Mutex
	performed []output.Command
}

func New(logger output.LoggerPort) *Automation {
	return &Automation{logger: logger}
}

func (a *Automation) Perform(ctx context.Context, cmd output.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	a.performed = append(a.performed, cmd)
	a.mu.Unlock()

	a.logger.Info("Dry run action",
		"step", cmd.Step,
		"element", cmd.ElementID,
		"action", cmd.Action,
		"x", cmd.X,
		"y", cmd.Y,
	)
	return nil
}

// Performed returns the commands seen so far.
func (a *Automation) Performed() []output.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]output.Command(nil), a.performed...)
}

func (a *Automation) Close() error { return nil }
