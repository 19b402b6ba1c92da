// Package performer replays a correlated result through an automation
// backend, one top-ranked action per matched step.
package performer

import (
	"context"
	"fmt"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var _ input.ActionPerformer = (*UseCase)(nil)

type Config struct {
	// ContinueOnGap keeps going past steps without an action instead of
	// stopping at the first one.
	ContinueOnGap  bool
	ScrollDistance float64
}

func DefaultConfig() Config {
	return Config{ScrollDistance: 300}
}

type UseCase struct {
	automation output.AutomationPort
	presenter  output.PresenterPort
	cfg        Config
	logger     output.LoggerPort
}

// New builds a performer. presenter may be nil.
func New(automation output.AutomationPort, presenter output.PresenterPort, cfg Config, logger output.LoggerPort) *UseCase {
	return &UseCase{
		automation: automation,
		presenter:  presenter,
		cfg:        cfg,
		logger:     logger,
	}
}

func (uc *UseCase) Perform(ctx context.Context, res *entity.CorrelatedResult) (*input.PerformReport, error) {
	if res == nil || res.State != entity.StateDone {
		return nil, fmt.Errorf("only completed runs can be performed")
	}

	report := &input.PerformReport{StoppedAt: -1}
	for _, sr := range res.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		idx := sr.Step.Index
		top, ok := sr.Top()
		if sr.Step.Status != entity.StepMatched || !ok || sr.Element == nil {
			report.Skipped = append(report.Skipped, idx)
			if !uc.cfg.ContinueOnGap {
				report.StoppedAt = idx
				uc.logger.Warn("Stopping at step without an action", "step", idx, "status", sr.Step.Status)
				return report, nil
			}
			continue
		}

		cmd := uc.command(sr, top)
		err := uc.automation.Perform(ctx, cmd)
		if uc.presenter != nil {
			uc.presenter.ShowCommand(ctx, cmd, err)
		}
		if err != nil {
			report.StoppedAt = idx
			return report, fmt.Errorf("step %d %s: %w", idx, top.Action, err)
		}
		report.Performed++
	}

	uc.logger.Info("Actions performed", "performed", report.Performed, "skipped", len(report.Skipped))
	return report, nil
}

func (uc *UseCase) command(sr entity.StepResult, top entity.ActionCandidate) output.Command {
	x, y := sr.Element.Box.Center()
	cmd := output.Command{
		Step:       sr.Step.Index,
		ElementID:  top.ElementID,
		Action:     top.Action,
		X:          x,
		Y:          y,
		Text:       sr.Step.Input,
		Screenshot: sr.Element.Screenshot,
	}
	switch top.Action {
	case entity.ActionScroll:
		cmd.DY = uc.cfg.ScrollDistance
	case entity.ActionDrag:
		cmd.DX = sr.Element.Box.Width() / 2
	}
	return cmd
}
