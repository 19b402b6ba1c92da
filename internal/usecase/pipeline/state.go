package pipeline

import (
	"errors"
	"fmt"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

type run struct {
	id     string
	state  entity.RunState
	trace  []entity.RunState
	logger output.LoggerPort
}

func (r *run) advance(to entity.RunState) {
	if !entity.CanTransition(r.state, to) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", r.state, to))
	}
	r.logger.Debug("State transition", "from", r.state, "to", to)
	r.state = to
	r.trace = append(r.trace, to)
}

func (r *run) fail(err error) error {
	var pe *entity.PipelineError
	if errors.As(err, &pe) {
		pe.Stage = r.state
		if pe.Context == nil {
			pe.Context = map[string]any{}
		}
		pe.Context["run_id"] = r.id
	}
	r.logger.Error("Run failed", "state", r.state, "error", err)
	r.advance(entity.StateFailed)
	return err
}

func (r *run) record(report *entity.Report, issue entity.Issue) {
	report.Add(issue)
	r.logger.Warn("Recoverable issue", "kind", issue.Kind, "detail", issue.String())
}
