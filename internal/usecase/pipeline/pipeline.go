// Package pipeline sequences normalization, classification, correlation and
// action resolution for one run.
//
// A run is a pure transformation over an immutable snapshot: no I/O and no
// cancellation happen here. Screenshots are normalized and classified in
// parallel; correlation runs once every pool is ready.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/usecase/classifier"
	"screen-agent/internal/usecase/correlator"
	"screen-agent/internal/usecase/normalizer"
	"screen-agent/internal/usecase/resolver"
)

const defaultWorkers = 4

type Config struct {
	Normalizer normalizer.Options
	Classifier classifier.Options
	Correlator correlator.Options
	Table      resolver.Table
	// Workers bounds the per-screenshot fan-out.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Normalizer: normalizer.DefaultOptions(),
		Classifier: classifier.DefaultOptions(),
		Table:      resolver.DefaultTable(),
		Workers:    defaultWorkers,
	}
}

type Pipeline struct {
	cfg      Config
	resolver *resolver.Resolver
	logger   output.LoggerPort
}

func New(cfg Config, logger output.LoggerPort) (*Pipeline, error) {
	r, err := resolver.New(cfg.Table)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Pipeline{cfg: cfg, resolver: r, logger: logger}, nil
}

// WithMinConfidence returns a copy of the pipeline using a different
// classifier floor.
func (p *Pipeline) WithMinConfidence(floor float64) *Pipeline {
	cp := *p
	cp.cfg.Classifier.MinConfidence = floor
	return &cp
}

func (p *Pipeline) MinConfidence() float64 {
	return p.cfg.Classifier.MinConfidence
}

func (p *Pipeline) vocabulary() *entity.Vocabulary {
	if p.cfg.Classifier.Vocabulary != nil {
		return p.cfg.Classifier.Vocabulary
	}
	return entity.DefaultVocabulary()
}

// Run processes one snapshot. Malformed input returns a *entity.PipelineError
// and the run ends in FAILED; every other condition is recorded in the
// result's report and the run ends in DONE.
func (p *Pipeline) Run(in entity.RunInput) (*entity.CorrelatedResult, error) {
	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	r := &run{
		id:     runID,
		state:  entity.StateReceived,
		trace:  []entity.RunState{entity.StateReceived},
		logger: p.logger.WithField("run_id", runID),
	}
	r.logger.Debug("Run received", "steps", len(in.Steps), "screenshots", len(in.Screenshots))

	steps, hintIssues, err := validate(in, p.vocabulary())
	if err != nil {
		return nil, r.fail(err)
	}
	report := entity.Report{}
	for _, issue := range hintIssues {
		r.record(&report, issue)
	}

	r.advance(entity.StateNormalizing)
	normalized := p.normalizeAll(in.Screenshots)

	r.advance(entity.StateClassifying)
	classified := p.classifyAll(normalized)

	pools := make([]entity.ElementPool, len(in.Screenshots))
	for i, shot := range in.Screenshots {
		for _, issue := range normalized[i].Rejected {
			r.record(&report, issue)
		}
		for _, issue := range classified[i].Dropped {
			r.record(&report, issue)
		}
		if classified[i].Coerced > 0 {
			r.logger.Debug("Labels coerced to unknown", "screenshot", shot.Screenshot, "count", classified[i].Coerced)
		}
		pools[i] = entity.ElementPool{Screenshot: shot.Screenshot, Elements: classified[i].Elements}
	}

	r.advance(entity.StateCorrelating)
	assignment := correlator.Correlate(steps, pools, p.cfg.Correlator)

	r.advance(entity.StateResolving)
	results := make([]entity.StepResult, 0, len(assignment.Steps))
	for _, step := range assignment.Steps {
		sr := entity.StepResult{Step: step, Actions: []entity.ActionCandidate{}}
		idx := step.Index

		el, linked := assignment.Element(idx)
		if !linked {
			r.record(&report, entity.Issue{
				Kind:    entity.IssueUnmatchedStep,
				Step:    &idx,
				Message: unmatchedMessage(step),
			})
			results = append(results, sr)
			continue
		}

		elCopy := el
		sr.Element = &elCopy
		sr.Actions = p.resolver.Resolve(step, &elCopy)
		if len(sr.Actions) == 0 {
			assignment.MarkFailed(idx)
			sr.Step.Status = entity.StepFailed
			sr.Actions = []entity.ActionCandidate{}
			r.record(&report, entity.Issue{
				Kind:       entity.IssueNoCompatibleAction,
				Step:       &idx,
				ElementID:  el.ID,
				Label:      el.Label,
				Confidence: el.Confidence,
				Message:    fmt.Sprintf("element type %q supports no action", el.Type),
			})
		}
		results = append(results, sr)
	}

	report.UnmatchedSteps = append([]int{}, assignment.Unmatched...)
	report.UnusedElements = append([]entity.UIElement{}, assignment.Unused...)

	r.advance(entity.StateDone)
	res := &entity.CorrelatedResult{
		RunID:  runID,
		State:  r.state,
		Trace:  r.trace,
		Steps:  results,
		Report: report,
	}
	r.logger.Info("Run completed",
		"matched", res.Matched(),
		"steps", len(res.Steps),
		"issues", len(report.Issues),
	)
	return res, nil
}

func (p *Pipeline) normalizeAll(shots []entity.ScreenshotDetections) []normalizer.Result {
	out := make([]normalizer.Result, len(shots))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, shot := range shots {
		g.Go(func() error {
			out[i] = normalizer.Normalize(shot.Screenshot, shot.Detections, p.cfg.Normalizer)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) classifyAll(normalized []normalizer.Result) []classifier.Result {
	out := make([]classifier.Result, len(normalized))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, n := range normalized {
		g.Go(func() error {
			out[i] = classifier.Classify(i, n.Clusters, p.cfg.Classifier)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// validate checks the snapshot and returns the steps ordered by index, with
// type hints resolved against vocab. A hint outside vocab becomes
// ElementUnknown and is reported.
func validate(in entity.RunInput, vocab *entity.Vocabulary) ([]entity.TaskStep, []entity.Issue, error) {
	if len(in.Steps) == 0 {
		return nil, nil, entity.MalformedInput(entity.StateReceived, "plan has no steps")
	}

	steps := make([]entity.TaskStep, len(in.Steps))
	copy(steps, in.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Index < steps[j].Index })
	for i, s := range steps {
		if s.Index != i {
			return nil, nil, entity.MalformedInput(entity.StateReceived,
				"step indices must be contiguous from 0", "position", i, "index", s.Index)
		}
		steps[i].Status = entity.StepPending
	}

	var issues []entity.Issue
	for i := range steps {
		if issue, ok := resolveHint(&steps[i], vocab); !ok {
			issues = append(issues, issue)
		}
	}

	known := make(map[string]bool, len(in.Screenshots))
	for i, shot := range in.Screenshots {
		if shot.Screenshot == "" {
			return nil, nil, entity.MalformedInput(entity.StateReceived, "screenshot reference is empty", "position", i)
		}
		if known[shot.Screenshot] {
			return nil, nil, entity.MalformedInput(entity.StateReceived, "screenshot supplied twice", "screenshot", shot.Screenshot)
		}
		known[shot.Screenshot] = true
		for j, d := range shot.Detections {
			if d.Screenshot != "" && d.Screenshot != shot.Screenshot {
				return nil, nil, entity.MalformedInput(entity.StateReceived,
					"detection belongs to another screenshot",
					"screenshot", shot.Screenshot, "detection", j, "detection_screenshot", d.Screenshot)
			}
		}
	}

	for _, s := range steps {
		if s.Screenshot != "" && !known[s.Screenshot] {
			return nil, nil, entity.MalformedInput(entity.StateReceived,
				"step references a screenshot that was not supplied",
				"step", s.Index, "screenshot", s.Screenshot)
		}
	}
	return steps, issues, nil
}

// resolveHint replaces the step's hint with its canonical type. It reports
// false with an issue when the hint had to be coerced to ElementUnknown.
func resolveHint(step *entity.TaskStep, vocab *entity.Vocabulary) (entity.Issue, bool) {
	if step.TypeHint == nil {
		return entity.Issue{}, true
	}
	raw := string(*step.TypeHint)
	typ := entity.ElementType(entity.NormalizeLabel(raw))
	switch {
	case typ == "":
		step.TypeHint = nil
		return entity.Issue{}, true
	case typ == entity.ElementUnknown || vocab.Contains(typ):
		step.TypeHint = entity.Hint(typ)
		return entity.Issue{}, true
	}

	step.TypeHint = entity.Hint(entity.ElementUnknown)
	idx := step.Index
	return entity.Issue{
		Kind:    entity.IssueUnknownTypeHint,
		Step:    &idx,
		Label:   raw,
		Message: fmt.Sprintf("type hint %q is not a known element type; only unknown elements can match", raw),
	}, false
}

func unmatchedMessage(step entity.TaskStep) string {
	if step.TypeHint != nil {
		return fmt.Sprintf("no unassigned %s element for %q", *step.TypeHint, step.Description)
	}
	return fmt.Sprintf("no unassigned element for %q", step.Description)
}
