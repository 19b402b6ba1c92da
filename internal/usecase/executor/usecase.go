// Package executor runs one instruction end to end: plan, detect, correlate.
package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/retry"
	"screen-agent/internal/usecase/pipeline"
)

var _ input.RunExecutor = (*UseCase)(nil)

const defaultWorkers = 4

type Config struct {
	Retry retry.Policy
	// FallbackMinConfidence is the floor used for the single re-run when a
	// run leaves steps unmatched after dropping low-confidence clusters.
	// Zero disables the re-run.
	FallbackMinConfidence float64
	// Workers bounds concurrent detection calls.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Retry:                 retry.DefaultPolicy(),
		FallbackMinConfidence: 0.15,
		Workers:               defaultWorkers,
	}
}

type UseCase struct {
	planner  output.PlannerPort
	detector output.DetectorPort
	pipeline *pipeline.Pipeline
	cfg      Config
	logger   output.LoggerPort
}

func New(
	planner output.PlannerPort,
	detector output.DetectorPort,
	pipe *pipeline.Pipeline,
	cfg Config,
	logger output.LoggerPort,
) *UseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &UseCase{
		planner:  planner,
		detector: detector,
		pipeline: pipe,
		cfg:      cfg,
		logger:   logger,
	}
}

func (uc *UseCase) Execute(ctx context.Context, req input.RunRequest) (*input.RunResult, error) {
	plan := req.Plan
	if plan == nil {
		if req.Instruction == "" {
			return nil, fmt.Errorf("either an instruction or a plan is required")
		}
		if uc.planner == nil {
			return nil, fmt.Errorf("no planner configured")
		}
		var err error
		plan, err = retry.Do(ctx, uc.cfg.Retry, uc.logger, "plan", func(ctx context.Context) (*entity.Plan, error) {
			return uc.planner.Plan(ctx, req.Instruction, req.Screenshots)
		})
		if err != nil {
			return nil, err
		}
	}

	groups, err := uc.detectAll(ctx, req.Screenshots)
	if err != nil {
		return nil, err
	}

	res, err := uc.Correlate(ctx, entity.RunInput{Steps: plan.Steps, Screenshots: groups})
	if err != nil {
		return nil, err
	}
	return &input.RunResult{Plan: plan, Result: res}, nil
}

func (uc *UseCase) detectAll(ctx context.Context, screenshots []string) ([]entity.ScreenshotDetections, error) {
	out := make([]entity.ScreenshotDetections, len(screenshots))
	if len(screenshots) > 0 && uc.detector == nil {
		return nil, fmt.Errorf("no detector configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Workers)
	for i, shot := range screenshots {
		g.Go(func() error {
			dets, err := retry.Do(gctx, uc.cfg.Retry, uc.logger, "detection", func(ctx context.Context) ([]entity.RawDetection, error) {
				return uc.detector.Detect(ctx, shot)
			})
			if err != nil {
				return fmt.Errorf("%s: %w", shot, err)
			}
			out[i] = entity.ScreenshotDetections{Screenshot: shot, Detections: dets}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Correlate runs the pipeline over a prepared snapshot, re-running once with
// the fallback floor when that could recover unmatched steps.
func (uc *UseCase) Correlate(ctx context.Context, in entity.RunInput) (*entity.CorrelatedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := uc.pipeline.Run(in)
	if err != nil {
		return nil, err
	}
	if !uc.wantsFallback(res) {
		return res, nil
	}

	uc.logger.Info("Re-running with fallback confidence floor",
		"run_id", res.RunID,
		"unmatched", len(res.Report.UnmatchedSteps),
		"dropped", res.Report.Count(entity.IssueLowConfidenceDrop),
		"floor", uc.cfg.FallbackMinConfidence,
	)
	in.RunID = res.RunID
	retried, err := uc.pipeline.WithMinConfidence(uc.cfg.FallbackMinConfidence).Run(in)
	if err != nil {
		return nil, err
	}
	retried.Report.FallbackApplied = true
	uc.recordRecovered(retried)
	return retried, nil
}

// recordRecovered reports every element of a fallback run that the primary
// floor would have dropped.
func (uc *UseCase) recordRecovered(res *entity.CorrelatedResult) {
	floor := uc.pipeline.MinConfidence()
	recovered := func(el entity.UIElement, step *int) {
		if el.Confidence >= floor {
			return
		}
		res.Report.Add(entity.Issue{
			Kind:       entity.IssueFallbackRecovered,
			Screenshot: el.Screenshot,
			Step:       step,
			ElementID:  el.ID,
			Label:      el.Label,
			Confidence: el.Confidence,
			Message:    fmt.Sprintf("element %s admitted below confidence floor %.2f", el.ID, floor),
		})
	}
	for _, s := range res.Steps {
		if s.Element != nil {
			idx := s.Step.Index
			recovered(*s.Element, &idx)
		}
	}
	for _, el := range res.Report.UnusedElements {
		recovered(el, nil)
	}
}

func (uc *UseCase) wantsFallback(res *entity.CorrelatedResult) bool {
	floor := uc.cfg.FallbackMinConfidence
	return floor > 0 &&
		floor < uc.pipeline.MinConfidence() &&
		len(res.Report.UnmatchedSteps) > 0 &&
		res.Report.Count(entity.IssueLowConfidenceDrop) > 0
}
