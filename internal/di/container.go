package di

import (
	"context"
	"fmt"
	"io"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/automation/dryrun"
	"screen-agent/internal/infrastructure/automation/rod"
	"screen-agent/internal/infrastructure/config"
	"screen-agent/internal/infrastructure/detector"
	"screen-agent/internal/infrastructure/fixture"
	"screen-agent/internal/infrastructure/llm/openrouter"
	"screen-agent/internal/infrastructure/logger"
	"screen-agent/internal/infrastructure/planner"
	"screen-agent/internal/infrastructure/prompts"
	"screen-agent/internal/infrastructure/retry"
	"screen-agent/internal/infrastructure/userinteraction"
	"screen-agent/internal/usecase/classifier"
	"screen-agent/internal/usecase/correlator"
	"screen-agent/internal/usecase/executor"
	"screen-agent/internal/usecase/normalizer"
	"screen-agent/internal/usecase/performer"
	"screen-agent/internal/usecase/pipeline"
)

type Container struct {
	Config     *config.Config
	Logger     output.LoggerPort
	Vocabulary *entity.Vocabulary
	Pipeline   *pipeline.Pipeline
	Presenter  output.PresenterPort
	Runner     input.RunExecutor

	automation output.AutomationPort
}

type Options struct {
	Config   *config.Config
	TaskName string
	// APIKey enables the model-backed planner and detector.
	APIKey string
	// Detections replaces the vision detector with recorded detections.
	Detections []entity.ScreenshotDetections
	// DOMDetection reads elements from the live browser page instead of
	// asking the vision model.
	DOMDetection bool
	// Logger overrides the configured logger, mostly for tests.
	Logger output.LoggerPort
	Out    io.Writer
}

func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	log := opts.Logger
	if log == nil {
		l, err := logger.NewLoggerAdapter(logger.Config{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Dir:        cfg.Log.Dir,
			TaskName:   opts.TaskName,
			MaxSizeMB:  logger.DefaultConfig().MaxSizeMB,
			MaxBackups: logger.DefaultConfig().MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = l
	}

	vocab := entity.DefaultVocabulary()
	for _, t := range cfg.Pipeline.ExtraElementTypes {
		vocab.Extend(entity.ElementType(t))
	}

	pipe, err := pipeline.New(PipelineConfig(cfg, vocab), log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	var (
		plan   output.PlannerPort
		detect output.DetectorPort
	)
	if opts.APIKey != "" {
		llmCfg := openrouter.DefaultConfig(opts.APIKey, cfg.LLM.PlannerModel)
		llmCfg.BaseURL = cfg.LLM.BaseURL
		llmCfg.Logger = log
		llm := openrouter.NewOpenRouterAdapter(llmCfg)
		tmpl := prompts.DefaultConfig()

		plan = planner.New(llm, planner.Config{
			Model:       cfg.LLM.PlannerModel,
			Temperature: float32(cfg.LLM.Temperature),
			Prompt:      tmpl.Planner,
			Vocabulary:  vocab,
		}, log)
		detect = detector.NewVisionDetector(llm, detector.Config{
			Model:       cfg.LLM.VisionModel,
			Temperature: float32(cfg.LLM.Temperature),
			MaxWidth:    cfg.LLM.MaxImageWidth,
			Prompt:      tmpl.Detector,
			Vocabulary:  vocab,
		}, log)
	}
	if opts.Detections != nil {
		detect = fixture.NewFileDetector(opts.Detections)
	}

	c := &Container{
		Config:     cfg,
		Logger:     log,
		Vocabulary: vocab,
		Pipeline:   pipe,
		Presenter:  userinteraction.NewConsolePresenter(opts.Out),
	}
	if opts.DOMDetection {
		a, err := c.Browser(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
		detect = rod.NewDOMDetector(a, 0, log)
	}

	c.Runner = executor.New(plan, detect, pipe, executor.Config{
		Retry: retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
		FallbackMinConfidence: cfg.Pipeline.FallbackMinConfidence,
		Workers:               cfg.Pipeline.Workers,
	}, log)
	return c, nil
}

// PipelineConfig maps the runtime settings onto the pure pipeline.
func PipelineConfig(cfg *config.Config, vocab *entity.Vocabulary) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.Normalizer = normalizer.Options{IoUThreshold: cfg.Pipeline.IoUThreshold}
	pc.Classifier = classifier.Options{MinConfidence: cfg.Pipeline.MinConfidence, Vocabulary: vocab}
	pc.Correlator = correlator.Options{StrictScreenshot: cfg.Pipeline.StrictScreenshot}
	pc.Workers = cfg.Pipeline.Workers
	return pc
}

// Browser starts the rod automation backend, once.
func (c *Container) Browser(ctx context.Context) (*rod.Automation, error) {
	if a, ok := c.automation.(*rod.Automation); ok {
		return a, nil
	}
	a, err := rod.New(ctx, rod.Config{
		Headless:    c.Config.Browser.Headless,
		NoSandbox:   c.Config.Browser.NoSandbox,
		SlowMotion:  c.Config.Browser.SlowMotion,
		Timeout:     c.Config.Browser.Timeout,
		StartURL:    c.Config.Browser.StartURL,
		DeviceScale: 1,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	c.automation = a
	return a, nil
}

// Performer returns an action performer backed by the browser, or by a
// logging dry run.
func (c *Container) Performer(ctx context.Context, dryRun, continueOnGap bool) (input.ActionPerformer, error) {
	var auto output.AutomationPort
	if dryRun {
		auto = dryrun.New(c.Logger)
	} else {
		a, err := c.Browser(ctx)
		if err != nil {
			return nil, err
		}
		auto = a
	}
	cfg := performer.DefaultConfig()
	cfg.ContinueOnGap = continueOnGap
	return performer.New(auto, c.Presenter, cfg, c.Logger), nil
}

func (c *Container) Close() {
	if c.automation != nil {
		_ = c.automation.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
