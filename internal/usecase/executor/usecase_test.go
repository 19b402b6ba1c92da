package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/logger"
	"screen-agent/internal/infrastructure/planner"
	"screen-agent/internal/infrastructure/retry"
	"screen-agent/internal/usecase/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePlanner struct {
	plan     *entity.Plan
	failures int
	err      error
	calls    int
}

func (f *fakePlanner) Plan(_ context.Context, _ string, _ []string) (*entity.Plan, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.plan, nil
}

type fakeDetector struct {
	mu    sync.Mutex
	dets  map[string][]entity.RawDetection
	fail  map[string]error
	calls map[string]int
}

func (f *fakeDetector) Detect(_ context.Context, shot string) ([]entity.RawDetection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[shot]++
	if err, ok := f.fail[shot]; ok {
		return nil, err
	}
	return f.dets[shot], nil
}

func det(shot, label string, conf float64, x1, y1, x2, y2 float64) entity.RawDetection {
	return entity.RawDetection{Box: entity.MustBoundingBox(x1, y1, x2, y2), Label: label, Confidence: conf, Screenshot: shot}
}

func examplePlan() *entity.Plan {
	return &entity.Plan{
		Goal: "Search Google",
		Steps: []entity.TaskStep{
			entity.NewTaskStep(0, "Exit VSCode", entity.Hint(entity.ElementWindow)),
			entity.NewTaskStep(1, "Find Chrome icon", entity.Hint(entity.ElementButton)),
		},
	}
}

func exampleDetector() *fakeDetector {
	return &fakeDetector{dets: map[string][]entity.RawDetection{
		"vscode.png": {
			det("vscode.png", "WINDOW", 0.95, 0, 0, 1920, 1080),
			det("vscode.png", "MENU_BAR", 0.92, 0, 0, 1920, 30),
		},
		"chrome.png": {
			det("chrome.png", "SEARCH_BAR", 0.90, 400, 300, 1500, 340),
			det("chrome.png", "BUTTON", 0.88, 10, 1040, 50, 1075),
		},
	}}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return cfg
}

func newUseCase(t *testing.T, planner *fakePlanner, detector *fakeDetector, cfg Config) *UseCase {
	t.Helper()
	pipe, err := pipeline.New(pipeline.DefaultConfig(), logger.NewNop())
	require.NoError(t, err)
	return New(planner, detector, pipe, cfg, logger.NewNop())
}

func TestExecute_PlansDetectsAndCorrelates(t *testing.T) {
	planner := &fakePlanner{plan: examplePlan()}
	uc := newUseCase(t, planner, exampleDetector(), testConfig())

	out, err := uc.Execute(context.Background(), input.RunRequest{
		Instruction: "search google for neural networks",
		Screenshots: []string{"vscode.png", "chrome.png"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, "Search Google", out.Plan.Goal)
	res := out.Result
	assert.Equal(t, entity.StateDone, res.State)
	assert.Equal(t, 2, res.Matched())
	assert.Equal(t, entity.ActionLeftClick, res.Steps[1].Actions[0].Action)
	assert.Equal(t, "chrome.png", res.Steps[1].Element.Screenshot)
	assert.False(t, res.Report.FallbackApplied)
}

func TestExecute_RetriesTransientPlannerFailures(t *testing.T) {
	planner := &fakePlanner{plan: examplePlan(), failures: 2, err: errors.New("503")}
	uc := newUseCase(t, planner, exampleDetector(), testConfig())

	_, err := uc.Execute(context.Background(), input.RunRequest{Instruction: "x", Screenshots: []string{"vscode.png"}})
	require.NoError(t, err)
	assert.Equal(t, 3, planner.calls)
}

func TestExecute_PlannerExhausted(t *testing.T) {
	cause := errors.New("503")
	planner := &fakePlanner{failures: 10, err: cause}
	uc := newUseCase(t, planner, exampleDetector(), testConfig())

	_, err := uc.Execute(context.Background(), input.RunRequest{Instruction: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "plan collaborator")
	assert.Equal(t, 3, planner.calls)
}

func TestExecute_DetectionFailure(t *testing.T) {
	detector := exampleDetector()
	cause := errors.New("unreadable image")
	detector.fail = map[string]error{"chrome.png": retry.Permanent(cause)}
	uc := newUseCase(t, &fakePlanner{plan: examplePlan()}, detector, testConfig())

	_, err := uc.Execute(context.Background(), input.RunRequest{
		Instruction: "x",
		Screenshots: []string{"vscode.png", "chrome.png"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "chrome.png")
	assert.Contains(t, err.Error(), "detection collaborator")
	assert.Equal(t, 1, detector.calls["chrome.png"])
}

func TestExecute_GivenPlanSkipsPlanner(t *testing.T) {
	planner := &fakePlanner{err: errors.New("must not be called"), failures: 1}
	uc := newUseCase(t, planner, exampleDetector(), testConfig())

	out, err := uc.Execute(context.Background(), input.RunRequest{
		Plan:        examplePlan(),
		Screenshots: []string{"vscode.png", "chrome.png"},
	})
	require.NoError(t, err)
	assert.Zero(t, planner.calls)
	assert.True(t, out.Result.Complete())
}

func TestExecute_RequiresInstructionOrPlan(t *testing.T) {
	uc := newUseCase(t, &fakePlanner{}, exampleDetector(), testConfig())
	_, err := uc.Execute(context.Background(), input.RunRequest{})
	assert.Error(t, err)
}

func TestExecute_MissingCollaborators(t *testing.T) {
	pipe, err := pipeline.New(pipeline.DefaultConfig(), logger.NewNop())
	require.NoError(t, err)
	uc := New(nil, nil, pipe, testConfig(), logger.NewNop())

	_, err = uc.Execute(context.Background(), input.RunRequest{Instruction: "x"})
	assert.ErrorContains(t, err, "no planner configured")

	_, err = uc.Execute(context.Background(), input.RunRequest{Plan: examplePlan(), Screenshots: []string{"vscode.png"}})
	assert.ErrorContains(t, err, "no detector configured")
}

type fakeLLM struct {
	content string
}

func (f *fakeLLM) Chat(_ context.Context, _ output.ChatRequest) (*output.ChatResponse, error) {
	return &output.ChatResponse{Message: entity.Message{Role: entity.RoleAssistant, Content: f.content}}, nil
}

func TestExecute_PlanReferencingMissingScreenshotFails(t *testing.T) {
	llm := &fakeLLM{content: `{"goal": "g", "steps": [
		{"description": "Exit VSCode", "element_type": "window", "screenshot": "vscode.png"},
		{"description": "Open Firefox", "element_type": "button", "screenshot": "firefox.png"}
	]}`}
	plans := planner.New(llm, planner.DefaultConfig(), logger.NewNop())
	pipe, err := pipeline.New(pipeline.DefaultConfig(), logger.NewNop())
	require.NoError(t, err)
	uc := New(plans, exampleDetector(), pipe, testConfig(), logger.NewNop())

	out, err := uc.Execute(context.Background(), input.RunRequest{
		Instruction: "open firefox",
		Screenshots: []string{"vscode.png", "chrome.png"},
	})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, entity.ErrMalformedInput)

	var pe *entity.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, entity.StateReceived, pe.Stage)
	assert.Equal(t, "firefox.png", pe.Context["screenshot"])
}

func lowConfidenceInput() entity.RunInput {
	return entity.RunInput{
		RunID: "run-fallback",
		Steps: []entity.TaskStep{entity.NewTaskStep(0, "Click OK", entity.Hint(entity.ElementButton))},
		Screenshots: []entity.ScreenshotDetections{{Screenshot: "dialog.png", Detections: []entity.RawDetection{
			det("dialog.png", "button", 0.2, 100, 100, 160, 130),
		}}},
	}
}

func TestCorrelate_FallbackRecoversUnmatchedStep(t *testing.T) {
	uc := newUseCase(t, &fakePlanner{}, &fakeDetector{}, testConfig())

	res, err := uc.Correlate(context.Background(), lowConfidenceInput())
	require.NoError(t, err)

	assert.True(t, res.Report.FallbackApplied)
	assert.Equal(t, "run-fallback", res.RunID)
	assert.Equal(t, entity.StepMatched, res.Steps[0].Step.Status)
	assert.Zero(t, res.Report.Count(entity.IssueLowConfidenceDrop))

	require.Equal(t, 1, res.Report.Count(entity.IssueFallbackRecovered))
	for _, issue := range res.Report.Issues {
		if issue.Kind == entity.IssueFallbackRecovered {
			assert.Equal(t, res.Steps[0].Element.ID, issue.ElementID)
			assert.Equal(t, 0.2, issue.Confidence)
			assert.Equal(t, 0, *issue.Step)
		}
	}
}

func TestCorrelate_FallbackReportsOnlyRecoveredElements(t *testing.T) {
	uc := newUseCase(t, &fakePlanner{}, &fakeDetector{}, testConfig())
	in := lowConfidenceInput()
	in.Steps = append(in.Steps, entity.NewTaskStep(1, "Pick a slider", entity.Hint(entity.ElementSlider)))
	in.Screenshots[0].Detections = append(in.Screenshots[0].Detections,
		det("dialog.png", "link", 0.9, 300, 300, 360, 320),
		det("dialog.png", "icon", 0.18, 400, 400, 420, 420),
	)

	res, err := uc.Correlate(context.Background(), in)
	require.NoError(t, err)

	require.True(t, res.Report.FallbackApplied)
	assert.Equal(t, 2, res.Report.Count(entity.IssueFallbackRecovered), "the button and the unused icon")
	for _, issue := range res.Report.Issues {
		if issue.Kind == entity.IssueFallbackRecovered {
			assert.Less(t, issue.Confidence, 0.3)
		}
	}
}

func TestCorrelate_FallbackDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackMinConfidence = 0
	uc := newUseCase(t, &fakePlanner{}, &fakeDetector{}, cfg)

	res, err := uc.Correlate(context.Background(), lowConfidenceInput())
	require.NoError(t, err)

	assert.False(t, res.Report.FallbackApplied)
	assert.Equal(t, entity.StepUnmatched, res.Steps[0].Step.Status)
	assert.Equal(t, 1, res.Report.Count(entity.IssueLowConfidenceDrop))
}

func TestCorrelate_NoFallbackWithoutDrops(t *testing.T) {
	uc := newUseCase(t, &fakePlanner{}, &fakeDetector{}, testConfig())
	in := lowConfidenceInput()
	in.Screenshots[0].Detections = nil

	res, err := uc.Correlate(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Report.FallbackApplied)
	assert.Equal(t, []int{0}, res.Report.UnmatchedSteps)
}

func TestCorrelate_MalformedInput(t *testing.T) {
	uc := newUseCase(t, &fakePlanner{}, &fakeDetector{}, testConfig())
	in := lowConfidenceInput()
	in.Steps = nil

	_, err := uc.Correlate(context.Background(), in)
	assert.ErrorIs(t, err, entity.ErrMalformedInput)
}

func TestCorrelate_CancelledContext(t *testing.T) {
	uc := newUseCase(t, &fakePlanner{}, &fakeDetector{}, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Correlate(ctx, lowConfidenceInput())
	assert.ErrorIs(t, err, context.Canceled)
}
