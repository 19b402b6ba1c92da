// Package planner turns an instruction into an ordered plan through a chat
// model.
package planner

import (
	"context"
	"fmt"
	"strings"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/llm/llmjson"
	"screen-agent/internal/infrastructure/prompts"
)

var _ output.PlannerPort = (*LLMPlanner)(nil)

type Config struct {
	Model       string
	Temperature float32
	Prompt      string
	Vocabulary  *entity.Vocabulary
}

func DefaultConfig() Config {
	return Config{
		Temperature: 0.1,
		Prompt:      prompts.PlannerPrompt,
		Vocabulary:  entity.DefaultVocabulary(),
	}
}

type LLMPlanner struct {
	llm    output.LLMPort
	cfg    Config
	logger output.LoggerPort
}

func New(llm output.LLMPort, cfg Config, logger output.LoggerPort) *LLMPlanner {
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = entity.DefaultVocabulary()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = prompts.PlannerPrompt
	}
	return &LLMPlanner{llm: llm, cfg: cfg, logger: logger}
}

type planResponse struct {
	Goal  string         `json:"goal"`
	Steps []stepResponse `json:"steps"`
}

type stepResponse struct {
	Description string `json:"description"`
	ElementType string `json:"element_type"`
	Input       string `json:"input"`
	Screenshot  string `json:"screenshot"`
}

func (p *LLMPlanner) Plan(ctx context.Context, instruction string, screenshots []string) (*entity.Plan, error) {
	system, err := prompts.GeneratePlannerPrompt(p.cfg.Prompt, prompts.PlannerPromptData{
		Instruction:  instruction,
		Screenshots:  screenshots,
		ElementTypes: p.cfg.Vocabulary.Types(),
	})
	if err != nil {
		return nil, fmt.Errorf("render planner prompt: %w", err)
	}

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: system},
			{Role: entity.RoleUser, Content: instruction},
		},
		Model:        p.cfg.Model,
		Temperature:  p.cfg.Temperature,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("planner llm request failed: %w", err)
	}

	plan, err := p.parsePlanResponse(resp.Message.Content, screenshots)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Plan created", "goal", plan.Goal, "steps", len(plan.Steps))
	return plan, nil
}

// parsePlanResponse builds a plan with contiguous indices. Hints and
// screenshot references are passed through as given; the pipeline rejects
// or reports the ones it cannot use.
func (p *LLMPlanner) parsePlanResponse(response string, screenshots []string) (*entity.Plan, error) {
	var raw planResponse
	if err := llmjson.Decode(response, &raw); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	known := make(map[string]bool, len(screenshots))
	for _, s := range screenshots {
		known[s] = true
	}

	plan := &entity.Plan{Goal: strings.TrimSpace(raw.Goal)}
	for _, s := range raw.Steps {
		desc := strings.TrimSpace(s.Description)
		if desc == "" {
			continue
		}
		step := entity.NewTaskStep(len(plan.Steps), desc, p.hint(s.ElementType))
		step.Input = s.Input
		step.Screenshot = strings.TrimSpace(s.Screenshot)
		if step.Screenshot != "" && !known[step.Screenshot] {
			p.logger.Warn("Plan step references unknown screenshot", "step", step.Index, "screenshot", step.Screenshot)
		}
		plan.Steps = append(plan.Steps, step)
	}

	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("parse plan: response contains no steps")
	}
	return plan, nil
}

func (p *LLMPlanner) hint(label string) *entity.ElementType {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	typ, ok := p.cfg.Vocabulary.Resolve(label)
	if !ok {
		p.logger.Debug("Unknown element type hint", "hint", label)
		return entity.Hint(entity.ElementType(strings.TrimSpace(label)))
	}
	return entity.Hint(typ)
}
