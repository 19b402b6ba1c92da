package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"screen-agent/internal/domain/entity"
)

// Config carries the prompt templates handed to the model adapters.
type Config struct {
	Planner  string
	Detector string
}

func DefaultConfig() Config {
	return Config{
		Planner:  PlannerPrompt,
		Detector: DetectorPrompt,
	}
}

type PlannerPromptData struct {
	Instruction  string
	Screenshots  []string
	ElementTypes []entity.ElementType
}

type DetectorPromptData struct {
	Width        int
	Height       int
	ElementTypes []entity.ElementType
}

func GeneratePlannerPrompt(baseTemplate string, data PlannerPromptData) (string, error) {
	return render("planner", baseTemplate, data)
}

func GenerateDetectorPrompt(baseTemplate string, data DetectorPromptData) (string, error) {
	return render("detector", baseTemplate, data)
}

var funcs = template.FuncMap{
	"join": func(types []entity.ElementType, sep string) string {
		parts := make([]string, len(types))
		for i, t := range types {
			parts[i] = string(t)
		}
		return strings.Join(parts, sep)
	},
}

func render(name, baseTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
