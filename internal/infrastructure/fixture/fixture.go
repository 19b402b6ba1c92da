// Package fixture reads plans and detections from YAML or JSON files and
// writes correlated results back out.
package fixture

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"screen-agent/internal/domain/entity"
)

type planFile struct {
	Goal  string     `yaml:"goal"`
	Steps []stepFile `yaml:"steps"`
}

type stepFile struct {
	Index       *int   `yaml:"index"`
	Description string `yaml:"description"`
	TypeHint    string `yaml:"type_hint"`
	Input       string `yaml:"input"`
	Screenshot  string `yaml:"screenshot"`
}

type detectionsFile struct {
	Screenshots []screenshotFile `yaml:"screenshots"`
}

type screenshotFile struct {
	Screenshot string          `yaml:"screenshot"`
	Detections []detectionFile `yaml:"detections"`
}

type detectionFile struct {
	Label      string    `yaml:"label"`
	Box        []float64 `yaml:"box"`
	Confidence float64   `yaml:"confidence"`
}

// LoadPlan loads a plan file. Steps without an explicit index take their
// position in the file; hints outside vocab are kept verbatim.
func LoadPlan(path string, vocab *entity.Vocabulary) (*entity.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}
	return ParsePlan(data, vocab)
}

func ParsePlan(data []byte, vocab *entity.Vocabulary) (*entity.Plan, error) {
	if vocab == nil {
		vocab = entity.DefaultVocabulary()
	}

	var pf planFile
	if err := yaml.UnmarshalWithOptions(data, &pf, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}

	plan := &entity.Plan{Goal: pf.Goal, Steps: make([]entity.TaskStep, 0, len(pf.Steps))}
	for i, s := range pf.Steps {
		idx := i
		if s.Index != nil {
			idx = *s.Index
		}
		var hint *entity.ElementType
		if s.TypeHint != "" {
			typ, ok := vocab.Resolve(s.TypeHint)
			if !ok {
				typ = entity.ElementType(s.TypeHint)
			}
			hint = entity.Hint(typ)
		}
		step := entity.NewTaskStep(idx, s.Description, hint)
		step.Input = s.Input
		step.Screenshot = s.Screenshot
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

func LoadDetections(path string) ([]entity.ScreenshotDetections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections file %s: %w", path, err)
	}
	return ParseDetections(data)
}

// ParseDetections keeps malformed boxes as zero boxes so the run reports
// them as invalid detections.
func ParseDetections(data []byte) ([]entity.ScreenshotDetections, error) {
	var df detectionsFile
	if err := yaml.UnmarshalWithOptions(data, &df, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("failed to parse detections YAML: %w", err)
	}

	out := make([]entity.ScreenshotDetections, 0, len(df.Screenshots))
	for _, s := range df.Screenshots {
		group := entity.ScreenshotDetections{
			Screenshot: s.Screenshot,
			Detections: make([]entity.RawDetection, 0, len(s.Detections)),
		}
		for _, d := range s.Detections {
			det := entity.RawDetection{
				Label:      d.Label,
				Confidence: d.Confidence,
				Screenshot: s.Screenshot,
			}
			if len(d.Box) == 4 {
				if box, err := entity.NewBoundingBox(d.Box[0], d.Box[1], d.Box[2], d.Box[3]); err == nil {
					det.Box = box
				}
			}
			group.Detections = append(group.Detections, det)
		}
		out = append(out, group)
	}
	return out, nil
}
