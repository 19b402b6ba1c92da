// Package detector asks a vision model for element boxes on a screenshot.
package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"

	"github.com/disintegration/imaging"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/llm/llmjson"
	"screen-agent/internal/infrastructure/prompts"
	"screen-agent/internal/infrastructure/retry"
)

var _ output.DetectorPort = (*VisionDetector)(nil)

const defaultMaxWidth = 1024

type Config struct {
	Model       string
	Temperature float32
	// MaxWidth is the widest image sent to the model. Boxes are mapped back
	// to the original resolution.
	MaxWidth    int
	JPEGQuality int
	Prompt      string
	Vocabulary  *entity.Vocabulary
}

func DefaultConfig() Config {
	return Config{
		Temperature: 0.1,
		MaxWidth:    defaultMaxWidth,
		JPEGQuality: 75,
		Prompt:      prompts.DetectorPrompt,
		Vocabulary:  entity.DefaultVocabulary(),
	}
}

type VisionDetector struct {
	llm    output.LLMPort
	cfg    Config
	logger output.LoggerPort
}

func NewVisionDetector(llm output.LLMPort, cfg Config, logger output.LoggerPort) *VisionDetector {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = defaultMaxWidth
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 75
	}
	if cfg.Prompt == "" {
		cfg.Prompt = prompts.DetectorPrompt
	}
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = entity.DefaultVocabulary()
	}
	return &VisionDetector{llm: llm, cfg: cfg, logger: logger}
}

// frame is a screenshot prepared for upload along with the factor that maps
// model coordinates back to the original pixels.
type frame struct {
	shot         entity.Screenshot
	scale        float64
	origW, origH int
}

func (d *VisionDetector) Detect(ctx context.Context, screenshot string) ([]entity.RawDetection, error) {
	img, err := imaging.Open(screenshot, imaging.AutoOrientation(true))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("open screenshot %s: %w", screenshot, err))
	}

	f, err := d.prepare(screenshot, img)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	system, err := prompts.GenerateDetectorPrompt(d.cfg.Prompt, prompts.DetectorPromptData{
		Width:        f.shot.Width,
		Height:       f.shot.Height,
		ElementTypes: d.cfg.Vocabulary.Types(),
	})
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("render detector prompt: %w", err))
	}

	resp, err := d.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: system},
			{Role: entity.RoleUser, Content: "Detect the UI elements in this screenshot.", Images: []entity.Screenshot{f.shot}},
		},
		Model:        d.cfg.Model,
		Temperature:  d.cfg.Temperature,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vision llm request failed: %w", err)
	}

	dets, err := parseDetections(resp.Message.Content, screenshot, f)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Screenshot analysed",
		"screenshot", screenshot,
		"detections", len(dets),
		"scale", f.scale,
	)
	return dets, nil
}

func (d *VisionDetector) prepare(id string, img image.Image) (frame, error) {
	f := frame{scale: 1, origW: img.Bounds().Dx(), origH: img.Bounds().Dy()}
	if f.origW > d.cfg.MaxWidth {
		img = imaging.Resize(img, d.cfg.MaxWidth, 0, imaging.Lanczos)
		f.scale = float64(f.origW) / float64(img.Bounds().Dx())
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(d.cfg.JPEGQuality)); err != nil {
		return frame{}, fmt.Errorf("jpeg encode failed: %w", err)
	}

	f.shot = entity.Screenshot{
		ID:     id,
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	return f, nil
}

type detectionResponse struct {
	Elements []struct {
		Label      string    `json:"label"`
		Box        []float64 `json:"box"`
		Confidence float64   `json:"confidence"`
	} `json:"elements"`
}

// parseDetections maps the model's boxes to original pixels, clipped to the
// image. A box that is malformed or collapses after clipping keeps a zero
// box so the normalizer reports it instead of silently losing it.
func parseDetections(response, screenshot string, f frame) ([]entity.RawDetection, error) {
	var raw detectionResponse
	if err := llmjson.Decode(response, &raw); err != nil {
		return nil, fmt.Errorf("parse detections: %w", err)
	}

	out := make([]entity.RawDetection, 0, len(raw.Elements))
	for _, e := range raw.Elements {
		det := entity.RawDetection{
			Label:      e.Label,
			Confidence: entity.ClampConfidence(e.Confidence),
			Screenshot: screenshot,
		}
		if len(e.Box) == 4 {
			det.Box = f.toImage(e.Box[0], e.Box[1], e.Box[2], e.Box[3])
		}
		out = append(out, det)
	}
	return out, nil
}

// toImage maps a box in sent-image pixels to the original image, or returns
// the zero box when it is invalid or lies outside the image.
func (f frame) toImage(x1, y1, x2, y2 float64) entity.BoundingBox {
	box, err := entity.NewBoundingBox(x1, y1, x2, y2)
	if err != nil {
		return entity.BoundingBox{}
	}
	box, err = box.Scale(f.scale).Clip(float64(f.origW), float64(f.origH))
	if err != nil {
		return entity.BoundingBox{}
	}
	return box
}
