package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

// DetectorPort returns raw, untrusted element detections for one screenshot.
// Boxes are in the screenshot's own pixel space.
type DetectorPort interface {
	Detect(ctx context.Context, screenshot string) ([]entity.RawDetection, error)
}
