package fixture

import (
	"context"
	"fmt"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/retry"
)

var _ output.DetectorPort = (*FileDetector)(nil)

// FileDetector replays recorded detections instead of calling a model.
type FileDetector struct {
	byShot map[string][]entity.RawDetection
	order  []string
}

func NewFileDetector(groups []entity.ScreenshotDetections) *FileDetector {
	d := &FileDetector{byShot: make(map[string][]entity.RawDetection, len(groups))}
	for _, g := range groups {
		if _, seen := d.byShot[g.Screenshot]; !seen {
			d.order = append(d.order, g.Screenshot)
		}
		d.byShot[g.Screenshot] = g.Detections
	}
	return d
}

func (d *FileDetector) Detect(_ context.Context, screenshot string) ([]entity.RawDetection, error) {
	dets, ok := d.byShot[screenshot]
	if !ok {
		return nil, retry.Permanent(fmt.Errorf("no recorded detections for %s", screenshot))
	}
	out := make([]entity.RawDetection, len(dets))
	copy(out, dets)
	return out, nil
}

// Screenshots lists the recorded screenshots in file order.
func (d *FileDetector) Screenshots() []string {
	return append([]string(nil), d.order...)
}
