package rod

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/retry"
)

var _ output.DetectorPort = (*DOMDetector)(nil)

const defaultMaxElements = 500

type domQuery struct {
	selector   string
	label      entity.ElementType
	confidence float64
}

// Earlier queries win when a node matches several selectors.
var domQueries = []domQuery{
	{"input[type='search'], [role='searchbox']", entity.ElementSearchBar, 0.95},
	{"input[type='checkbox'], [role='checkbox'], [role='switch']", entity.ElementCheckbox, 0.95},
	{"input[type='range'], [role='slider']", entity.ElementSlider, 0.95},
	{"select, [role='combobox'], [role='listbox']", entity.ElementDropdown, 0.9},
	{"textarea, [contenteditable='true'], input:not([type]), input[type='text'], input[type='email'], input[type='password'], input[type='url'], input[type='number'], input[type='tel']", entity.ElementTextInput, 0.95},
	{"[role='tab']", entity.ElementTab, 0.9},
	{"[role='menuitem']", entity.ElementMenuItem, 0.9},
	{"[role='menubar']", entity.ElementMenuBar, 0.85},
	{"button, input[type='button'], input[type='submit'], [role='button']", entity.ElementButton, 0.95},
	{"a[href], [role='link']", entity.ElementLink, 0.9},
	{"img[alt], svg[aria-label]", entity.ElementIcon, 0.7},
}

// DOMDetector reads interactive elements straight from the live page. It
// can only describe the most recent Capture, since the DOM reflects the
// current page state.
type DOMDetector struct {
	auto        *Automation
	maxElements int
	logger      output.LoggerPort
}

func NewDOMDetector(a *Automation, maxElements int, logger output.LoggerPort) *DOMDetector {
	if maxElements <= 0 {
		maxElements = defaultMaxElements
	}
	return &DOMDetector{auto: a, maxElements: maxElements, logger: logger}
}

func (d *DOMDetector) Detect(ctx context.Context, screenshot string) ([]entity.RawDetection, error) {
	if screenshot == "" {
		return nil, retry.Permanent(fmt.Errorf("screenshot reference is empty"))
	}
	if last := d.auto.LastCapture(); screenshot != last {
		return nil, retry.Permanent(fmt.Errorf("screenshot %q is not the latest page capture %q", screenshot, last))
	}

	p := d.auto.page.Context(ctx).Timeout(d.auto.cfg.Timeout)
	defer p.CancelTimeout()

	vw, vh, err := viewport(p)
	if err != nil {
		return nil, err
	}

	seen := make(map[proto.DOMBackendNodeID]bool)
	var out []entity.RawDetection
	for _, q := range domQueries {
		els, err := p.Elements(q.selector)
		if err != nil {
			return nil, fmt.Errorf("query %s elements: %w", q.label, err)
		}
		for _, el := range els {
			if len(out) >= d.maxElements {
				d.logger.Warn("DOM element limit reached", "limit", d.maxElements)
				return out, nil
			}
			node, err := el.Describe(0, false)
			if err != nil || seen[node.BackendNodeID] {
				continue
			}
			box, ok := d.auto.elementBox(el, vw, vh)
			if !ok {
				continue
			}
			seen[node.BackendNodeID] = true
			out = append(out, entity.RawDetection{
				Box:        box,
				Label:      string(q.label),
				Confidence: q.confidence,
				Screenshot: screenshot,
			})
		}
	}

	d.logger.Debug("DOM detections", "screenshot", screenshot, "count", len(out))
	return out, nil
}

func viewport(p *rod.Page) (float64, float64, error) {
	res, err := p.Eval(`() => ({w: window.innerWidth, h: window.innerHeight})`)
	if err != nil {
		return 0, 0, fmt.Errorf("read viewport: %w", err)
	}
	return res.Value.Get("w").Num(), res.Value.Get("h").Num(), nil
}

// elementBox returns the visible part of el in screenshot pixels.
func (a *Automation) elementBox(el *rod.Element, vw, vh float64) (entity.BoundingBox, bool) {
	visible, err := el.Visible()
	if err != nil || !visible {
		return entity.BoundingBox{}, false
	}
	shape, err := el.Shape()
	if err != nil {
		return entity.BoundingBox{}, false
	}
	r := shape.Box()
	if r == nil {
		return entity.BoundingBox{}, false
	}

	box, err := entity.NewBoundingBox(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
	if err != nil {
		return entity.BoundingBox{}, false
	}
	if box, err = box.Clip(vw, vh); err != nil {
		return entity.BoundingBox{}, false
	}
	return box.Scale(a.cfg.DeviceScale), true
}
