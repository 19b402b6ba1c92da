// Package correlator links plan steps to detected UI elements.
//
// Matching is greedy in step order: each step takes the best unassigned
// candidate before the next step is considered, so an earlier step may take
// an element that would have scored higher for a later step.
package correlator

import (
	"sort"

	"screen-agent/internal/domain/entity"
)

type Options struct {
	// StrictScreenshot limits a step that names a screenshot to that pool.
	// By default the named screenshot only breaks confidence ties.
	StrictScreenshot bool
}

// Assignment is the outcome of one correlation pass.
type Assignment struct {
	Steps     []entity.TaskStep
	Unmatched []int
	Unused    []entity.UIElement

	links map[int]entity.UIElement
}

// Correlate never fails: steps without an available candidate are marked
// UNMATCHED and the pass continues. The input slices are not modified.
func Correlate(steps []entity.TaskStep, pools []entity.ElementPool, opts Options) *Assignment {
	a := &Assignment{
		Steps: make([]entity.TaskStep, len(steps)),
		links: make(map[int]entity.UIElement, len(steps)),
	}
	copy(a.Steps, steps)
	sort.SliceStable(a.Steps, func(i, j int) bool { return a.Steps[i].Index < a.Steps[j].Index })

	var all []entity.UIElement
	for _, p := range pools {
		all = append(all, p.Elements...)
	}

	assigned := make(map[string]bool, len(all))
	for i := range a.Steps {
		step := &a.Steps[i]
		el, ok := pick(*step, all, assigned, opts)
		if !ok {
			step.Status = entity.StepUnmatched
			a.Unmatched = append(a.Unmatched, step.Index)
			continue
		}
		assigned[el.ID] = true
		step.Status = entity.StepMatched
		a.links[step.Index] = el
	}

	for _, el := range all {
		if !assigned[el.ID] {
			a.Unused = append(a.Unused, el)
		}
	}
	sort.SliceStable(a.Unused, func(i, j int) bool { return a.Unused[i].CreatedBefore(a.Unused[j]) })
	return a
}

func pick(step entity.TaskStep, all []entity.UIElement, assigned map[string]bool, opts Options) (entity.UIElement, bool) {
	candidates := make([]entity.UIElement, 0, len(all))
	for _, el := range all {
		if assigned[el.ID] {
			continue
		}
		if step.TypeHint != nil && el.Type != *step.TypeHint {
			continue
		}
		if opts.StrictScreenshot && step.Screenshot != "" && el.Screenshot != step.Screenshot {
			continue
		}
		candidates = append(candidates, el)
	}
	if len(candidates) == 0 {
		return entity.UIElement{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return better(step, candidates[i], candidates[j])
	})
	return candidates[0], true
}

// better orders candidates by confidence, then by the step's expected
// screenshot, then by creation order. The ordering is total, so the choice
// never depends on sort stability.
func better(step entity.TaskStep, x, y entity.UIElement) bool {
	if x.Confidence != y.Confidence {
		return x.Confidence > y.Confidence
	}
	if step.Screenshot != "" {
		xp, yp := x.Screenshot == step.Screenshot, y.Screenshot == step.Screenshot
		if xp != yp {
			return xp
		}
	}
	return x.CreatedBefore(y)
}

// Element returns the element linked to the step with the given index.
func (a *Assignment) Element(index int) (entity.UIElement, bool) {
	el, ok := a.links[index]
	return el, ok
}

// MarkFailed moves a MATCHED step to FAILED, keeping its element link.
func (a *Assignment) MarkFailed(index int) bool {
	for i := range a.Steps {
		if a.Steps[i].Index == index && a.Steps[i].Status == entity.StepMatched {
			a.Steps[i].Status = entity.StepFailed
			return true
		}
	}
	return false
}
