// Package resolver ranks the actions a matched element supports.
package resolver

import (
	"fmt"
	"sort"

	"screen-agent/internal/domain/entity"
)

type Resolver struct {
	table Table
}

func New(table Table) (*Resolver, error) {
	if table == nil {
		table = DefaultTable()
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compatibility table: %w", err)
	}
	return &Resolver{table: table}, nil
}

// Resolve returns the candidates for a step, best first. Score is element
// confidence times affinity; ties fall back to the canonical action order.
// Only MATCHED steps with an element produce candidates.
func (r *Resolver) Resolve(step entity.TaskStep, el *entity.UIElement) []entity.ActionCandidate {
	if step.Status != entity.StepMatched || el == nil {
		return nil
	}

	row := r.table[el.Type]
	out := make([]entity.ActionCandidate, 0, len(row))
	for action, affinity := range row {
		if affinity <= 0 {
			continue
		}
		out = append(out, entity.ActionCandidate{
			ElementID: el.ID,
			Action:    action,
			Score:     entity.ClampConfidence(el.Confidence * affinity),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Action.Rank() < out[j].Action.Rank()
	})
	return out
}

// Supports reports whether any action has positive affinity for typ.
func (r *Resolver) Supports(typ entity.ElementType) bool {
	for _, affinity := range r.table[typ] {
		if affinity > 0 {
			return true
		}
	}
	return false
}
