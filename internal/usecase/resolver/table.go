package resolver

import (
	"fmt"

	"screen-agent/internal/domain/entity"
)

// Table maps an element type to the affinity of each action it supports.
// Affinities lie in (0,1]; a zero entry means the action is not supported.
type Table map[entity.ElementType]map[entity.ActionType]float64

func DefaultTable() Table {
	return Table{
		entity.ElementButton: {
			entity.ActionLeftClick: 1.0,
		},
		entity.ElementTextInput: {
			entity.ActionTypeText:  1.0,
			entity.ActionLeftClick: 0.8,
		},
		entity.ElementSearchBar: {
			entity.ActionTypeText:  1.0,
			entity.ActionLeftClick: 0.8,
		},
		entity.ElementLink: {
			entity.ActionLeftClick:  1.0,
			entity.ActionRightClick: 0.4,
			entity.ActionHover:      0.3,
		},
		entity.ElementDropdown: {
			entity.ActionLeftClick: 1.0,
			entity.ActionScroll:    0.4,
		},
		entity.ElementCheckbox: {
			entity.ActionLeftClick: 1.0,
		},
		entity.ElementIcon: {
			entity.ActionDoubleClick: 0.9,
			entity.ActionLeftClick:   0.8,
			entity.ActionRightClick:  0.5,
			entity.ActionDrag:        0.3,
		},
		entity.ElementMenuItem: {
			entity.ActionLeftClick: 1.0,
			entity.ActionHover:     0.6,
		},
		entity.ElementMenuBar: {
			entity.ActionLeftClick: 0.9,
			entity.ActionHover:     0.5,
		},
		entity.ElementTab: {
			entity.ActionLeftClick: 1.0,
		},
		entity.ElementSlider: {
			entity.ActionDrag:      1.0,
			entity.ActionLeftClick: 0.5,
		},
		entity.ElementScrollbar: {
			entity.ActionScroll: 1.0,
			entity.ActionDrag:   0.8,
		},
		entity.ElementWindow: {
			entity.ActionLeftClick: 0.9,
			entity.ActionTypeText:  0.6,
		},
		entity.ElementGeneric: {
			entity.ActionLeftClick: 0.5,
			entity.ActionHover:     0.3,
		},
		entity.ElementUnknown: {
			entity.ActionLeftClick: 0.3,
		},
	}
}

// Validate reports the first entry with an unknown action or an affinity
// outside [0,1].
func (t Table) Validate() error {
	for typ, row := range t {
		for action, affinity := range row {
			if !action.Valid() {
				return fmt.Errorf("element type %q: unknown action %q", typ, action)
			}
			if affinity < 0 || affinity > 1 {
				return fmt.Errorf("element type %q: affinity %v for %s outside [0,1]", typ, affinity, action)
			}
		}
	}
	return nil
}

// With returns a copy of t with row set for typ.
func (t Table) With(typ entity.ElementType, row map[entity.ActionType]float64) Table {
	out := make(Table, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	out[typ] = row
	return out
}
