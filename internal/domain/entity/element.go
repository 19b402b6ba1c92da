package entity

import (
	"fmt"
	"sort"
	"strings"
)

type ElementType string

const (
	ElementButton    ElementType = "button"
	ElementTextInput ElementType = "text_input"
	ElementLink      ElementType = "link"
	ElementDropdown  ElementType = "dropdown"
	ElementCheckbox  ElementType = "checkbox"
	ElementIcon      ElementType = "icon"
	ElementMenuItem  ElementType = "menu_item"
	ElementMenuBar   ElementType = "menu_bar"
	ElementTab       ElementType = "tab"
	ElementSlider    ElementType = "slider"
	ElementScrollbar ElementType = "scrollbar"
	ElementSearchBar ElementType = "search_bar"
	ElementWindow    ElementType = "window"
	ElementGeneric   ElementType = "generic"

	// ElementUnknown keeps the geometry of a detection whose label is outside
	// the vocabulary.
	ElementUnknown ElementType = "unknown"
)

func (t ElementType) String() string {
	return string(t)
}

// NormalizeLabel folds a model-provided label into the canonical spelling:
// lower case, spaces and dashes replaced by underscores.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, label)
}

// Vocabulary is the set of element types the pipeline recognises.
type Vocabulary struct {
	known map[ElementType]struct{}
}

func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(
		ElementButton, ElementTextInput, ElementLink, ElementDropdown,
		ElementCheckbox, ElementIcon, ElementMenuItem, ElementMenuBar,
		ElementTab, ElementSlider, ElementScrollbar, ElementSearchBar,
		ElementWindow, ElementGeneric,
	)
}

func NewVocabulary(types ...ElementType) *Vocabulary {
	v := &Vocabulary{known: make(map[ElementType]struct{}, len(types))}
	v.Extend(types...)
	return v
}

// Extend registers caller-defined element types.
func (v *Vocabulary) Extend(types ...ElementType) {
	for _, t := range types {
		n := ElementType(NormalizeLabel(string(t)))
		if n == "" || n == ElementUnknown {
			continue
		}
		v.known[n] = struct{}{}
	}
}

func (v *Vocabulary) Contains(t ElementType) bool {
	_, ok := v.known[t]
	return ok
}

// Resolve maps a raw label to a known type or ElementUnknown.
func (v *Vocabulary) Resolve(label string) (ElementType, bool) {
	t := ElementType(NormalizeLabel(label))
	if v.Contains(t) {
		return t, true
	}
	return ElementUnknown, false
}

func (v *Vocabulary) Types() []ElementType {
	out := make([]ElementType, 0, len(v.known))
	for t := range v.known {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RawDetection is one untrusted candidate box from the detection collaborator.
type RawDetection struct {
	Box        BoundingBox
	Label      string
	Confidence float64
	Screenshot string
}

// Cluster is a merged group of same-label detections from one screenshot.
type Cluster struct {
	Box        BoundingBox
	Label      string
	Confidence float64
	Screenshot string
	Members    int
}

// UIElement is a canonical, deduplicated element. Values are never mutated
// after the classifier creates them.
type UIElement struct {
	ID         string      `json:"id" yaml:"id"`
	Type       ElementType `json:"type" yaml:"type"`
	Label      string      `json:"label,omitempty" yaml:"label,omitempty"`
	Box        BoundingBox `json:"box" yaml:"box"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Screenshot string      `json:"screenshot" yaml:"screenshot"`

	// Pool is the index of the screenshot pool within the run and Seq the
	// creation order inside it; together they give the insertion order.
	Pool int `json:"-" yaml:"-"`
	Seq  int `json:"-" yaml:"-"`
}

// ElementID builds the run-unique id for the seq-th element of a pool.
func ElementID(pool, seq int) string {
	return fmt.Sprintf("el-%02d-%04d", pool, seq)
}

// CreatedBefore reports whether e was created before o within the run.
func (e UIElement) CreatedBefore(o UIElement) bool {
	if e.Pool != o.Pool {
		return e.Pool < o.Pool
	}
	return e.Seq < o.Seq
}

// ElementPool holds the classified elements of one screenshot.
type ElementPool struct {
	Screenshot string
	Elements   []UIElement
}
