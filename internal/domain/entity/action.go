package entity

type ActionType string

// Declaration order is the canonical order used to break score ties.
const (
	ActionLeftClick   ActionType = "LEFT_CLICK"
	ActionRightClick  ActionType = "RIGHT_CLICK"
	ActionDoubleClick ActionType = "DOUBLE_CLICK"
	ActionTypeText    ActionType = "TYPE"
	ActionDrag        ActionType = "DRAG"
	ActionHover       ActionType = "HOVER"
	ActionScroll      ActionType = "SCROLL"
)

var canonicalActions = []ActionType{
	ActionLeftClick,
	ActionRightClick,
	ActionDoubleClick,
	ActionTypeText,
	ActionDrag,
	ActionHover,
	ActionScroll,
}

// Actions returns the action vocabulary in canonical order.
func Actions() []ActionType {
	out := make([]ActionType, len(canonicalActions))
	copy(out, canonicalActions)
	return out
}

// Rank is the position of a in the canonical order, or -1 when a is not part
// of the vocabulary.
func (a ActionType) Rank() int {
	for i, c := range canonicalActions {
		if c == a {
			return i
		}
	}
	return -1
}

func (a ActionType) Valid() bool {
	return a.Rank() >= 0
}

func (a ActionType) String() string {
	return string(a)
}

// ActionCandidate is an immutable (element, action, score) triple.
type ActionCandidate struct {
	ElementID string     `json:"element_id" yaml:"element_id"`
	Action    ActionType `json:"action" yaml:"action"`
	Score     float64    `json:"score" yaml:"score"`
}
