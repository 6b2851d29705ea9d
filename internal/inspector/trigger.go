package inspector

import (
	"fmt"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

// TriggerKind enumerates the host notifications the controller reacts to.
type TriggerKind string

const (
	TriggerPointerMove  TriggerKind = "pointermove"
	TriggerPointerEnter TriggerKind = "pointerenter"
	TriggerScroll       TriggerKind = "scroll"
	TriggerResize       TriggerKind = "resize"
	TriggerMutation     TriggerKind = "mutation"
)

// Trigger is one notification from the host.
type Trigger struct {
	Kind  TriggerKind    `json:"kind"`
	Point *schemas.Point `json:"point,omitempty"`
	// Key is the element under the pointer for enter events, when the host
	// already knows it. Zero means hit-test Point.
	Key int `json:"key,omitempty"`
}

// Validate checks that pointer triggers carry a position.
func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerPointerMove, TriggerPointerEnter:
		if t.Point == nil {
			return fmt.Errorf("%s trigger without a pointer position", t.Kind)
		}
	case TriggerScroll, TriggerResize, TriggerMutation:
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
	return nil
}

// Intent is a user request to flip one of the persisted flags.
type Intent string

const (
	ToggleEnabled Intent = "enabled"
	ToggleMode    Intent = "mode"
	ToggleLegend  Intent = "legend"
)

// Requester is the subset of the scheduler the controller drives.
type Requester interface {
	RequestSoon()
	NotifyResize()
}
