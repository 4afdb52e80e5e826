package engine

import (
	"time"

	"go.uber.org/zap"
)

// Point is a screen coordinate.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// ActionResult reports how a pointer action was delivered. Validated is
// false when the action fell back to an accessibility action instead of
// synthetic input at a gated point.
type ActionResult struct {
	Validated bool  `json:"validated" yaml:"validated"`
	Point     Point `json:"point" yaml:"point"`
}

// Event is one recorded action.
type Event struct {
	Time      time.Time `json:"time" yaml:"time"`
	Action    string    `json:"action" yaml:"action"`
	Element   string    `json:"element,omitempty" yaml:"element,omitempty"`
	Point     *Point    `json:"point,omitempty" yaml:"point,omitempty"`
	Validated bool      `json:"validated" yaml:"validated"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// record appends an event when the engine records events and logs it at
// debug level either way.
func (e *Engine) record(ev Event) {
	ev.Time = time.Now()
	e.logger.Debug("action",
		zap.String("action", ev.Action),
		zap.String("element", ev.Element),
		zap.Bool("validated", ev.Validated),
		zap.String("error", ev.Error))
	if !e.opts.RecordEvents {
		return
	}
	e.eventsMu.Lock()
	e.events = append(e.events, ev)
	e.eventsMu.Unlock()
}

// Events returns a copy of the recorded events, oldest first. It is empty
// unless the engine was built with RecordEvents.
func (e *Engine) Events() []Event {
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	return append([]Event(nil), e.events...)
}
