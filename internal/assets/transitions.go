package assets

import (
	"fmt"
	"time"

	"encodeflow/internal/services"
)

// Event drives the encoding lifecycle.
type Event string

const (
	EventSubmit   Event = "submit"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
)

type transitionRule struct {
	from []Status
	to   Status
}

var transitionTable = map[Event]transitionRule{
	EventSubmit:   {from: []Status{StatusInit, StatusDone, StatusError}, to: StatusStarted},
	EventComplete: {from: []Status{StatusStarted}, to: StatusDone},
	EventFail:     {from: []Status{StatusInit, StatusStarted}, to: StatusError},
}

// Transition returns the state reached by applying event in state from.
// Pairs missing from the table yield ErrInvalidTransition.
func Transition(from Status, event Event) (Status, error) {
	rule, ok := transitionTable[event]
	if !ok {
		return from, invalidTransition(from, event, "unknown event")
	}
	for _, candidate := range rule.from {
		if candidate == from {
			return rule.to, nil
		}
	}
	return from, invalidTransition(from, event, "")
}

// CanApply reports whether event is legal from status.
func CanApply(status Status, event Event) bool {
	_, err := Transition(status, event)
	return err == nil
}

func invalidTransition(from Status, event Event, reason string) error {
	message := fmt.Sprintf("event %q not allowed from state %q", event, from)
	if reason != "" {
		message = fmt.Sprintf("%s (%s)", message, reason)
	}
	return services.Wrap(services.ErrInvalidTransition, "assets", "transition", message, nil)
}

// Apply moves the asset along the lifecycle and stamps StatusChangedAt.
// The asset is left untouched when the transition is rejected.
func (a *Asset) Apply(event Event, now time.Time) error {
	if a == nil {
		return services.Wrap(services.ErrValidation, "assets", "transition", "asset is nil", nil)
	}
	if !a.IsRoot() {
		return services.Wrap(services.ErrInvalidTransition, "assets", "transition",
			fmt.Sprintf("asset %d is derived and has no encoding lifecycle", a.ID), nil)
	}
	current := a.EncodingStatus
	if current == "" {
		current = StatusInit
	}
	next, err := Transition(current, event)
	if err != nil {
		return err
	}
	a.EncodingStatus = next
	a.StatusChangedAt = now.UTC()
	return nil
}
