// Package state defines the video lifecycle state machine. Transitions are a
// fixed table; everything else is derived from it.
package state

import (
	"fmt"
	"strings"
)

// VideoState identifies where a video sits in the processing lifecycle.
type VideoState string

const (
	// StateIngested marks a video registered but not yet processed.
	StateIngested VideoState = "ingested"
	// StateTranscribed marks a video with a completed transcript.
	StateTranscribed VideoState = "transcribed"
	// StateSegmented marks a video whose transcript has been cut into
	// candidate segments.
	StateSegmented VideoState = "segmented"
	// StateScored marks a video whose segments carry final scores.
	StateScored VideoState = "scored"
	// StateReady marks a video whose ranked clips are ready for export.
	StateReady VideoState = "ready"
	// StateArchived marks a video retired from the active set.
	StateArchived VideoState = "archived"
	// StateError marks a video halted by a stage failure. Terminal.
	StateError VideoState = "error"
)

// transitions is the authoritative adjacency table. Every state known to the
// machine appears as a key, including terminal states with no exits.
var transitions = map[VideoState][]VideoState{
	StateIngested:    {StateTranscribed, StateError},
	StateTranscribed: {StateSegmented, StateError},
	StateSegmented:   {StateScored, StateError},
	StateScored:      {StateReady, StateError},
	StateReady:       {StateArchived, StateError},
	StateArchived:    {},
	StateError:       {},
}

// PipelineOrder lists the forward path through the lifecycle, excluding the
// error state.
func PipelineOrder() []VideoState {
	return []VideoState{
		StateIngested,
		StateTranscribed,
		StateSegmented,
		StateScored,
		StateReady,
		StateArchived,
	}
}

// Known reports whether the value is a recognized state.
func Known(s VideoState) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from one state to another is legal.
// Unknown states are never part of a legal transition.
func CanTransition(from, to VideoState) bool {
	next, ok := transitions[from]
	if !ok || !Known(to) {
		return false
	}
	for _, candidate := range next {
		if candidate == to {
			return true
		}
	}
	return false
}

// NextStates returns a copy of the legal successor states for the given state.
func NextStates(from VideoState) []VideoState {
	next, ok := transitions[from]
	if !ok {
		return nil
	}
	out := make([]VideoState, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether the state has no legal exits.
func IsTerminal(s VideoState) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// ValidateTransition returns nil when the transition is legal, an
// *InvalidStateError when either endpoint is unknown, and an
// *InvalidTransitionError when both states are known but the edge does not
// exist.
func ValidateTransition(from, to VideoState) error {
	if !Known(from) {
		return &InvalidStateError{Value: string(from)}
	}
	if !Known(to) {
		return &InvalidStateError{Value: string(to)}
	}
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// ParseState converts a stored string into a VideoState, rejecting unknown
// values.
func ParseState(value string) (VideoState, error) {
	s := VideoState(strings.TrimSpace(strings.ToLower(value)))
	if !Known(s) {
		return "", &InvalidStateError{Value: value}
	}
	return s, nil
}

// InvalidTransitionError reports an attempt to traverse a nonexistent edge.
type InvalidTransitionError struct {
	From VideoState
	To   VideoState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

// InvalidStateError reports a value that is not part of the state machine.
type InvalidStateError struct {
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("unknown video state %q", e.Value)
}
