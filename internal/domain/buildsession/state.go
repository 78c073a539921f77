package buildsession

import "fmt"

// State is the position of a session in the route-construction workflow.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingStart         State = "awaiting_start"
	StateAwaitingWaypointOrEnd State = "awaiting_waypoint_or_end"
	StateAwaitingColor         State = "awaiting_color"
	StateCommitting            State = "committing"
)

// Step is the coarse workflow step exposed on the session-state record.
type Step string

const (
	StepStart    Step = "start"
	StepWaypoint Step = "waypoint"
	StepEnd      Step = "end"
	StepColor    Step = "color"
)

// validTransitions defines the workflow state machine. Cancel is permitted from every state
// and is not listed here.
var validTransitions = map[State][]State{
	StateIdle:                  {StateAwaitingStart},
	StateAwaitingStart:         {StateAwaitingWaypointOrEnd},
	StateAwaitingWaypointOrEnd: {StateAwaitingWaypointOrEnd, StateAwaitingColor, StateCommitting},
	StateAwaitingColor:         {StateCommitting},
	StateCommitting:            {StateIdle, StateAwaitingWaypointOrEnd},
}

// IsValid returns true if the state is recognized.
func (s State) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this state to target is allowed.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Step projects the state onto the session-state step. Idle reports the waypoint step,
// which is what a finished or cancelled build has always been reset to.
func (s State) Step() Step {
	switch s {
	case StateAwaitingStart:
		return StepStart
	case StateAwaitingColor:
		return StepColor
	case StateCommitting:
		return StepEnd
	default:
		return StepWaypoint
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// ParseState converts a string to a State, returning an error if invalid.
func ParseState(s string) (State, error) {
	state := State(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid build state: %s", s)
	}
	return state, nil
}
