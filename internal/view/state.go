// Package view implements the four-state machine that sequences a forge
// session: Idle → Generating → Viewing or Error → Idle.
package view

import (
	"errors"
	"fmt"

	"github.com/stemsi/curricuforge/internal/model"
)

// Status names a state.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusGenerating Status = "GENERATING"
	StatusViewing    Status = "VIEWING"
	StatusError      Status = "ERROR"
)

// State is one of Idle, Generating, Viewing or Failed. The interface is
// sealed so no other state can exist.
type State interface {
	Status() Status
	sealed()
}

// Idle shows the form. No call is pending.
type Idle struct{}

// Generating means a call is in flight.
type Generating struct{}

// Viewing holds the curriculum of the last successful call.
type Viewing struct {
	Curriculum *model.Curriculum
}

// Failed holds the message of the last failed call.
type Failed struct {
	Message string
}

func (Idle) Status() Status       { return StatusIdle }
func (Generating) Status() Status { return StatusGenerating }
func (Viewing) Status() Status    { return StatusViewing }
func (Failed) Status() Status     { return StatusError }

func (Idle) sealed()       {}
func (Generating) sealed() {}
func (Viewing) sealed()    {}
func (Failed) sealed()     {}

// Initial returns the state a new session starts in.
func Initial() State { return Idle{} }

// Action is a user action offered in a state.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionReset  Action = "reset"
)

// Actions lists the user actions valid in s.
func Actions(s State) []Action {
	switch s.(type) {
	case Idle:
		return []Action{ActionSubmit}
	case Viewing, Failed:
		return []Action{ActionReset}
	default:
		return []Action{}
	}
}

// Event drives a transition.
type Event interface {
	Name() string
}

// Submit starts a generation with Params.
type Submit struct {
	Params model.GenerationParams
}

// Succeed completes a generation with a curriculum.
type Succeed struct {
	Curriculum *model.Curriculum
}

// Fail completes a generation with a failure message.
type Fail struct {
	Message string
}

// Reset returns a terminal state to Idle.
type Reset struct{}

func (Submit) Name() string  { return string(ActionSubmit) }
func (Succeed) Name() string { return "success" }
func (Fail) Name() string    { return "failure" }
func (Reset) Name() string   { return string(ActionReset) }

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError reports an event that is not valid in the current state.
type TransitionError struct {
	From  Status
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Apply returns the state reached from s by e. Only five transitions exist:
//
//	Idle       --submit-->  Generating
//	Generating --success--> Viewing
//	Generating --failure--> Error
//	Viewing    --reset-->   Idle
//	Error      --reset-->   Idle
func Apply(s State, e Event) (State, error) {
	if s == nil {
		s = Initial()
	}
	switch ev := e.(type) {
	case Submit:
		if _, ok := s.(Idle); ok {
			return Generating{}, nil
		}
	case Succeed:
		if _, ok := s.(Generating); ok && ev.Curriculum != nil {
			return Viewing{Curriculum: ev.Curriculum}, nil
		}
	case Fail:
		if _, ok := s.(Generating); ok {
			return Failed{Message: ev.Message}, nil
		}
	case Reset:
		switch s.(type) {
		case Viewing, Failed:
			return Idle{}, nil
		}
	}
	name := "apply unknown event"
	if e != nil {
		name = e.Name()
	}
	return s, &TransitionError{From: s.Status(), Event: name}
}
