package statemachine

import (
	"github.com/oshokin/alarm-controller/internal/domain/alarm"
)

// StateID identifies a state node. Membership checks and comparisons use IDs,
// never display names: two nodes could in principle share a name, and the name
// exists only for logging and persistence.
type StateID int

// The seven states of the alarm status graph.
const (
	StateDisarmed StateID = iota
	StateArmedCountdown
	StateArmed
	StateLockedCountdown
	StateLocked
	StateTrippedCountdown
	StateTripped
)

// State is one discrete status of the system. Each state has ordered entry
// and exit actions, optionally a sound that plays while the state is active,
// and a partial transition map linking it to other states. States reference
// each other freely; the machine owns the whole graph and never mutates it
// after construction.
type State struct {
	id    StateID
	name  string
	sound string

	entry []alarm.Action
	exit  []alarm.Action

	transitions map[alarm.Signal]*State
}

// newState creates an unlinked state node.
func newState(id StateID, name, sound string, entry, exit []alarm.Action) *State {
	return &State{
		id:          id,
		name:        name,
		sound:       sound,
		entry:       entry,
		exit:        exit,
		transitions: make(map[alarm.Signal]*State),
	}
}

// ID returns the opaque identity of the state.
func (s *State) ID() StateID {
	return s.id
}

// Name returns the display/persistence name of the state.
func (s *State) Name() string {
	return s.name
}

// next returns the state the signal leads to. A signal without a transition
// is an explicit self-loop, not an error.
func (s *State) next(sig alarm.Signal) *State {
	if target, ok := s.transitions[sig]; ok {
		return target
	}

	return s
}

// addTransition links the signal to a target state. Called only during graph
// construction; the map is read-only afterwards.
func (s *State) addTransition(sig alarm.Signal, target *State) {
	s.transitions[sig] = target
}
