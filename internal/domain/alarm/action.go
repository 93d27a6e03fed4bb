package alarm

import "time"

// ActionKind discriminates the entry/exit side effects a state can carry.
type ActionKind int

// Side effect kinds interpreted by the state machine.
const (
	// ActionPlaySound plays a named sound effect once.
	ActionPlaySound ActionKind = iota
	// ActionBlinkSquare puts the LED into square-wave blinking.
	ActionBlinkSquare
	// ActionBlinkTriangle puts the LED into triangle-wave blinking.
	ActionBlinkTriangle
	// ActionBlinkOff turns LED blinking off.
	ActionBlinkOff
	// ActionStartCountdown starts the pending-state countdown timer.
	ActionStartCountdown
	// ActionStopCountdown cancels the pending-state countdown timer.
	ActionStopCountdown
	// ActionAlert invokes the intrusion alert function.
	ActionAlert
)

// Action is one declarative entry or exit side effect of a state.
// Keeping side effects as data keeps the state graph inspectable in tests
// instead of hiding behavior in closures.
type Action struct {
	// Kind selects the side effect.
	Kind ActionKind
	// Sound is the effect name for ActionPlaySound and the tick sound
	// for ActionStartCountdown.
	Sound string
	// Period is the blink cycle period for the blink kinds.
	Period time.Duration
}

// PlaySound returns an action playing the named sound effect.
func PlaySound(name string) Action {
	return Action{Kind: ActionPlaySound, Sound: name}
}

// BlinkSquare returns an action enabling square-wave blinking with the given cycle period.
func BlinkSquare(period time.Duration) Action {
	return Action{Kind: ActionBlinkSquare, Period: period}
}

// BlinkTriangle returns an action enabling triangle-wave blinking with the given cycle period.
func BlinkTriangle(period time.Duration) Action {
	return Action{Kind: ActionBlinkTriangle, Period: period}
}

// BlinkOff returns an action disabling LED blinking.
func BlinkOff() Action {
	return Action{Kind: ActionBlinkOff}
}

// StartCountdown returns an action starting the countdown timer with the
// given per-tick sound effect.
func StartCountdown(tickSound string) Action {
	return Action{Kind: ActionStartCountdown, Sound: tickSound}
}

// StopCountdown returns an action cancelling a running countdown timer.
func StopCountdown() Action {
	return Action{Kind: ActionStopCountdown}
}

// Alert returns an action invoking the intrusion alert function.
func Alert() Action {
	return Action{Kind: ActionAlert}
}
