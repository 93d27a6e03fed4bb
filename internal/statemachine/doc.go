// Package statemachine holds the authoritative armed/disarmed/tripped status
// of the premises and the logic to move between states.
//
// The Machine is passive: it does not run on its own goroutine waiting for
// events. Listener goroutines deliver signals through SelectState, which
// serializes callers with a mutex, so each state's entry and exit actions run
// within the signal-originating goroutine. States that must auto-escalate
// after inactivity start a Countdown on entry and cancel it on exit.
package statemachine
