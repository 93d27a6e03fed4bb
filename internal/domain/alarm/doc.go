// Package alarm contains core domain types for the alarm controller.
//
// It defines the Signal event set fed into the state machine, the declarative
// Action descriptors states carry as entry/exit side effects, and the
// capability contracts (sound engine, blink driver, alert, recording sink)
// implemented by external collaborators.
package alarm
