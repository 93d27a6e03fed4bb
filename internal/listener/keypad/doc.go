// Package keypad listens on a standard numeric keypad device and translates
// keystrokes into state machine signals.
//
// Capabilities include accepting numeric input into a debounce buffer,
// arming/disarming/locking the system after a password check, and volume
// control with the num-lock LED reflecting the muted state. The listener
// holds an exclusive grab on the device for its lifetime.
package keypad
