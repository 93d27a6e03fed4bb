// Package state implements persistence for the controller state.
//
// The FileRepository stores and loads the current state name as JSON on disk
// and exposes a Repository interface that the state machine depends on.
package state
