// Package pipe creates a named pipe in the temp directory and listens for
// line-oriented messages on it.
//
// It is primarily meant as a receiver for ssh sessions to echo secrets that
// trigger state machine signals. The FIFO node is owned by the listener:
// created if absent, replaced if the path holds a non-pipe node, and removed
// on stop.
package pipe
