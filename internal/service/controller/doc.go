// Package controller assembles and runs the alarm controller daemon.
//
// Run loads the configuration, refuses to start next to another instance,
// builds the state machine with its persistence sink and collaborator
// capabilities, registers the keypad and pipe listeners, and blocks until
// shutdown. Sensor callback builders (motion, door, video) live here as well;
// the sensors themselves are polled outside this module.
package controller
