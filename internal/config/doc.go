// Package config defines the alarm controller settings and provides helpers
// to load, validate and save them in YAML format.
//
// The Config type holds the keypad password, the pipe secret table and the
// paths of the state file and input device. Validation fills defaults and
// rejects settings the controller must not start with, such as a missing
// keypad password or a secret bound to an unknown signal.
package config
