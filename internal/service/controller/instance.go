package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ps "github.com/mitchellh/go-ps"
)

// errAlreadyRunning indicates a second controller instance was detected.
var errAlreadyRunning = errors.New("another alarm-controller instance is already running")

// ensureSingleInstance scans the process table for another process with the
// same executable name. The keypad grab and the FIFO are exclusive resources,
// so a second instance could only misbehave.
func ensureSingleInstance() error {
	processes, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("scan processes: %w", err)
	}

	var (
		self = os.Getpid()
		name = filepath.Base(os.Args[0])
	)

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if process.Executable() == name {
			return errAlreadyRunning
		}
	}

	return nil
}
