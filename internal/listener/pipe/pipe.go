package pipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"

	"github.com/oshokin/alarm-controller/internal/logger"
)

// pipeMode is the permission set of the FIFO node. World-writable on purpose:
// any local session may echo a secret into the pipe.
const pipeMode = 0o777

// reopenDelay is the pause before retrying after a failed pipe open.
const reopenDelay = time.Second

// Callback receives one line read from the pipe, stripped of its trailing
// newline. Typically it looks the message up in a secret table and injects
// the bound signal.
type Callback func(ctx context.Context, msg string)

var errCallbackRequired = errors.New("pipe callback is required")

// Listener creates a FIFO under the temp directory and reads newline-
// terminated messages from it. The pipe is reopened after every message so
// sequential independent writers each get their own session.
type Listener struct {
	path     string
	callback Callback
	stopped  atomic.Bool
}

// New ensures a FIFO with the configured permissions exists at the pipe path,
// repairing or replacing whatever currently occupies it.
func New(name string, callback Callback) (*Listener, error) {
	if callback == nil {
		return nil, errCallbackRequired
	}

	path := filepath.Join(os.TempDir(), name)
	if err := ensureFIFO(path); err != nil {
		return nil, err
	}

	return &Listener{
		path:     path,
		callback: callback,
	}, nil
}

// ensureFIFO creates the FIFO, replaces a node of the wrong type, or fixes
// the permissions of an existing FIFO.
func ensureFIFO(path string) error {
	info, err := os.Stat(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return makeFIFO(path)
	case err != nil:
		return fmt.Errorf("stat pipe: %w", err)
	case info.Mode()&os.ModeNamedPipe == 0:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove non-pipe node: %w", err)
		}

		return makeFIFO(path)
	case info.Mode().Perm() != pipeMode:
		if err := os.Chmod(path, pipeMode); err != nil {
			return fmt.Errorf("fix pipe permissions: %w", err)
		}
	}

	return nil
}

func makeFIFO(path string) error {
	if err := unix.Mkfifo(path, pipeMode); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}

	// The process umask may have cleared bits at creation.
	if err := os.Chmod(path, pipeMode); err != nil {
		return fmt.Errorf("chmod pipe: %w", err)
	}

	return nil
}

// Path returns the filesystem location of the FIFO.
func (l *Listener) Path() string {
	return l.path
}

// Start launches the read loop goroutine.
func (l *Listener) Start(ctx context.Context) error {
	go l.run(ctx)

	logger.Debugf(ctx, "Started pipe listener at path %s", l.path)

	return nil
}

// Stop removes the pipe node. A node that is already gone is tolerated.
// The read loop notices the stop flag the next time its blocking open or
// read returns.
func (l *Listener) Stop(ctx context.Context) error {
	l.stopped.Store(true)

	if err := os.Remove(l.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("remove pipe: %w", err)
	}

	logger.Debugf(ctx, "Cleaned up pipe listener at path %s", l.path)

	return nil
}

// run opens the pipe, reads a single line, dispatches it and loops. Opening
// blocks until a writer connects; reading blocks until a full line (or the
// writer's end of stream) arrives.
func (l *Listener) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Pipe listener crashed: %v", r)
		}
	}()

	retry := backoff.WithContext(backoff.NewConstantBackOff(reopenDelay), ctx)

	for {
		if l.stopped.Load() || ctx.Err() != nil {
			return
		}

		file, err := os.OpenFile(l.path, os.O_RDONLY, 0)
		if err != nil {
			if l.stopped.Load() {
				return
			}

			logger.Errorf(ctx, "Failed to open pipe: %v", err)

			delay := retry.NextBackOff()
			if delay == backoff.Stop {
				return
			}

			time.Sleep(delay)

			continue
		}

		line, err := bufio.NewReader(file).ReadString('\n')
		_ = file.Close()

		if line == "" && err != nil {
			// Writer connected and left without sending anything.
			continue
		}

		l.callback(ctx, strings.TrimSuffix(line, "\n"))
	}
}
