package keypad

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
	"github.com/oshokin/alarm-controller/internal/logger"
)

// Sound effect names the listener plays as keystroke feedback.
const (
	soundNumKey    = "numKey"
	soundCtrlKey   = "ctrlKey"
	soundWrongPass = "wrongPass"
	soundBackspace = "backspace"
)

// inactivityTimeout is how long the input buffer survives without keystrokes.
const inactivityTimeout = 30 * time.Second

// volumeStep is the volume change per volume keystroke.
const volumeStep = 10

var (
	errPasswordNotPositive = errors.New("keypad password must be a positive integer")
	errDispatchRequired    = errors.New("signal dispatch function is required")
	errSoundsRequired      = errors.New("sound engine is required")
)

// Config carries the keypad listener dependencies. The listener touches the
// state machine only through the Dispatch and Disarmed functions it is given.
type Config struct {
	// DevicePath is the input device node to grab.
	DevicePath string
	// Password is the numeric keypad password, compared in decimal string form.
	Password int
	// Sounds provides keystroke feedback and volume control.
	Sounds alarm.SoundEngine
	// Dispatch delivers a signal to the state machine.
	Dispatch func(ctx context.Context, sig alarm.Signal)
	// Disarmed reports whether the machine currently sits in the disarmed state.
	Disarmed func() bool
	// Open overrides how the device is opened. Tests use it; nil means OpenDevice.
	Open func(ctx context.Context, path string) (Device, error)
}

// Listener owns an exclusive grab on a numeric keypad device and translates
// keystrokes into state machine signals. Numeral keys accumulate in a buffer
// that resets after 30 seconds of inactivity; control keys check the buffer
// against the password and dispatch the bound signal; volume keys drive the
// sound engine and the num-lock LED.
type Listener struct {
	devicePath string
	password   string

	numKeys  map[uint16]byte
	ctrlKeys map[uint16]string
	volKeys  map[uint16]string

	sounds   alarm.SoundEngine
	dispatch func(ctx context.Context, sig alarm.Signal)
	disarmed func() bool
	open     func(ctx context.Context, path string) (Device, error)

	mu         sync.Mutex
	buf        string
	resetTimer *time.Timer
	dev        Device
}

// New validates the configuration and builds the key classification tables.
// A non-positive password is a fatal configuration error.
func New(cfg Config) (*Listener, error) {
	switch {
	case cfg.Password <= 0:
		return nil, errPasswordNotPositive
	case cfg.Dispatch == nil:
		return nil, errDispatchRequired
	case cfg.Sounds == nil:
		return nil, errSoundsRequired
	}

	open := cfg.Open
	if open == nil {
		open = OpenDevice
	}

	disarmed := cfg.Disarmed
	if disarmed == nil {
		disarmed = func() bool { return false }
	}

	return &Listener{
		devicePath: cfg.DevicePath,
		password:   strconv.Itoa(cfg.Password),
		numKeys: map[uint16]byte{
			71: '7', 72: '8', 73: '9',
			75: '4', 76: '5', 77: '6',
			79: '1', 80: '2', 81: '3',
			82: '0',
		},
		ctrlKeys: map[uint16]string{
			69: "NUML", 98: "/", 55: "*", 14: "BS", 96: "ENTER",
		},
		volKeys: map[uint16]string{
			74: "-", 78: "+", 83: ".",
		},
		sounds:   cfg.Sounds,
		dispatch: cfg.Dispatch,
		disarmed: disarmed,
		open:     open,
	}, nil
}

// Start waits for the device node, grabs it exclusively, syncs the LED with
// the current volume and launches the read loop.
func (l *Listener) Start(ctx context.Context) error {
	dev, err := l.open(ctx, l.devicePath)
	if err != nil {
		return fmt.Errorf("open keypad device: %w", err)
	}

	if err := dev.Grab(); err != nil {
		_ = dev.Release()

		return fmt.Errorf("grab keypad device: %w", err)
	}

	l.mu.Lock()
	l.dev = dev
	l.mu.Unlock()

	l.updateLED(ctx)

	go l.run(ctx, dev)

	logger.Debugf(ctx, "Started keypad listener on %s", l.devicePath)

	return nil
}

// Stop releases the exclusive device grab. A release failure is logged, not
// fatal; stopping an already-stopped listener is a silent no-op.
func (l *Listener) Stop(ctx context.Context) error {
	l.stopResetTimer()

	l.mu.Lock()
	dev := l.dev
	l.dev = nil
	l.mu.Unlock()

	if dev == nil {
		return nil
	}

	if err := dev.Release(); err != nil {
		logger.Errorf(ctx, "Failed to release keypad device: %v", err)

		return nil
	}

	logger.Debugf(ctx, "Released keypad device")

	return nil
}

// run is the blocking read loop. It terminates only with the process, on a
// read failure, or once the device is released. Panics are caught at the
// goroutine boundary so a broken listener does not take the process down.
func (l *Listener) run(ctx context.Context, dev Device) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Keypad listener crashed: %v", r)
		}
	}()

	for {
		events, err := dev.ReadEvents()
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				logger.Debugf(ctx, "Keypad device closed, stopping read loop")
			} else {
				logger.Errorf(ctx, "Keypad read failed: %v", err)
			}

			return
		}

		for _, event := range events {
			if event.Type != evKey || event.Value != keyPress {
				continue
			}

			l.handleKey(ctx, event.Code)
		}
	}
}

// handleKey classifies one key press and reacts to it.
func (l *Listener) handleKey(ctx context.Context, code uint16) {
	switch {
	case l.numKeys[code] != 0:
		l.mu.Lock()
		l.buf += string(l.numKeys[code])
		l.mu.Unlock()

		l.startResetTimer()
		l.sounds.Effect(soundNumKey).Play()

	case l.ctrlKeys[code] != "":
		l.handleControlKey(ctx, l.ctrlKeys[code])

	case l.volKeys[code] != "":
		l.handleVolumeKey(ctx, l.volKeys[code])
	}
}

func (l *Listener) handleControlKey(ctx context.Context, key string) {
	switch key {
	case "ENTER":
		// Nothing to disarm; just acknowledge the keystroke.
		if l.disarmed() {
			l.sounds.Effect(soundCtrlKey).Play()

			return
		}

		l.checkPassword(ctx, alarm.SignalDisarm)

	case "NUML":
		l.checkPassword(ctx, alarm.SignalLock)

	case "/":
		l.checkPassword(ctx, alarm.SignalInstantLock)

	case "*":
		l.checkPassword(ctx, alarm.SignalArm)

	case "BS":
		l.mu.Lock()
		if l.buf != "" {
			l.buf = l.buf[:len(l.buf)-1]
		}
		empty := l.buf == ""
		l.mu.Unlock()

		if empty {
			l.stopResetTimer()
		} else {
			l.startResetTimer()
		}

		l.sounds.Effect(soundBackspace).Play()
	}
}

func (l *Listener) handleVolumeKey(ctx context.Context, key string) {
	switch key {
	case "+":
		l.sounds.ChangeVolume(volumeStep)
	case "-":
		l.sounds.ChangeVolume(-volumeStep)
	case ".":
		l.sounds.Mute()
	}

	l.sounds.Effect(soundCtrlKey).Play()
	l.updateLED(ctx)
}

// checkPassword compares the buffer against the password. An empty buffer is
// acknowledged and left untouched; a match clears the buffer and dispatches
// the signal; a mismatch clears the buffer and plays the failure sound.
func (l *Listener) checkPassword(ctx context.Context, sig alarm.Signal) {
	l.mu.Lock()
	buf := l.buf
	l.mu.Unlock()

	switch buf {
	case "":
		l.sounds.Effect(soundCtrlKey).Play()
	case l.password:
		l.ResetBuffer()
		l.dispatch(ctx, sig)
	default:
		l.ResetBuffer()
		l.sounds.Effect(soundWrongPass).Play()
	}
}

// ResetBuffer cancels the inactivity timer and clears the input buffer.
func (l *Listener) ResetBuffer() {
	l.stopResetTimer()
	l.clearBuffer()
}

// startResetTimer (re)arms the 30-second inactivity reset, cancelling any
// previous timer.
func (l *Listener) startResetTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resetTimer != nil {
		l.resetTimer.Stop()
	}

	l.resetTimer = time.AfterFunc(inactivityTimeout, l.clearBuffer)
}

func (l *Listener) stopResetTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resetTimer != nil {
		l.resetTimer.Stop()
		l.resetTimer = nil
	}
}

func (l *Listener) clearBuffer() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = ""
}

// updateLED lights the num-lock LED when the engine is effectively muted.
func (l *Listener) updateLED(ctx context.Context) {
	l.mu.Lock()
	dev := l.dev
	l.mu.Unlock()

	if dev == nil {
		return
	}

	if err := dev.SetLED(l.sounds.Volume() == 0); err != nil {
		logger.Debugf(ctx, "Failed to set keypad LED: %v", err)
	}
}
