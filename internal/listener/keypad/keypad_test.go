package keypad

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
)

// Keycodes used by the test keystroke scripts.
const (
	code1     uint16 = 79
	code2     uint16 = 80
	code3     uint16 = 81
	code4     uint16 = 75
	code9     uint16 = 73
	codeEnter uint16 = 96
	codeStar  uint16 = 55
	codeSlash uint16 = 98
	codeNumL  uint16 = 69
	codeBS    uint16 = 14
	codeVolUp uint16 = 78
	codeVolDn uint16 = 74
	codeMute  uint16 = 83
)

// fakeDevice feeds scripted event batches to the listener.
type fakeDevice struct {
	mu       sync.Mutex
	events   chan []Event
	grabs    int
	releases int
	led      []bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{events: make(chan []Event, 16)}
}

func (d *fakeDevice) Grab() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.grabs++

	return nil
}

func (d *fakeDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releases++

	return nil
}

func (d *fakeDevice) ReadEvents() ([]Event, error) {
	events, ok := <-d.events
	if !ok {
		return nil, os.ErrClosed
	}

	return events, nil
}

func (d *fakeDevice) SetLED(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.led = append(d.led, on)

	return nil
}

func (d *fakeDevice) releaseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.releases
}

func (d *fakeDevice) lastLED() (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.led) == 0 {
		return false, false
	}

	return d.led[len(d.led)-1], true
}

// press scripts one key press event (a paired release event rides along so
// the loop has non-press events to skip).
func (d *fakeDevice) press(codes ...uint16) {
	for _, code := range codes {
		d.events <- []Event{
			{Type: evKey, Code: code, Value: keyPress},
			{Type: evKey, Code: code, Value: 0},
		}
	}
}

// countingEngine tracks effect plays and volume changes.
type countingEngine struct {
	mu     sync.Mutex
	plays  map[string]int
	volume int
}

func newCountingEngine(volume int) *countingEngine {
	return &countingEngine{plays: make(map[string]int), volume: volume}
}

func (e *countingEngine) Effect(name string) alarm.SoundEffect {
	return countingEffect{engine: e, name: name}
}

func (e *countingEngine) ChangeVolume(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume += delta
	if e.volume < 0 {
		e.volume = 0
	}
}

func (e *countingEngine) Mute() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = 0
}

func (e *countingEngine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.volume
}

func (e *countingEngine) playCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.plays[name]
}

type countingEffect struct {
	engine *countingEngine
	name   string
}

func (e countingEffect) Play() {
	e.engine.mu.Lock()
	defer e.engine.mu.Unlock()

	e.engine.plays[e.name]++
}

func (e countingEffect) Stop() {}

type keypadHarness struct {
	listener *Listener
	device   *fakeDevice
	sounds   *countingEngine
	signals  chan alarm.Signal
	disarmed bool
	mu       sync.Mutex
}

func (h *keypadHarness) setDisarmed(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.disarmed = v
}

func (h *keypadHarness) buffer() string {
	h.listener.mu.Lock()
	defer h.listener.mu.Unlock()

	return h.listener.buf
}

func newHarness(t *testing.T) *keypadHarness {
	t.Helper()

	h := &keypadHarness{
		device:  newFakeDevice(),
		sounds:  newCountingEngine(50),
		signals: make(chan alarm.Signal, 16),
	}

	listener, err := New(Config{
		DevicePath: "/dev/input/fake",
		Password:   1234,
		Sounds:     h.sounds,
		Dispatch: func(_ context.Context, sig alarm.Signal) {
			h.signals <- sig
		},
		Disarmed: func() bool {
			h.mu.Lock()
			defer h.mu.Unlock()

			return h.disarmed
		},
		Open: func(context.Context, string) (Device, error) {
			return h.device, nil
		},
	})
	require.NoError(t, err)

	h.listener = listener

	require.NoError(t, listener.Start(context.Background()))
	t.Cleanup(func() {
		_ = listener.Stop(context.Background())
		close(h.device.events)
	})

	return h
}

func (h *keypadHarness) expectSignal(t *testing.T, want alarm.Signal) {
	t.Helper()

	select {
	case got := <-h.signals:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for signal %v", want)
	}
}

func (h *keypadHarness) expectNoSignal(t *testing.T) {
	t.Helper()

	select {
	case got := <-h.signals:
		t.Fatalf("unexpected signal %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	sounds := newCountingEngine(50)
	dispatch := func(context.Context, alarm.Signal) {}

	_, err := New(Config{Password: 0, Sounds: sounds, Dispatch: dispatch})
	require.ErrorIs(t, err, errPasswordNotPositive)

	_, err = New(Config{Password: -5, Sounds: sounds, Dispatch: dispatch})
	require.ErrorIs(t, err, errPasswordNotPositive)

	_, err = New(Config{Password: 1234, Sounds: sounds})
	require.ErrorIs(t, err, errDispatchRequired)

	_, err = New(Config{Password: 1234, Dispatch: dispatch})
	require.ErrorIs(t, err, errSoundsRequired)
}

func TestCorrectPasswordDisarms(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.device.press(code1, code2, code3, code4, codeEnter)

	h.expectSignal(t, alarm.SignalDisarm)
	require.Empty(t, h.buffer())
	require.Equal(t, 4, h.sounds.playCount(soundNumKey))
	require.Zero(t, h.sounds.playCount(soundWrongPass))
}

func TestWrongPasswordPlaysFailureSound(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.device.press(code9, code9, code9, code9, codeEnter)

	require.Eventually(t, func() bool {
		return h.sounds.playCount(soundWrongPass) == 1
	}, time.Second, time.Millisecond)

	h.expectNoSignal(t)
	require.Empty(t, h.buffer())
}

func TestEmptyBufferEnterOnlyBeeps(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.device.press(codeEnter)

	require.Eventually(t, func() bool {
		return h.sounds.playCount(soundCtrlKey) == 1
	}, time.Second, time.Millisecond)

	h.expectNoSignal(t)
}

func TestEnterIgnoredWhileDisarmed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.setDisarmed(true)

	h.device.press(code1, code2, codeEnter)

	require.Eventually(t, func() bool {
		return h.sounds.playCount(soundCtrlKey) == 1
	}, time.Second, time.Millisecond)

	h.expectNoSignal(t)
	// Disarmed enter leaves the buffer for a later arm request.
	require.Equal(t, "12", h.buffer())
}

func TestArmKeys(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.device.press(code1, code2, code3, code4, codeStar)
	h.expectSignal(t, alarm.SignalArm)

	h.device.press(code1, code2, code3, code4, codeNumL)
	h.expectSignal(t, alarm.SignalLock)

	h.device.press(code1, code2, code3, code4, codeSlash)
	h.expectSignal(t, alarm.SignalInstantLock)
}

func TestBackspaceEditsBuffer(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.device.press(code1, code2, codeBS)

	require.Eventually(t, func() bool {
		return h.buffer() == "1"
	}, time.Second, time.Millisecond)

	h.device.press(codeBS, codeBS)

	require.Eventually(t, func() bool {
		return h.sounds.playCount(soundBackspace) == 3
	}, time.Second, time.Millisecond)

	require.Empty(t, h.buffer())

	// Deleting the last character cancels the inactivity timer.
	h.listener.mu.Lock()
	timer := h.listener.resetTimer
	h.listener.mu.Unlock()
	require.Nil(t, timer)
}

func TestVolumeKeysDriveEngineAndLED(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.device.press(codeVolUp)

	require.Eventually(t, func() bool {
		return h.sounds.Volume() == 60
	}, time.Second, time.Millisecond)

	on, ok := h.device.lastLED()
	require.True(t, ok)
	require.False(t, on)

	h.device.press(codeMute)

	require.Eventually(t, func() bool {
		return h.sounds.Volume() == 0
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		on, ok := h.device.lastLED()

		return ok && on
	}, time.Second, time.Millisecond)

	h.device.press(codeVolDn)

	require.Eventually(t, func() bool {
		return h.sounds.playCount(soundCtrlKey) == 3
	}, time.Second, time.Millisecond)
	require.Zero(t, h.sounds.Volume())
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	require.NoError(t, h.listener.Stop(context.Background()))
	require.Equal(t, 1, h.device.releaseCount())

	require.NoError(t, h.listener.Stop(context.Background()))
	require.Equal(t, 1, h.device.releaseCount())
}
