package keypad

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

// Input event constants from the Linux input subsystem.
const (
	evKey uint16 = 0x01
	evLED uint16 = 0x11

	ledNumLock uint16 = 0x00

	// eviocgrab is the EVIOCGRAB ioctl request: argument 1 grabs the device
	// for exclusive access, 0 releases it.
	eviocgrab = 0x40044590

	// eventSize is the size of struct input_event on 64-bit platforms:
	// 16 bytes of timeval plus type, code and value.
	eventSize = 24

	// keyPress is the event value for a press transition (not release or repeat).
	keyPress int32 = 1

	// deviceProbeInterval is how often the device path is polled while absent.
	deviceProbeInterval = 500 * time.Millisecond
)

// Event is a single decoded input event from the keypad device.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Device abstracts the input device the listener reads from. The real
// implementation wraps an evdev node; tests substitute a scripted fake.
type Device interface {
	// Grab takes exclusive access to the device.
	Grab() error
	// Release drops exclusive access and closes the device. Releasing an
	// already-released device is a no-op.
	Release() error
	// ReadEvents blocks until at least one event is readable and returns
	// the decoded batch.
	ReadEvents() ([]Event, error)
	// SetLED drives the num-lock indicator.
	SetLED(on bool) error
}

// evdevDevice reads raw input_event records from a /dev/input node.
type evdevDevice struct {
	file *os.File
}

// OpenDevice waits for the device node to appear, then opens it for
// event I/O. The wait is bounded only by the context.
func OpenDevice(ctx context.Context, path string) (Device, error) {
	if err := waitForPath(ctx, path); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &evdevDevice{file: file}, nil
}

// waitForPath polls until the path exists or the context is cancelled.
func waitForPath(ctx context.Context, path string) error {
	probe := backoff.WithContext(backoff.NewConstantBackOff(deviceProbeInterval), ctx)

	return backoff.Retry(func() error {
		_, err := os.Stat(path)

		return err
	}, probe)
}

// Grab takes exclusive access so keystrokes do not leak to other readers.
func (d *evdevDevice) Grab() error {
	if err := unix.IoctlSetInt(int(d.file.Fd()), eviocgrab, 1); err != nil {
		return fmt.Errorf("grab device: %w", err)
	}

	return nil
}

// Release drops the exclusive grab and closes the device node.
func (d *evdevDevice) Release() error {
	if d.file == nil {
		return nil
	}

	grabErr := unix.IoctlSetInt(int(d.file.Fd()), eviocgrab, 0)
	closeErr := d.file.Close()
	d.file = nil

	if grabErr != nil {
		return fmt.Errorf("release device: %w", grabErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close device: %w", closeErr)
	}

	return nil
}

// ReadEvents blocks on the device descriptor and decodes every complete
// input_event record in the batch.
func (d *evdevDevice) ReadEvents() ([]Event, error) {
	buf := make([]byte, eventSize*64)

	n, err := d.file.Read(buf)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, n/eventSize)
	for offset := 0; offset+eventSize <= n; offset += eventSize {
		record := buf[offset : offset+eventSize]
		events = append(events, Event{
			Type:  binary.LittleEndian.Uint16(record[16:18]),
			Code:  binary.LittleEndian.Uint16(record[18:20]),
			Value: int32(binary.LittleEndian.Uint32(record[20:24])),
		})
	}

	return events, nil
}

// SetLED writes an EV_LED event to drive the num-lock indicator.
func (d *evdevDevice) SetLED(on bool) error {
	if d.file == nil {
		return os.ErrClosed
	}

	var value uint32
	if on {
		value = 1
	}

	record := make([]byte, eventSize)
	binary.LittleEndian.PutUint16(record[16:18], evLED)
	binary.LittleEndian.PutUint16(record[18:20], ledNumLock)
	binary.LittleEndian.PutUint32(record[20:24], value)

	if _, err := d.file.Write(record); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}

	return nil
}
