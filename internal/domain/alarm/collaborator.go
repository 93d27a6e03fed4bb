package alarm

import (
	"context"
	"time"
)

// Collaborator is an object with an explicit lifecycle, registered with and
// owned by the state machine for the duration of a run. Start is called once
// per collaborator in registration order; Stop must be idempotent.
type Collaborator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SoundEffect is a single named sound the engine can play and stop.
type SoundEffect interface {
	Play()
	Stop()
}

// SoundEngine is the playback surface the controller drives. Implemented
// outside this module; Effect must never return nil.
type SoundEngine interface {
	// Effect returns the named sound effect.
	Effect(name string) SoundEffect
	// ChangeVolume adjusts the global volume by delta, clamped by the engine.
	ChangeVolume(delta int)
	// Mute silences the engine.
	Mute()
	// Volume reports the current effective volume.
	Volume() int
}

// Blinker is the LED blink driver surface.
type Blinker interface {
	// SetBlink turns blinking on or off.
	SetBlink(on bool)
	// SetTriangle selects a triangle (true) or square (false) waveform.
	SetTriangle(triangle bool)
	// SetCyclePeriod sets the blink cycle period.
	SetCyclePeriod(period time.Duration)
}

// AlertFunc delivers an intrusion alert. It must not block; slow delivery
// stalls signal dispatch because entry actions run under the machine lock.
type AlertFunc func()

// RecordingSink tracks the sensors currently forcing video capture to disk.
type RecordingSink interface {
	AddInitiator(pin int)
	RemoveInitiator(pin int)
}
