package controller

import (
	"sync"
	"time"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
)

// maxVolume caps the inert engine's volume scale.
const maxVolume = 100

// nopSoundEngine satisfies alarm.SoundEngine when no audio backend is wired.
// It tracks volume so the keypad's volume keys and LED still behave.
type nopSoundEngine struct {
	mu     sync.Mutex
	volume int
}

func newNopSoundEngine(volume int) *nopSoundEngine {
	if volume < 0 {
		volume = 0
	}

	if volume > maxVolume {
		volume = maxVolume
	}

	return &nopSoundEngine{volume: volume}
}

func (e *nopSoundEngine) Effect(string) alarm.SoundEffect {
	return nopEffect{}
}

func (e *nopSoundEngine) ChangeVolume(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume += delta
	if e.volume < 0 {
		e.volume = 0
	}

	if e.volume > maxVolume {
		e.volume = maxVolume
	}
}

func (e *nopSoundEngine) Mute() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = 0
}

func (e *nopSoundEngine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.volume
}

// nopEffect is a sound that never plays.
type nopEffect struct{}

func (nopEffect) Play() {}
func (nopEffect) Stop() {}

// nopBlinker satisfies alarm.Blinker when no LED driver is wired.
type nopBlinker struct{}

func (nopBlinker) SetBlink(bool)               {}
func (nopBlinker) SetTriangle(bool)            {}
func (nopBlinker) SetCyclePeriod(time.Duration) {}
