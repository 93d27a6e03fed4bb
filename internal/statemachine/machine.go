package statemachine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
	"github.com/oshokin/alarm-controller/internal/logger"
	staterepo "github.com/oshokin/alarm-controller/internal/repository/state"
)

// Config carries the capabilities and settings the machine is built with.
// Sound, LED, alert and persistence are injected so the transition engine
// stays a narrow component.
type Config struct {
	// Sounds is the playback engine for state and feedback sounds.
	Sounds alarm.SoundEngine
	// Blinker is the LED blink driver.
	Blinker alarm.Blinker
	// Alert is invoked on intrusion entry. Optional.
	Alert alarm.AlertFunc
	// Repository persists the current state name. The initial state is read
	// from it at construction.
	Repository staterepo.Repository
	// CountdownSeconds is the duration of the pending-state countdowns.
	// Zero means DefaultCountdownSeconds.
	CountdownSeconds int
	// ResetHardware, when set, runs once at Start before any collaborator
	// starts. A failure aborts startup.
	ResetHardware func(ctx context.Context) error
}

// DefaultCountdownSeconds is the countdown length used when none is configured.
const DefaultCountdownSeconds = 30

var (
	errNoSoundEngine = errors.New("sound engine is required")
	errNoBlinker     = errors.New("blink driver is required")
	errNoRepository  = errors.New("state repository is required")
)

// Machine owns the state graph and the current state. All mutation goes
// through SelectState, which serializes concurrent callers with a mutex and
// runs entry/exit actions while the lock is held. Listeners deliver signals
// from their own goroutines; the machine itself never blocks waiting for
// events.
type Machine struct {
	mu      sync.Mutex
	current *State

	states map[StateID]*State

	managed []alarm.Collaborator

	sounds  alarm.SoundEngine
	blinker alarm.Blinker
	alert   alarm.AlertFunc
	repo    staterepo.Repository

	countdown         *Countdown
	countdownSeconds  int
	countdownInterval time.Duration

	resetHardware func(ctx context.Context) error
	started       bool
}

// New builds the full state graph, loads the initial state from the
// repository and returns a machine ready to Start. The graph is complete and
// read-only before first use.
func New(ctx context.Context, cfg Config) (*Machine, error) {
	switch {
	case cfg.Sounds == nil:
		return nil, errNoSoundEngine
	case cfg.Blinker == nil:
		return nil, errNoBlinker
	case cfg.Repository == nil:
		return nil, errNoRepository
	}

	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultCountdownSeconds
	}

	m := &Machine{
		sounds:            cfg.Sounds,
		blinker:           cfg.Blinker,
		alert:             cfg.Alert,
		repo:              cfg.Repository,
		countdownSeconds:  cfg.CountdownSeconds,
		countdownInterval: time.Second,
		resetHardware:     cfg.ResetHardware,
	}

	m.buildGraph()

	if err := m.loadInitialState(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// buildGraph constructs the seven states and their transition table.
func (m *Machine) buildGraph() {
	disarmed := newState(StateDisarmed, "disarmed", "disarmed",
		[]alarm.Action{alarm.BlinkOff()}, nil)
	armedCountdown := newState(StateArmedCountdown, "armedCountdown", "armedCountdown",
		[]alarm.Action{alarm.BlinkSquare(time.Second), alarm.StartCountdown("armedCountdown")},
		[]alarm.Action{alarm.StopCountdown()})
	armed := newState(StateArmed, "armed", "armed",
		[]alarm.Action{alarm.BlinkTriangle(2 * time.Second)}, nil)
	lockedCountdown := newState(StateLockedCountdown, "lockedCountdown", "lockedCountdown",
		[]alarm.Action{alarm.BlinkSquare(time.Second), alarm.StartCountdown("lockedCountdown")},
		[]alarm.Action{alarm.StopCountdown()})
	locked := newState(StateLocked, "locked", "locked",
		[]alarm.Action{alarm.BlinkSquare(2 * time.Second)}, nil)
	trippedCountdown := newState(StateTrippedCountdown, "trippedCountdown", "trippedCountdown",
		[]alarm.Action{alarm.BlinkSquare(time.Second), alarm.StartCountdown("trippedCountdown")},
		[]alarm.Action{alarm.StopCountdown()})
	tripped := newState(StateTripped, "tripped", "tripped",
		[]alarm.Action{alarm.BlinkTriangle(time.Second), alarm.Alert()}, nil)

	disarmed.addTransition(alarm.SignalArm, armedCountdown)
	disarmed.addTransition(alarm.SignalInstantArm, armed)
	disarmed.addTransition(alarm.SignalLock, lockedCountdown)
	disarmed.addTransition(alarm.SignalInstantLock, locked)

	armedCountdown.addTransition(alarm.SignalDisarm, disarmed)
	armedCountdown.addTransition(alarm.SignalTimeout, armed)
	armedCountdown.addTransition(alarm.SignalInstantArm, armed)
	armedCountdown.addTransition(alarm.SignalLock, lockedCountdown)
	armedCountdown.addTransition(alarm.SignalInstantLock, locked)

	armed.addTransition(alarm.SignalDisarm, disarmed)
	armed.addTransition(alarm.SignalTrip, trippedCountdown)
	armed.addTransition(alarm.SignalLock, lockedCountdown)
	armed.addTransition(alarm.SignalInstantLock, locked)

	lockedCountdown.addTransition(alarm.SignalDisarm, disarmed)
	lockedCountdown.addTransition(alarm.SignalTimeout, locked)
	lockedCountdown.addTransition(alarm.SignalInstantLock, locked)
	lockedCountdown.addTransition(alarm.SignalArm, armedCountdown)
	lockedCountdown.addTransition(alarm.SignalInstantArm, armed)

	locked.addTransition(alarm.SignalDisarm, disarmed)
	locked.addTransition(alarm.SignalTrip, trippedCountdown)
	locked.addTransition(alarm.SignalArm, armedCountdown)
	locked.addTransition(alarm.SignalInstantArm, armed)

	trippedCountdown.addTransition(alarm.SignalDisarm, disarmed)
	trippedCountdown.addTransition(alarm.SignalTimeout, tripped)
	trippedCountdown.addTransition(alarm.SignalArm, armed)
	trippedCountdown.addTransition(alarm.SignalInstantArm, armed)
	trippedCountdown.addTransition(alarm.SignalLock, locked)
	trippedCountdown.addTransition(alarm.SignalInstantLock, locked)

	tripped.addTransition(alarm.SignalDisarm, disarmed)
	tripped.addTransition(alarm.SignalArm, armed)
	tripped.addTransition(alarm.SignalInstantArm, armed)
	tripped.addTransition(alarm.SignalLock, locked)
	tripped.addTransition(alarm.SignalInstantLock, locked)

	m.states = map[StateID]*State{
		StateDisarmed:         disarmed,
		StateArmedCountdown:   armedCountdown,
		StateArmed:            armed,
		StateLockedCountdown:  lockedCountdown,
		StateLocked:           locked,
		StateTrippedCountdown: trippedCountdown,
		StateTripped:          tripped,
	}
}

// loadInitialState restores the current state from the repository.
// A missing record means a fresh install and defaults to disarmed.
func (m *Machine) loadInitialState(ctx context.Context) error {
	record, err := m.repo.Load(ctx)

	switch {
	case errors.Is(err, staterepo.ErrNotFound):
		m.current = m.states[StateDisarmed]

		return nil
	case err != nil:
		return fmt.Errorf("load state: %w", err)
	}

	for _, s := range m.states {
		if s.name == record.State {
			m.current = s

			return nil
		}
	}

	return fmt.Errorf("persisted state %q is not a known state", record.State)
}

// AddManaged registers a collaborator whose lifecycle the machine owns.
// Registration happens only after the collaborator constructed successfully,
// so Stop is never called on a half-built object. Must be called before Start.
func (m *Machine) AddManaged(c alarm.Collaborator) {
	m.managed = append(m.managed, c)
}

// Start performs the one-time hardware reset, starts all managed
// collaborators in registration order and runs the initial state's entry
// actions. A collaborator failing to start stops the ones already running
// and aborts.
func (m *Machine) Start(ctx context.Context) error {
	if m.resetHardware != nil {
		if err := m.resetHardware(ctx); err != nil {
			return fmt.Errorf("reset hardware: %w", err)
		}
	}

	for i, c := range m.managed {
		if err := c.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if stopErr := m.managed[j].Stop(ctx); stopErr != nil {
					logger.Errorf(ctx, "Failed to stop collaborator during aborted start: %v", stopErr)
				}
			}

			return fmt.Errorf("start collaborator: %w", err)
		}
	}

	m.mu.Lock()
	m.started = true
	m.enterLocked(ctx, m.current)
	m.mu.Unlock()

	return nil
}

// Stop cancels any running countdown and stops all managed collaborators.
// It is idempotent; collaborator stop failures are logged, not propagated.
func (m *Machine) Stop(ctx context.Context) {
	m.mu.Lock()
	if m.countdown != nil {
		m.countdown.Stop()
		m.countdown = nil
	}

	wasStarted := m.started
	m.started = false
	m.mu.Unlock()

	// Collaborators run only between Start and the first Stop.
	if !wasStarted {
		return
	}

	for _, c := range m.managed {
		if err := c.Stop(ctx); err != nil {
			logger.Errorf(ctx, "Failed to stop collaborator: %v", err)
		}
	}
}

// SelectState delivers a signal to the machine. It is the sole mutation path
// and is safe to call from any number of goroutines: calls are fully
// serialized, and each transition's exit and entry actions run to completion
// before the next call proceeds. The resulting state name is persisted after
// every call, self-loops included.
//
// Entry/exit actions run while the lock is held, so a slow action stalls all
// other signal delivery until it completes.
func (m *Machine) SelectState(ctx context.Context, sig alarm.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current.next(sig)
	if next != m.current {
		m.exitLocked(ctx, m.current)
		m.current = next
		m.enterLocked(ctx, next)
	}

	m.persistLocked(ctx)
}

// CurrentStateName returns the display name of the current state.
func (m *Machine) CurrentStateName() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current.name
}

// CurrentStateID returns the identity of the current state.
func (m *Machine) CurrentStateID() StateID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current.id
}

// InState reports whether the current state is one of the given states.
func (m *Machine) InState(ids ...StateID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if m.current.id == id {
			return true
		}
	}

	return false
}

func (m *Machine) enterLocked(ctx context.Context, s *State) {
	logger.Infof(ctx, "entering %s", s.name)

	if s.sound != "" {
		m.sounds.Effect(s.sound).Play()
	}

	for _, action := range s.entry {
		m.applyLocked(ctx, action)
	}
}

func (m *Machine) exitLocked(ctx context.Context, s *State) {
	logger.Infof(ctx, "exiting %s", s.name)

	if s.sound != "" {
		m.sounds.Effect(s.sound).Stop()
	}

	for _, action := range s.exit {
		m.applyLocked(ctx, action)
	}
}

// applyLocked interprets one action descriptor against the injected
// capabilities. Called with the machine lock held.
func (m *Machine) applyLocked(ctx context.Context, action alarm.Action) {
	switch action.Kind {
	case alarm.ActionPlaySound:
		m.sounds.Effect(action.Sound).Play()
	case alarm.ActionBlinkSquare:
		m.blinker.SetBlink(true)
		m.blinker.SetTriangle(false)
		m.blinker.SetCyclePeriod(action.Period)
	case alarm.ActionBlinkTriangle:
		m.blinker.SetBlink(true)
		m.blinker.SetTriangle(true)
		m.blinker.SetCyclePeriod(action.Period)
	case alarm.ActionBlinkOff:
		m.blinker.SetBlink(false)
	case alarm.ActionStartCountdown:
		m.startCountdownLocked(ctx, action.Sound)
	case alarm.ActionStopCountdown:
		if m.countdown != nil {
			m.countdown.Stop()
			m.countdown = nil
		}
	case alarm.ActionAlert:
		if m.alert != nil {
			m.alert()
		}
	}
}

// startCountdownLocked starts the timeout escalation countdown. The terminal
// action re-enters SelectState from the countdown goroutine, never while the
// lock is held.
func (m *Machine) startCountdownLocked(ctx context.Context, tickSound string) {
	if m.countdown != nil {
		m.countdown.Stop()
	}

	var tick func()
	if tickSound != "" {
		effect := m.sounds.Effect(tickSound)
		tick = effect.Play
	}

	m.countdown = newCountdown(m.countdownSeconds, m.countdownInterval, func() {
		m.SelectState(ctx, alarm.SignalTimeout)
	}, tick)
}

func (m *Machine) persistLocked(ctx context.Context) {
	record := &staterepo.Record{
		State:     m.current.name,
		Timestamp: time.Now(),
	}

	if err := m.repo.Save(ctx, record); err != nil {
		logger.Errorf(ctx, "Failed to persist state %q: %v", m.current.name, err)
	}
}
