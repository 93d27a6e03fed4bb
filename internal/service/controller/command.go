package controller

import (
	"context"
	"fmt"

	"github.com/oshokin/alarm-controller/internal/config"
	"github.com/oshokin/alarm-controller/internal/domain/alarm"
	"github.com/oshokin/alarm-controller/internal/listener/keypad"
	"github.com/oshokin/alarm-controller/internal/listener/pipe"
	"github.com/oshokin/alarm-controller/internal/logger"
	staterepo "github.com/oshokin/alarm-controller/internal/repository/state"
	"github.com/oshokin/alarm-controller/internal/statemachine"
)

// Options controls the alarm-controller process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// StateFile overrides the persisted-state path from the config.
	StateFile string
	// LogLevel overrides the logging level from the config.
	LogLevel string
}

// Collaborators are the external engines the controller drives. Fields left
// nil fall back to inert implementations so the core can run without the
// sound, LED and alert stacks attached.
type Collaborators struct {
	Sounds  SoundEngineFactory
	Blinker BlinkerFactory
	Alert   AlertFactory
}

// SoundEngineFactory builds the sound playback engine.
type SoundEngineFactory func(ctx context.Context, volume int) (alarm.SoundEngine, error)

// BlinkerFactory builds the LED blink driver.
type BlinkerFactory func(ctx context.Context) (alarm.Blinker, error)

// AlertFactory builds the intrusion alert function.
type AlertFactory func(ctx context.Context) (alarm.AlertFunc, error)

// Run starts the alarm controller and blocks until the context is cancelled.
func Run(ctx context.Context, opts *Options) error {
	return RunWith(ctx, opts, Collaborators{})
}

// RunWith is Run with explicit collaborator factories.
func RunWith(ctx context.Context, opts *Options, collaborators Collaborators) error {
	ctx = logger.WithName(ctx, "alarm-controller")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	if level != "" {
		if parsed, ok := logger.ParseLogLevel(level); ok {
			logger.SetLevel(parsed)
		}
	}

	// Two controllers fighting over the same keypad and pipe would be worse
	// than refusing to start.
	if err := ensureSingleInstance(); err != nil {
		return err
	}

	stateFile := cfg.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	sounds, blinker, alert, err := buildCollaborators(ctx, collaborators, cfg.Volume)
	if err != nil {
		return err
	}

	var resetHardware func(ctx context.Context) error
	if cfg.USBResetDevice != "" {
		device := cfg.USBResetDevice
		resetHardware = func(ctx context.Context) error {
			return resetUSBDevice(ctx, device)
		}
	}

	machine, err := statemachine.New(ctx, statemachine.Config{
		Sounds:           sounds,
		Blinker:          blinker,
		Alert:            alert,
		Repository:       staterepo.NewFileRepository(stateFile),
		CountdownSeconds: cfg.CountdownSeconds,
		ResetHardware:    resetHardware,
	})
	if err != nil {
		return fmt.Errorf("initialise state machine: %w", err)
	}

	secretCallback, err := NewSecretCallback(machine.SelectState, cfg.SecretTable)
	if err != nil {
		return err
	}

	pipeListener, err := pipe.New(cfg.PipeName, secretCallback)
	if err != nil {
		return fmt.Errorf("initialise pipe listener: %w", err)
	}

	machine.AddManaged(pipeListener)

	keypadListener, err := keypad.New(keypad.Config{
		DevicePath: cfg.KeypadDevice,
		Password:   cfg.KeyPassword,
		Sounds:     sounds,
		Dispatch:   machine.SelectState,
		Disarmed: func() bool {
			return machine.CurrentStateID() == statemachine.StateDisarmed
		},
	})
	if err != nil {
		return fmt.Errorf("initialise keypad listener: %w", err)
	}

	machine.AddManaged(keypadListener)

	if err := machine.Start(ctx); err != nil {
		return fmt.Errorf("start state machine: %w", err)
	}

	logger.InfoKV(ctx, "Alarm controller running",
		"state", machine.CurrentStateName(),
		"pipe", pipeListener.Path(),
		"state_file", stateFile)

	<-ctx.Done()

	logger.Info(ctx, "Shutting down alarm controller")
	machine.Stop(context.WithoutCancel(ctx))

	return nil
}

// buildCollaborators resolves each factory, substituting inert defaults.
func buildCollaborators(
	ctx context.Context,
	collaborators Collaborators,
	volume int,
) (alarm.SoundEngine, alarm.Blinker, alarm.AlertFunc, error) {
	var (
		sounds alarm.SoundEngine = newNopSoundEngine(volume)
		leds   alarm.Blinker     = nopBlinker{}
		alert  alarm.AlertFunc
		err    error
	)

	if collaborators.Sounds != nil {
		if sounds, err = collaborators.Sounds(ctx, volume); err != nil {
			return nil, nil, nil, fmt.Errorf("initialise sound engine: %w", err)
		}
	}

	if collaborators.Blinker != nil {
		if leds, err = collaborators.Blinker(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("initialise blink driver: %w", err)
		}
	}

	if collaborators.Alert != nil {
		if alert, err = collaborators.Alert(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("initialise alert: %w", err)
		}
	} else {
		alert = func() {
			logger.Warn(ctx, "Intrusion detected, no alert delivery attached")
		}
	}

	return sounds, leds, alert, nil
}
