package controller

import (
	"context"
	"time"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
	"github.com/oshokin/alarm-controller/internal/logger"
	"github.com/oshokin/alarm-controller/internal/statemachine"
)

// activeSensorStates are the states in which sensor reports matter enough to
// log at info level. Membership uses state identities, never names.
var activeSensorStates = []statemachine.StateID{
	statemachine.StateArmed,
	statemachine.StateTrippedCountdown,
	statemachine.StateTripped,
}

// activeDoorStates additionally treat the locked state as active.
var activeDoorStates = []statemachine.StateID{
	statemachine.StateArmed,
	statemachine.StateTrippedCountdown,
	statemachine.StateTripped,
	statemachine.StateLocked,
}

// recordingPollInterval is how often a video action rechecks its sensor pin.
const recordingPollInterval = 100 * time.Millisecond

// MotionAction returns the callback a motion sensor invokes on detection.
// Motion in the armed state trips the alarm.
func MotionAction(machine *statemachine.Machine) func(ctx context.Context, location string) {
	return func(ctx context.Context, location string) {
		if machine.InState(activeSensorStates...) {
			logger.Infof(ctx, "detected motion: %s", location)
		} else {
			logger.Debugf(ctx, "detected motion: %s", location)
		}

		if machine.CurrentStateID() == statemachine.StateArmed {
			machine.SelectState(ctx, alarm.SignalTrip)
		}
	}
}

// DoorAction returns the callback a door sensor invokes on open/close.
// Opening the door while armed or locked trips the alarm.
func DoorAction(machine *statemachine.Machine, sounds alarm.SoundEngine) func(ctx context.Context, closed bool) {
	return func(ctx context.Context, closed bool) {
		sounds.Effect("door").Play()

		entry := "door opened"
		if closed {
			entry = "door closed"
		}

		if machine.InState(activeDoorStates...) {
			logger.Info(ctx, entry)
		} else {
			logger.Debug(ctx, entry)
		}

		if !closed && machine.InState(statemachine.StateArmed, statemachine.StateLocked) {
			machine.SelectState(ctx, alarm.SignalTrip)
		}
	}
}

// VideoAction returns a motion callback that additionally keeps a recording
// initiator registered while the sensor pin stays high and the system remains
// in an active-sensor state.
func VideoAction(
	machine *statemachine.Machine,
	sink alarm.RecordingSink,
	pin int,
	pinHigh func(pin int) bool,
) func(ctx context.Context, location string) {
	motion := MotionAction(machine)

	return func(ctx context.Context, location string) {
		motion(ctx, location)

		if !machine.InState(activeSensorStates...) {
			return
		}

		sink.AddInitiator(pin)
		defer sink.RemoveInitiator(pin)

		for pinHigh(pin) && machine.InState(activeSensorStates...) {
			time.Sleep(recordingPollInterval)
		}
	}
}
