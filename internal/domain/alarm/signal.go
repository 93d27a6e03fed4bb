package alarm

// Signal is a discrete event delivered to the state machine. The consequence
// of each signal depends on the current state; a state without a transition
// for the signal stays where it is.
type Signal int

// Valid signals the state machine can receive.
const (
	SignalArm Signal = iota
	SignalInstantArm
	SignalLock
	SignalInstantLock
	SignalDisarm
	SignalTimeout
	SignalTrip
)

// signalNames maps signals to their wire/config names.
var signalNames = map[Signal]string{
	SignalArm:         "arm",
	SignalInstantArm:  "instant-arm",
	SignalLock:        "lock",
	SignalInstantLock: "instant-lock",
	SignalDisarm:      "disarm",
	SignalTimeout:     "timeout",
	SignalTrip:        "trip",
}

// String returns the configuration name of the signal.
func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}

	return "unknown"
}

// ParseSignal resolves a configuration name to a Signal.
// The second return value reports whether the name is known.
func ParseSignal(name string) (Signal, bool) {
	for sig, signalName := range signalNames {
		if signalName == name {
			return sig, true
		}
	}

	return 0, false
}
