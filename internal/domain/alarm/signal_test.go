package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignalNamesRoundTrip(t *testing.T) {
	t.Parallel()

	signals := []Signal{
		SignalArm, SignalInstantArm, SignalLock, SignalInstantLock,
		SignalDisarm, SignalTimeout, SignalTrip,
	}

	for _, sig := range signals {
		parsed, ok := ParseSignal(sig.String())
		require.Truef(t, ok, "signal %d", sig)
		require.Equal(t, sig, parsed)
	}
}

func TestParseSignalUnknown(t *testing.T) {
	t.Parallel()

	_, ok := ParseSignal("self-destruct")
	require.False(t, ok)

	_, ok = ParseSignal("")
	require.False(t, ok)

	require.Equal(t, "unknown", Signal(99).String())
}
