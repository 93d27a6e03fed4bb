package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
)

func TestNewSecretCallbackDispatches(t *testing.T) {
	t.Parallel()

	var got []alarm.Signal

	callback, err := NewSecretCallback(
		func(_ context.Context, sig alarm.Signal) {
			got = append(got, sig)
		},
		map[string]string{
			"open sesame": "disarm",
			"lights out":  "instant-lock",
		},
	)
	require.NoError(t, err)

	ctx := context.Background()

	callback(ctx, "open sesame")
	callback(ctx, "not a secret")
	callback(ctx, "lights out")

	require.Equal(t, []alarm.Signal{alarm.SignalDisarm, alarm.SignalInstantLock}, got)
}

func TestNewSecretCallbackRejectsUnknownSignal(t *testing.T) {
	t.Parallel()

	_, err := NewSecretCallback(
		func(context.Context, alarm.Signal) {},
		map[string]string{"open sesame": "self-destruct"},
	)
	require.Error(t, err)
}

func TestNewSecretCallbackEmptyTable(t *testing.T) {
	t.Parallel()

	dispatched := false

	callback, err := NewSecretCallback(
		func(context.Context, alarm.Signal) { dispatched = true },
		nil,
	)
	require.NoError(t, err)

	callback(context.Background(), "anything")
	require.False(t, dispatched)
}
