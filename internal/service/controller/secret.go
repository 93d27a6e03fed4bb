package controller

import (
	"context"
	"fmt"

	"github.com/oshokin/alarm-controller/internal/domain/alarm"
	"github.com/oshokin/alarm-controller/internal/listener/pipe"
	"github.com/oshokin/alarm-controller/internal/logger"
)

// NewSecretCallback builds the pipe dispatch callback from the configured
// secret table. A recognized secret injects its bound signal; an unrecognized
// one is logged at low severity without echoing the attempted content.
func NewSecretCallback(
	dispatch func(ctx context.Context, sig alarm.Signal),
	table map[string]string,
) (pipe.Callback, error) {
	actions := make(map[string]alarm.Signal, len(table))

	for secret, signalName := range table {
		sig, ok := alarm.ParseSignal(signalName)
		if !ok {
			return nil, fmt.Errorf("secret table entry maps to unknown signal %q", signalName)
		}

		actions[secret] = sig
	}

	return func(ctx context.Context, msg string) {
		sig, ok := actions[msg]
		if !ok {
			logger.Debug(ctx, "Pipe listener received invalid secret")

			return
		}

		dispatch(ctx, sig)
		logger.Debugf(ctx, "Pipe listener dispatched signal %s", sig)
	}, nil
}
