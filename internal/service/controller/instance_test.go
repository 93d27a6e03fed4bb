package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureSingleInstance(t *testing.T) {
	t.Parallel()

	// The test binary name is unique per package, so no sibling should match.
	require.NoError(t, ensureSingleInstance())
}
