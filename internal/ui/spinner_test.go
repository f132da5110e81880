package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleSpinner_StopIsIdempotent(t *testing.T) {
	sp := NewWaitingSpinner("waiting")
	sp.Start()

	sp.UpdateMessage("still waiting")
	sp.Stop()

	require.NotPanics(t, sp.Stop)
	require.NotPanics(t, func() { sp.Success("done") })
	require.Equal(t, "still waiting", sp.message)
}
