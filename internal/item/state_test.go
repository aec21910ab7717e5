// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package item

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_CanTransitionTo(t *testing.T) {
	cases := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"new to metadataLoaded", StateNew, StateMetadataLoaded, true},
		{"new to inProgress skips metadata", StateNew, StateInProgress, false},
		{"metadataLoaded to inProgress", StateMetadataLoaded, StateInProgress, true},
		{"inProgress to paused", StateInProgress, StatePaused, true},
		{"inProgress to interrupted", StateInProgress, StateInterrupted, true},
		{"inProgress to completed", StateInProgress, StateCompleted, true},
		{"paused to inProgress", StatePaused, StateInProgress, true},
		{"paused to completed direct", StatePaused, StateCompleted, false},
		{"interrupted to inProgress", StateInterrupted, StateInProgress, true},
		{"interrupted to paused", StateInterrupted, StatePaused, true},
		{"any non-terminal to removed", StateInProgress, StateRemoved, true},
		{"any non-terminal to failed", StatePaused, StateFailed, true},
		{"any non-terminal to dbFailure", StateNew, StateDBFailure, true},
		{"terminal state cannot transition", StateCompleted, StateInProgress, false},
		{"terminal failed cannot re-fail", StateFailed, StateFailed, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestState_IsTerminal(t *testing.T) {
	require.True(t, StateCompleted.IsTerminal())
	require.True(t, StateRemoved.IsTerminal())
	require.True(t, StateFailed.IsTerminal())
	require.False(t, StateDBFailure.IsTerminal())
	require.False(t, StateInProgress.IsTerminal())
}

func TestState_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(StateInProgress)
	require.NoError(t, err)
	require.Equal(t, `"inProgress"`, string(data))

	var s State
	require.NoError(t, json.Unmarshal(data, &s))
	require.Equal(t, StateInProgress, s)
}

func TestState_UnmarshalRejectsUnknown(t *testing.T) {
	var s State
	err := json.Unmarshal([]byte(`"bogus"`), &s)
	require.Error(t, err)
}

func TestParseState(t *testing.T) {
	s, err := ParseState("paused")
	require.NoError(t, err)
	require.Equal(t, StatePaused, s)

	_, err = ParseState("nope")
	require.Error(t, err)
}
