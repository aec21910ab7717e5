// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type state string
type event string

const (
	stateNew      state = "new"
	stateRunning  state = "running"
	statePaused   state = "paused"
	stateFailed   state = "failed"
	stateDBFailed state = "dbFailure"
)

const (
	eventStart   event = "start"
	eventPause   event = "pause"
	eventResume  event = "resume"
	eventDBError event = "dbError"
)

func newTestMachine(t *testing.T) *Machine[state, event] {
	t.Helper()
	m, err := New(stateNew, []Transition[state, event]{
		{From: stateNew, Event: eventStart, To: stateRunning},
		{From: stateRunning, Event: eventPause, To: statePaused},
		{From: statePaused, Event: eventResume, To: stateRunning},
		{From: state(Wildcard), Event: eventDBError, To: stateDBFailed},
	})
	require.NoError(t, err)
	return m
}

func TestMachine_FireValidTransition(t *testing.T) {
	m := newTestMachine(t)
	got, err := m.Fire(context.Background(), eventStart)
	require.NoError(t, err)
	require.Equal(t, stateRunning, got)
	require.Equal(t, stateRunning, m.State())
}

func TestMachine_FireInvalidTransition(t *testing.T) {
	m := newTestMachine(t)
	_, err := m.Fire(context.Background(), eventPause)
	require.Error(t, err)
	require.Equal(t, stateNew, m.State())
}

func TestMachine_WildcardMatchesFromAnyState(t *testing.T) {
	m := newTestMachine(t)
	_, err := m.Fire(context.Background(), eventStart)
	require.NoError(t, err)

	got, err := m.Fire(context.Background(), eventDBError)
	require.NoError(t, err)
	require.Equal(t, stateDBFailed, got)
}

func TestMachine_GuardRejectsTransition(t *testing.T) {
	guardErr := errors.New("guard rejected")
	m, err := New(stateNew, []Transition[state, event]{
		{
			From:  stateNew,
			Event: eventStart,
			To:    stateRunning,
			Guard: func(context.Context, state, event) error { return guardErr },
		},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eventStart)
	require.ErrorIs(t, err, guardErr)
	require.Equal(t, stateNew, m.State())
}

func TestMachine_ActionRunsBeforeCommit(t *testing.T) {
	var seenFrom, seenTo state
	m, err := New(stateNew, []Transition[state, event]{
		{
			From:  stateNew,
			Event: eventStart,
			To:    stateRunning,
			Action: func(_ context.Context, from, to state, _ event) error {
				seenFrom, seenTo = from, to
				return nil
			},
		},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eventStart)
	require.NoError(t, err)
	require.Equal(t, stateNew, seenFrom)
	require.Equal(t, stateRunning, seenTo)
}

func TestNew_RejectsDuplicateTransition(t *testing.T) {
	_, err := New(stateNew, []Transition[state, event]{
		{From: stateNew, Event: eventStart, To: stateRunning},
		{From: stateNew, Event: eventStart, To: statePaused},
	})
	require.Error(t, err)
}

func TestNew_RejectsDuplicateWildcardTransition(t *testing.T) {
	_, err := New(stateNew, []Transition[state, event]{
		{From: state(Wildcard), Event: eventDBError, To: stateDBFailed},
		{From: state(Wildcard), Event: eventDBError, To: stateFailed},
	})
	require.Error(t, err)
}
