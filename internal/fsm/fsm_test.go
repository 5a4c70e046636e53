package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionContinuousRoundTrip(t *testing.T) {
	s := StateIdle

	steps := []struct {
		event Event
		want  State
	}{
		{EventStart, StateStarting},
		{EventArm, StateArmed},
		{EventEngage, StateEngaged},
		{EventDispatch, StateProcessing},
		{EventSpeak, StateSpeaking},
		{EventFinish, StateIdle},
	}

	for _, step := range steps {
		next, err := Transition(s, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next, "event %s from %s", step.event, s)
		s = next
	}
}

func TestTransitionOneShotEngagesDirectly(t *testing.T) {
	next, err := Transition(StateStarting, EventEngage)
	require.NoError(t, err)
	require.Equal(t, StateEngaged, next)
}

func TestTransitionStopAndFailFromAnyStateGoIdle(t *testing.T) {
	states := []State{StateIdle, StateStarting, StateArmed, StateEngaged, StateProcessing, StateSpeaking}
	for _, state := range states {
		for _, event := range []Event{EventStop, EventFail} {
			next, err := Transition(state, event)
			require.NoError(t, err)
			require.Equal(t, StateIdle, next)
		}
	}
}

func TestTransitionSessionEnd(t *testing.T) {
	tests := []struct {
		state State
		want  State
	}{
		{StateArmed, StateArmed},
		{StateEngaged, StateIdle},
		{StateProcessing, StateProcessing},
		{StateSpeaking, StateSpeaking},
		{StateStarting, StateIdle},
		{StateIdle, StateIdle},
	}

	for _, tc := range tests {
		t.Run(string(tc.state), func(t *testing.T) {
			next, err := Transition(tc.state, EventEnd)
			require.NoError(t, err)
			require.Equal(t, tc.want, next)
		})
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle arm", state: StateIdle, event: EventArm},
		{name: "idle dispatch", state: StateIdle, event: EventDispatch},
		{name: "idle finish", state: StateIdle, event: EventFinish},
		{name: "armed dispatch", state: StateArmed, event: EventDispatch},
		{name: "engaged arm", state: StateEngaged, event: EventArm},
		{name: "speaking start", state: StateSpeaking, event: EventStart},
		{name: "speaking dispatch", state: StateSpeaking, event: EventDispatch},
		{name: "processing finish", state: StateProcessing, event: EventFinish},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
			require.Equal(t, tc.state, next)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
