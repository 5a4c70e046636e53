// Package fsm defines the voice controller state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateArmed      State = "armed"
	StateEngaged    State = "engaged"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
)

const (
	EventStart    Event = "start"
	EventArm      Event = "arm"
	EventEngage   Event = "engage"
	EventDispatch Event = "dispatch"
	EventSpeak    Event = "speak"
	EventFinish   Event = "finish"
	EventEnd      Event = "end"
	EventStop     Event = "stop"
	EventFail     Event = "fail"
)

// Transition returns the state reached by applying event to current.
func Transition(current State, event Event) (State, error) {
	if !known(current) {
		return current, fmt.Errorf("unknown state %q", current)
	}

	switch event {
	case EventStop, EventFail:
		return StateIdle, nil
	case EventSpeak:
		return StateSpeaking, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateStarting, nil
		case EventEnd:
			return StateIdle, nil
		}
	case StateStarting:
		switch event {
		case EventStart:
			return StateStarting, nil
		case EventArm:
			return StateArmed, nil
		case EventEngage:
			return StateEngaged, nil
		case EventEnd:
			return StateIdle, nil
		}
	case StateArmed:
		switch event {
		case EventStart:
			return StateStarting, nil
		case EventEngage:
			return StateEngaged, nil
		case EventEnd:
			// the session is gone but continuous mode still owns the armed state
			return StateArmed, nil
		}
	case StateEngaged:
		switch event {
		case EventStart:
			return StateStarting, nil
		case EventDispatch:
			return StateProcessing, nil
		case EventEnd:
			return StateIdle, nil
		}
	case StateProcessing:
		switch event {
		case EventStart:
			return StateStarting, nil
		case EventDispatch, EventEnd:
			return StateProcessing, nil
		}
	case StateSpeaking:
		switch event {
		case EventFinish:
			return StateIdle, nil
		case EventEnd:
			return StateSpeaking, nil
		}
	}

	return current, invalidTransition(current, event)
}

func known(state State) bool {
	switch state {
	case StateIdle, StateStarting, StateArmed, StateEngaged, StateProcessing, StateSpeaking:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
