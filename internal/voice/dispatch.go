package voice

import (
	"strings"

	"github.com/rbright/vista/internal/fsm"
)

// handleResult runs the hotword gate and transcript dispatcher over one result event.
func (c *Controller) handleResult(ev RecognitionEvent) {
	if c.s.stopping || !c.s.listening {
		c.logDebug("result ignored", "reason", "session not listening")
		return
	}
	if c.s.state == fsm.StateSpeaking || c.s.utterance != 0 {
		c.logDebug("result ignored", "reason", "playback active")
		return
	}

	text, final := ev.utterance()
	if text == "" {
		return
	}

	if c.s.mode == ModeOneShot {
		if !final || c.s.dispatched {
			return
		}
		c.s.dispatched = true
		c.dispatch(strings.TrimSpace(text))
		return
	}

	if !c.s.hotword {
		if c.gate.Matches(text) {
			c.s.hotword = true
			c.logInfo("wake phrase detected")
			c.transition(fsm.EventEngage)
		}
		return
	}

	if !final || c.gate.Matches(text) {
		return
	}
	command := c.gate.Strip(text)
	if command == "" {
		return
	}
	c.dispatch(command)
}

// dispatch moves to processing and hands the command to the caller.
func (c *Controller) dispatch(command string) {
	if !c.transition(fsm.EventDispatch) {
		return
	}
	c.logInfo("transcript dispatched", "mode", c.s.mode.String(), "length", len(command))
	c.onTranscript(command)
}

// resumeTurn closes a processing turn that produced nothing to speak.
func (c *Controller) resumeTurn() {
	if c.s.state != fsm.StateProcessing || c.s.utterance != 0 {
		return
	}
	c.s.hotword = false
	if c.s.continuous {
		c.requestStart(ModeContinuous)
		return
	}
	c.requestStop()
}
