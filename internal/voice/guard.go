package voice

import (
	"errors"
	"fmt"

	"github.com/rbright/vista/internal/fsm"
)

// requestStart starts a recognition session in mode, stopping and settling
// first when a session is already live.
func (c *Controller) requestStart(mode Mode) {
	if !c.supported {
		c.logWarn("start ignored", "mode", mode.String(), "error", ErrUnsupported.Error())
		return
	}

	c.s.restart.cancel()
	c.s.restart = nil
	c.s.resume.cancel()
	c.s.resume = nil

	sameMode := c.s.mode == mode
	c.s.mode = mode
	c.s.continuous = mode == ModeContinuous

	if c.s.utterance != 0 {
		c.s.resumeAfterPlayback = true
		c.logDebug("start deferred until playback ends", "mode", mode.String())
		return
	}
	if c.s.pendingStart != nil || c.s.startQueued || (c.s.starting && sameMode) {
		c.logDebug("start collapsed into pending request", "mode", mode.String())
		return
	}

	c.transition(fsm.EventStart)
	if c.s.live {
		c.suspend("restart")
		c.s.pendingStart = c.schedule(c.cfg.SettleDelay, c.settleElapsed)
		return
	}
	c.beginStart()
}

// settleElapsed issues the start deferred by requestStart.
func (c *Controller) settleElapsed() {
	c.s.pendingStart = nil
	if c.s.state != fsm.StateStarting {
		return
	}
	if c.s.stopping {
		c.s.startQueued = true
		return
	}
	c.beginStart()
}

// beginStart configures the recognizer and calls its start.
func (c *Controller) beginStart() {
	c.s.starting = true
	c.s.dispatched = false
	c.recognizer.Configure(RecognitionConfig{
		Continuous:     c.s.mode == ModeContinuous,
		InterimResults: c.s.mode == ModeContinuous && c.cfg.InterimResults,
		Language:       c.cfg.Language,
	})

	err := c.recognizer.Start()
	switch {
	case err == nil:
		c.s.live = true
	case errors.Is(err, ErrAlreadyStarted):
		c.logDebug("recognizer already started; restarting", "error", err.Error())
		c.s.live = true
		c.suspend("already started")
		c.s.startQueued = c.s.stopping
		if !c.s.startQueued {
			c.transition(fsm.EventFail)
		}
	default:
		c.s.starting = false
		c.fail(fmt.Errorf("start recognition: %w", err))
	}
}

// suspend stops the live recognizer session; its end event is then expected
// and not supervised.
func (c *Controller) suspend(reason string) {
	c.s.listening = false
	c.s.starting = false
	if c.s.stopping {
		return
	}

	err := c.recognizer.Stop()
	switch {
	case err == nil:
		c.s.live = true
		c.s.stopping = true
	case errors.Is(err, ErrNotStarted):
		c.logDebug("recognizer already stopped", "reason", reason)
		c.s.live = false
	default:
		c.logWarn("stop recognition failed", "reason", reason, "error", err.Error())
		c.s.live = false
	}
}

// handleStart confirms a pending start.
func (c *Controller) handleStart() {
	if c.s.stopping || !c.s.live || !c.s.starting {
		c.logDebug("start event ignored")
		return
	}

	c.s.starting = false
	c.s.listening = true
	c.s.hotword = false
	c.s.failures = 0
	c.setErr(nil)

	if c.s.mode == ModeContinuous {
		c.transition(fsm.EventArm)
		return
	}
	c.transition(fsm.EventEngage)
}

// requestStop ends listening and continuous mode from any state.
func (c *Controller) requestStop() {
	c.cancelTimers()
	c.s.startQueued = false
	c.s.resumeAfterPlayback = false
	c.s.continuous = false
	c.s.hotword = false
	c.s.starting = false

	if c.supported {
		c.suspend("stop")
		if c.s.utterance != 0 {
			c.cancelPlayback()
		}
	}
	c.transition(fsm.EventStop)
}

// startInFlight reports a start issued or scheduled but not yet confirmed.
func (c *Controller) startInFlight() bool {
	return c.s.starting || c.s.pendingStart != nil || c.s.startQueued
}

func (c *Controller) cancelTimers() {
	c.s.pendingStart.cancel()
	c.s.pendingStart = nil
	c.s.restart.cancel()
	c.s.restart = nil
	c.s.resume.cancel()
	c.s.resume = nil
}
