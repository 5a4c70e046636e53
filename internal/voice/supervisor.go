package voice

import (
	"time"

	"github.com/rbright/vista/internal/fsm"
)

// handleError applies the recognition error policy.
func (c *Controller) handleError(ev RecognitionEvent) {
	kind := ev.Error
	if !c.s.stopping {
		c.s.starting = false
	}

	switch {
	case kind == ErrorAborted:
		c.logDebug("recognition aborted", "detail", ev.Detail)
	case c.s.stopping:
		c.logDebug("recognition error after stop", "kind", kind, "detail", ev.Detail)
	case kind == ErrorNoSpeech && c.s.continuous:
		c.logDebug("no speech in continuous session")
	case c.s.continuous && !kind.fatal():
		c.s.failures++
		c.logWarn("recognition error; awaiting restart", "kind", kind, "detail", ev.Detail)
	default:
		c.fail(&RecognitionError{Kind: kind, Detail: ev.Detail})
	}
}

// handleEnd closes the session bookkeeping and supervises continuous mode.
func (c *Controller) handleEnd() {
	if c.s.stopping {
		c.s.stopping = false
		c.s.live = false
		c.s.listening = false
		c.s.starting = false
		if c.s.startQueued {
			c.s.startQueued = false
			c.beginStart()
		}
		return
	}
	if !c.s.live {
		c.logDebug("end event ignored", "reason", "no live session")
		return
	}

	if c.s.starting {
		c.s.starting = false
		c.s.failures++
	}
	c.s.live = false
	c.s.listening = false

	if c.s.continuous && c.s.state == fsm.StateEngaged {
		c.logDebug("wake phrase expired without a command")
		c.s.hotword = false
	}
	c.transition(fsm.EventEnd)
	c.supervise()
}

// supervise schedules one debounced restart of continuous listening.
func (c *Controller) supervise() {
	switch {
	case !c.s.continuous:
		return
	case c.s.state == fsm.StateSpeaking || c.s.utterance != 0:
		return
	case c.s.hotword:
		c.logDebug("restart skipped", "reason", "command in progress")
		return
	case c.startInFlight():
		return
	}

	delay := c.restartDelay()
	c.s.restart.cancel()
	c.s.restart = c.schedule(delay, func() {
		c.s.restart = nil
		if !c.s.continuous || c.s.hotword || c.s.utterance != 0 || c.s.live || c.startInFlight() {
			return
		}
		c.logDebug("restarting continuous recognition", "failures", c.s.failures)
		c.requestStart(ModeContinuous)
	})
}

// restartDelay doubles the debounce for each consecutive failed session.
func (c *Controller) restartDelay() time.Duration {
	delay := c.cfg.RestartDelay
	for i := 0; i < c.s.failures; i++ {
		if c.cfg.MaxRestartDelay > 0 && delay >= c.cfg.MaxRestartDelay {
			break
		}
		delay *= 2
	}
	if c.cfg.MaxRestartDelay > 0 && delay > c.cfg.MaxRestartDelay {
		delay = c.cfg.MaxRestartDelay
	}
	return delay
}

// fail resets every flag and converges on idle.
func (c *Controller) fail(err error) {
	c.logError("recognition failed", "error", err.Error())
	c.cancelTimers()
	c.s.continuous = false
	c.s.hotword = false
	c.s.starting = false
	c.s.startQueued = false
	c.s.resumeAfterPlayback = false
	c.setErr(err)
	c.transition(fsm.EventFail)
	c.onError(err)
}
