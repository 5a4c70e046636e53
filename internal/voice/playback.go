package voice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/vista/internal/fsm"
)

// speak supersedes any utterance, suspends recognition, and submits text.
func (c *Controller) speak(text string, onComplete func()) {
	if !c.supported {
		c.logWarn("speak ignored", "error", ErrUnsupported.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.logDebug("speak ignored", "reason", "empty text")
		return
	}

	if c.s.utterance != 0 {
		c.cancelPlayback()
	}

	c.s.restart.cancel()
	c.s.restart = nil
	c.s.resume.cancel()
	c.s.resume = nil
	if c.s.starting || c.s.pendingStart != nil || c.s.startQueued {
		c.s.pendingStart.cancel()
		c.s.pendingStart = nil
		c.s.startQueued = false
		c.s.resumeAfterPlayback = true
	}
	if c.s.live {
		c.suspend("playback")
	}

	c.s.nextUtterance++
	id := c.s.nextUtterance
	c.s.utterance = id
	c.s.onComplete = onComplete

	utterance := Utterance{
		ID:       id,
		Text:     text,
		Language: c.cfg.Language,
		Voice:    c.s.speech.Voice,
		Rate:     c.s.speech.Rate,
		Pitch:    c.s.speech.Pitch,
		Volume:   c.s.speech.Volume,
	}
	c.logInfo("utterance submitted", "utterance", id, "length", len(text), "voice", utterance.Voice)
	if err := c.synthesizer.Speak(utterance); err != nil {
		c.finishPlayback(id, fmt.Errorf("submit utterance: %w", err))
	}
}

// cancelPlayback drops the pending utterance; its completion callback never runs.
func (c *Controller) cancelPlayback() {
	if err := c.synthesizer.Cancel(); err != nil {
		c.logDebug("cancel playback failed", "error", err.Error())
	}
	c.logDebug("utterance superseded", "utterance", c.s.utterance)
	c.s.utterance = 0
	c.s.onComplete = nil
}

func (c *Controller) handleSynthesis(ev SynthesisEvent) {
	if ev.UtteranceID == 0 || ev.UtteranceID != c.s.utterance {
		c.logDebug("synthesis event ignored", "utterance", ev.UtteranceID, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case SynthesisStart:
		c.transition(fsm.EventSpeak)
	case SynthesisEnd:
		c.finishPlayback(ev.UtteranceID, nil)
	case SynthesisError:
		err := ev.Err
		if err == nil {
			err = errors.New("synthesis failed")
		}
		c.finishPlayback(ev.UtteranceID, err)
	}
}

// finishPlayback completes the turn and hands continuous listening back.
func (c *Controller) finishPlayback(id uint64, err error) {
	if id != c.s.utterance {
		return
	}
	if err != nil {
		c.logWarn("synthesis failed", "utterance", id, "error", err.Error())
	}

	done := c.s.onComplete
	c.s.utterance = 0
	c.s.onComplete = nil
	c.s.hotword = false

	if c.s.state == fsm.StateSpeaking {
		c.transition(fsm.EventFinish)
	} else {
		c.transition(fsm.EventFail)
	}
	if done != nil {
		done()
	}

	if !c.s.continuous && !c.s.resumeAfterPlayback {
		return
	}
	mode := c.s.mode
	c.s.resumeAfterPlayback = false
	c.s.resume.cancel()
	c.s.resume = c.schedule(c.cfg.ResumeDelay, func() {
		c.s.resume = nil
		if c.s.utterance != 0 || c.startInFlight() {
			return
		}
		c.requestStart(mode)
	})
}
