package voice

import "github.com/rbright/vista/internal/fsm"

// Status is the externally visible controller status.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusListening  Status = "listening"
	StatusProcessing Status = "processing"
	StatusSpeaking   Status = "speaking"
)

// statusFor maps a controller state to its status; starting has none and
// keeps whatever was last reported.
func statusFor(state fsm.State) (Status, bool) {
	switch state {
	case fsm.StateIdle, fsm.StateArmed:
		return StatusIdle, true
	case fsm.StateEngaged:
		return StatusListening, true
	case fsm.StateProcessing:
		return StatusProcessing, true
	case fsm.StateSpeaking:
		return StatusSpeaking, true
	default:
		return "", false
	}
}

// transition applies event and reports the resulting status once per change.
func (c *Controller) transition(event fsm.Event) bool {
	next, err := fsm.Transition(c.s.state, event)
	if err != nil {
		c.logDebug("transition ignored", "error", err.Error())
		return false
	}
	if next != c.s.state {
		c.logDebug("state changed", "from", c.s.state, "to", next, "event", event)
	}
	c.s.state = next

	status, ok := statusFor(next)
	changed := ok && status != c.s.status
	if changed {
		c.s.status = status
	}
	c.publish()

	if changed {
		c.onStatus(status)
	}
	return true
}
