package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/vista/internal/ipc"
)

// Handle maps daemon IPC commands onto controller operations. Operations are
// asynchronous; the response carries the state at the time of the request.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	command := strings.TrimSpace(req.Command)
	switch command {
	case "status":
		return c.respond("")
	case "listen", "wake", "say":
		if !c.supported {
			return c.respondErr(ErrUnsupported.Error())
		}
	case "stop":
	default:
		return c.respondErr(fmt.Sprintf("unknown command %q", command))
	}

	switch command {
	case "listen":
		c.StartListening()
		return c.respond("listening requested")
	case "wake":
		c.StartContinuousListening()
		return c.respond("wake listening requested")
	case "say":
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return c.respondErr("say requires text")
		}
		c.Speak(text, nil)
		return c.respond("speech requested")
	default:
		c.StopListening()
		return c.respond("stop requested")
	}
}

func (c *Controller) respond(message string) ipc.Response {
	return ipc.Response{
		OK:      true,
		State:   string(c.State()),
		Status:  string(c.Status()),
		Message: message,
	}
}

func (c *Controller) respondErr(message string) ipc.Response {
	resp := c.respond("")
	resp.OK = false
	resp.Error = message
	return resp
}
