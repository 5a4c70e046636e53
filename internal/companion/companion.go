// Package companion connects controller callbacks to the chat backend and the
// status indicator.
package companion

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/vista/internal/chat"
	"github.com/rbright/vista/internal/indicator"
	"github.com/rbright/vista/internal/ipc"
	"github.com/rbright/vista/internal/voice"
)

const chatErrorText = "Assistant unavailable"

// Controller is the subset of voice.Controller driven by replies.
type Controller interface {
	Speak(text string, onComplete func())
	Resume()
}

// Chatter sends one command to the conversational backend.
type Chatter interface {
	Send(ctx context.Context, message string) (chat.Reply, error)
}

// Companion answers dispatched transcripts and mirrors controller status.
type Companion struct {
	ctx       context.Context
	chat      Chatter
	indicator indicator.Indicator
	logger    *slog.Logger

	mu     sync.Mutex
	ctrl   Controller
	turn   uint64
	cancel context.CancelFunc
	turns  sync.WaitGroup
}

// New creates a companion whose chat turns live no longer than ctx.
func New(ctx context.Context, chatter Chatter, ind indicator.Indicator, logger *slog.Logger) *Companion {
	return &Companion{ctx: ctx, chat: chatter, indicator: ind, logger: logger}
}

// Bind attaches the controller replies are spoken through.
func (c *Companion) Bind(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrl = ctrl
}

// HandleTranscript starts a chat turn for command, superseding any turn still
// waiting on the backend.
func (c *Companion) HandleTranscript(command string) {
	command = strings.TrimSpace(command)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.turn++
	turn := c.turn
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	ctrl := c.ctrl
	c.mu.Unlock()

	if ctrl == nil {
		cancel()
		c.logWarn("transcript dropped", "reason", "controller not bound")
		return
	}

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		defer cancel()
		c.answer(ctx, ctrl, turn, command)
	}()
}

func (c *Companion) answer(ctx context.Context, ctrl Controller, turn uint64, command string) {
	reply, err := c.chat.Send(ctx, command)
	if !c.current(turn) || ctx.Err() != nil {
		c.logDebug("chat reply discarded", "turn", turn)
		return
	}
	if err != nil {
		c.logWarn("chat request failed", "error", err.Error())
		if c.indicator != nil {
			c.indicator.ShowError(ctx, chatErrorText)
		}
		ctrl.Resume()
		return
	}

	c.logInfo("chat reply received", "turn", turn, "emotion", reply.Emotion, "length", len(reply.Text))
	ctrl.Speak(reply.Text, nil)
}

// HandleStatus mirrors controller status on the indicator.
func (c *Companion) HandleStatus(status voice.Status) {
	if c.indicator == nil {
		return
	}
	c.indicator.ShowStatus(c.ctx, status)
}

// HandleError surfaces recognition and start failures.
func (c *Companion) HandleError(err error) {
	if err == nil {
		return
	}
	c.logWarn("voice error", "error", err.Error())
	if c.indicator != nil {
		c.indicator.ShowError(c.ctx, "")
	}
}

// Wrap intercepts stop requests so a pending chat turn is dropped and the
// cancel cue plays before the request reaches next.
func (c *Companion) Wrap(next ipc.Handler) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
		if strings.TrimSpace(req.Command) == "stop" {
			c.CancelTurn()
			if c.indicator != nil {
				c.indicator.CueCancel(ctx)
			}
		}
		return next.Handle(ctx, req)
	})
}

// CancelTurn abandons the chat turn waiting on the backend, if any.
func (c *Companion) CancelTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Wait blocks until running chat turns return.
func (c *Companion) Wait() {
	c.turns.Wait()
}

func (c *Companion) current(turn uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn == turn
}

func (c *Companion) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Companion) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Companion) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
