// Package indicator reflects controller status on the desktop and plays
// short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/vista/internal/audio"
	"github.com/rbright/vista/internal/config"
	"github.com/rbright/vista/internal/hypr"
	"github.com/rbright/vista/internal/voice"
)

// Indicator is the companion-facing status surface.
type Indicator interface {
	ShowStatus(context.Context, voice.Status)
	ShowError(context.Context, string)
	CueCancel(context.Context)
	Hide(context.Context)
}

// Notifier routes status through Hyprland or desktop DBus notifications
// based on config backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	player   audio.Player
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	status                voice.Status
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cues                  sync.WaitGroup
}

// NewNotifier creates an indicator from config. A nil player plays cues through Pulse.
func NewNotifier(cfg config.IndicatorConfig, player audio.Player, logger *slog.Logger) *Notifier {
	if player == nil {
		player = audio.PulsePlayer{}
	}
	return &Notifier{
		cfg:      cfg,
		player:   player,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		status:   voice.StatusIdle,
	}
}

type surface struct {
	icon  int
	color string
	text  string
}

func (n *Notifier) surfaceFor(status voice.Status) (surface, bool) {
	switch status {
	case voice.StatusListening:
		return surface{icon: 1, color: "rgb(89b4fa)", text: n.messages.listening}, true
	case voice.StatusProcessing:
		return surface{icon: 1, color: "rgb(cba6f7)", text: n.messages.thinking}, true
	case voice.StatusSpeaking:
		return surface{icon: 5, color: "rgb(a6e3a1)", text: n.messages.speaking}, true
	default:
		return surface{}, false
	}
}

// ShowStatus renders status. Entering listening plays the wake cue; idle hides
// the surface.
func (n *Notifier) ShowStatus(ctx context.Context, status voice.Status) {
	n.mu.Lock()
	previous := n.status
	n.status = status
	n.mu.Unlock()

	if status == voice.StatusListening && previous != voice.StatusListening {
		n.playCue(ctx, cueWake)
	}

	view, visible := n.surfaceFor(status)
	if !visible {
		n.Hide(ctx)
		return
	}
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, view.icon, 300000, view.color, view.text)
	})
}

// ShowError displays an error-state indicator message and the error cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(ctx, cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 3, timeout, "rgb(f38ba8)", text)
	})
}

// CueCancel emits the cancel cue after an explicit stop.
func (n *Notifier) CueCancel(ctx context.Context) {
	n.playCue(ctx, cueCancel)
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues have played.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.notifyDesktop(ctx, timeoutMS, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "vista-indicator"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(ctx context.Context, kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()

		cueCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := emitCue(cueCtx, n.player, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
