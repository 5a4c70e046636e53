// Package voice coordinates speech recognition, wake-phrase gating, and
// speech playback for one hands-free conversation loop.
//
// Every handler runs on the goroutine executing Run. Public operations enqueue
// work and return immediately, so callbacks may call back into the controller.
package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/vista/internal/fsm"
)

// SpeechConfig is the delivery applied to every utterance.
type SpeechConfig struct {
	Voice  string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Config tunes gating and timing.
type Config struct {
	WakePhrase      string
	Language        string
	InterimResults  bool
	SettleDelay     time.Duration
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration
	ResumeDelay     time.Duration
	Speech          SpeechConfig
}

// DefaultConfig returns the baseline timing and delivery.
func DefaultConfig() Config {
	return Config{
		WakePhrase:      "hey vista",
		Language:        "en-US",
		InterimResults:  true,
		SettleDelay:     300 * time.Millisecond,
		RestartDelay:    300 * time.Millisecond,
		MaxRestartDelay: 30 * time.Second,
		ResumeDelay:     500 * time.Millisecond,
		Speech: SpeechConfig{
			Rate:   0.9,
			Pitch:  1.0,
			Volume: 0.8,
		},
	}
}

// Options wires a Controller. Recognizer and Synthesizer may be nil, in which
// case the controller reports unsupported and every operation is a no-op.
type Options struct {
	Config      Config
	Logger      *slog.Logger
	Recognizer  Recognizer
	Synthesizer Synthesizer
	Scheduler   Scheduler

	OnStatus     func(Status)
	OnTranscript func(string)
	OnError      func(error)
}

// session holds every flag owned by the loop goroutine.
type session struct {
	state  fsm.State
	status Status
	mode   Mode
	err    error

	continuous bool
	hotword    bool
	dispatched bool

	starting  bool
	live      bool
	listening bool
	stopping  bool

	pendingStart *task
	startQueued  bool
	restart      *task
	resume       *task
	failures     int

	resumeAfterPlayback bool
	utterance           uint64
	nextUtterance       uint64
	onComplete          func()
	speech              SpeechConfig
}

type snapshot struct {
	state  fsm.State
	status Status
	err    error
}

// Controller is the voice interaction controller.
type Controller struct {
	cfg         Config
	logger      *slog.Logger
	recognizer  Recognizer
	synthesizer Synthesizer
	scheduler   Scheduler
	gate        hotwordGate
	supported   bool

	onStatus     func(Status)
	onTranscript func(string)
	onError      func(error)

	s session

	queueMu sync.Mutex
	queue   []func()
	wake    chan struct{}

	snapMu sync.RWMutex
	snap   snapshot
}

// New constructs a controller with safe default fallbacks.
func New(opts Options) *Controller {
	cfg := opts.Config
	if cfg.WakePhrase == "" {
		cfg.WakePhrase = DefaultConfig().WakePhrase
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = SystemScheduler{}
	}

	c := &Controller{
		cfg:          cfg,
		logger:       opts.Logger,
		recognizer:   opts.Recognizer,
		synthesizer:  opts.Synthesizer,
		scheduler:    scheduler,
		gate:         newHotwordGate(cfg.WakePhrase),
		supported:    opts.Recognizer != nil && opts.Synthesizer != nil,
		onStatus:     opts.OnStatus,
		onTranscript: opts.OnTranscript,
		onError:      opts.OnError,
		wake:         make(chan struct{}, 1),
	}
	if c.onStatus == nil {
		c.onStatus = func(Status) {}
	}
	if c.onTranscript == nil {
		c.onTranscript = func(string) {}
	}
	if c.onError == nil {
		c.onError = func(error) {}
	}

	c.s.state = fsm.StateIdle
	c.s.status = StatusIdle
	c.s.speech = cfg.Speech
	if !c.supported {
		c.s.err = ErrUnsupported
	}
	c.publish()
	return c
}

// StartListening captures one command and dispatches its first final transcript.
func (c *Controller) StartListening() {
	c.enqueue(func() { c.requestStart(ModeOneShot) })
}

// StartContinuousListening listens for the wake phrase until StopListening.
func (c *Controller) StartContinuousListening() {
	c.enqueue(func() { c.requestStart(ModeContinuous) })
}

// StopListening leaves continuous mode, stops recognition and cancels playback.
func (c *Controller) StopListening() {
	c.enqueue(c.requestStop)
}

// Resume abandons the current command turn without a reply. Continuous mode
// re-arms; a one-shot turn returns to idle.
func (c *Controller) Resume() {
	c.enqueue(c.resumeTurn)
}

// Speak plays text, replacing any utterance in progress. onComplete runs on
// the loop goroutine once playback ends or fails; it is dropped if the
// utterance is superseded.
func (c *Controller) Speak(text string, onComplete func()) {
	c.enqueue(func() { c.speak(text, onComplete) })
}

// UpdateSpeech changes the delivery of future utterances.
func (c *Controller) UpdateSpeech(speech SpeechConfig) {
	c.enqueue(func() {
		c.s.speech = speech
		c.logInfo("speech delivery updated", "voice", speech.Voice, "rate", speech.Rate, "pitch", speech.Pitch, "volume", speech.Volume)
	})
}

// IsSupported reports whether both recognition and synthesis are wired.
func (c *Controller) IsSupported() bool {
	return c.supported
}

// State returns the current controller state snapshot.
func (c *Controller) State() fsm.State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap.state
}

// Status returns the last reported status.
func (c *Controller) Status() Status {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap.status
}

// Err returns the last surfaced error, cleared when a session starts.
func (c *Controller) Err() error {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap.err
}

// Run owns the controller until ctx is cancelled, then stops recognition and
// playback and returns.
func (c *Controller) Run(ctx context.Context) {
	var recognitions <-chan RecognitionEvent
	var syntheses <-chan SynthesisEvent
	if c.supported {
		recognitions = c.recognizer.Events()
		syntheses = c.synthesizer.Events()
	}

	for {
		c.drain()

		select {
		case <-ctx.Done():
			c.drain()
			c.shutdown()
			return
		case <-c.wake:
		case ev, ok := <-recognitions:
			if !ok {
				recognitions = nil
				continue
			}
			c.handleRecognition(ev)
		case ev, ok := <-syntheses:
			if !ok {
				syntheses = nil
				continue
			}
			c.handleSynthesis(ev)
		}
	}
}

func (c *Controller) handleRecognition(ev RecognitionEvent) {
	switch ev.Kind {
	case RecognitionEventStart:
		c.handleStart()
	case RecognitionEventResult:
		c.handleResult(ev)
	case RecognitionEventError:
		c.handleError(ev)
	case RecognitionEventEnd:
		c.handleEnd()
	default:
		c.logDebug("recognition event ignored", "kind", ev.Kind)
	}
}

func (c *Controller) shutdown() {
	c.cancelTimers()
	if c.supported {
		if c.s.live && !c.s.stopping {
			if err := c.recognizer.Stop(); err != nil && !IsBenign(err) {
				c.logWarn("stop recognition on shutdown failed", "error", err.Error())
			}
		}
		if c.s.utterance != 0 {
			_ = c.synthesizer.Cancel()
		}
	}
	c.s.continuous = false
	c.s.utterance = 0
	c.s.onComplete = nil
	c.transition(fsm.EventStop)
}

// enqueue appends fn to the loop queue; it never blocks.
func (c *Controller) enqueue(fn func()) {
	c.queueMu.Lock()
	c.queue = append(c.queue, fn)
	c.queueMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// drain runs queued work in order, including work queued while draining.
func (c *Controller) drain() {
	for {
		c.queueMu.Lock()
		if len(c.queue) == 0 {
			c.queueMu.Unlock()
			return
		}
		fn := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.queueMu.Unlock()

		fn()
	}
}

func (c *Controller) setErr(err error) {
	c.s.err = err
	c.publish()
}

func (c *Controller) publish() {
	c.snapMu.Lock()
	c.snap = snapshot{state: c.s.state, status: c.s.status, err: c.s.err}
	c.snapMu.Unlock()
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}

func (c *Controller) logError(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, args...)
}
