// Package asr streams microphone audio to a Deepgram-compatible listen
// websocket and reports recognition events to the voice controller.
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rbright/vista/internal/audio"
	"github.com/rbright/vista/internal/version"
	"github.com/rbright/vista/internal/voice"
)

const sampleRate = audio.CaptureSampleRate

// Config controls the listen socket and session limits.
type Config struct {
	URL         string
	Model       string
	APIKey      string
	SmartFormat bool

	// NoSpeechTimeout ends a session that hears nothing. Zero disables it.
	NoSpeechTimeout time.Duration
	DialTimeout     time.Duration

	// AudioDump writes each session's captured PCM to a WAV file.
	AudioDump bool
}

// Source is one live microphone stream.
type Source interface {
	Chunks() <-chan []byte
	RawPCM() []byte
	Stop() error
}

// OpenSource starts a microphone stream bound to ctx.
type OpenSource func(ctx context.Context) (Source, error)

// PulseSource opens the configured Pulse input, falling back when it is unusable.
func PulseSource(input string, fallback string, logger *slog.Logger) OpenSource {
	return func(ctx context.Context) (Source, error) {
		selection, err := audio.SelectDevice(ctx, input, fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" && logger != nil {
			logger.Warn("audio input fallback", "warning", selection.Warning)
		}
		return audio.StartCapture(ctx, selection.Device)
	}
}

// Recognizer implements voice.Recognizer over one websocket per session.
type Recognizer struct {
	cfg    Config
	open   OpenSource
	logger *slog.Logger
	dialer *websocket.Dialer

	events chan voice.RecognitionEvent

	mu      sync.Mutex
	rcfg    voice.RecognitionConfig
	current *session
}

// New constructs a Recognizer. A nil open selects the default Pulse input.
func New(cfg Config, open OpenSource, logger *slog.Logger) *Recognizer {
	if open == nil {
		open = PulseSource("default", "default", logger)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Recognizer{
		cfg:    cfg,
		open:   open,
		logger: logger,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
		events: make(chan voice.RecognitionEvent, 256),
	}
}

// Configure sets the options used by the next Start.
func (r *Recognizer) Configure(cfg voice.RecognitionConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rcfg = cfg
}

// Start begins a session asynchronously. The start event follows once the
// microphone and socket are both live.
func (r *Recognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return voice.ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cfg: r.rcfg, ctx: ctx, cancel: cancel}
	r.current = s
	go r.run(s)
	return nil
}

// Stop ends the live session. The end event is still delivered.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()
	if s == nil {
		return voice.ErrNotStarted
	}
	s.cancel()
	return nil
}

// Events implements voice.Recognizer.
func (r *Recognizer) Events() <-chan voice.RecognitionEvent {
	return r.events
}

type session struct {
	cfg    voice.RecognitionConfig
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// write serializes socket writes between the audio pump and shutdown.
func (s *session) write(messageType int, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, payload)
}

// run owns one session from connect to its single end event.
func (r *Recognizer) run(s *session) {
	defer func() {
		s.cancel()
		r.mu.Lock()
		if r.current == s {
			r.current = nil
		}
		r.mu.Unlock()
		r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventEnd})
	}()

	source, err := r.open(s.ctx)
	if err != nil {
		r.connectFailed(s, voice.ErrorAudioCapture, fmt.Errorf("open microphone: %w", err))
		return
	}
	defer func() {
		_ = source.Stop()
		r.writeDebugAudio(source.RawPCM())
	}()

	conn, err := r.dial(s)
	if err != nil {
		r.connectFailed(s, dialErrorKind(err), err)
		return
	}
	s.conn = conn
	defer func() { _ = conn.Close() }()

	if s.ctx.Err() != nil {
		r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorAborted})
		return
	}
	r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventStart})
	r.logDebug("recognition session started", "continuous", s.cfg.Continuous, "language", s.cfg.Language)

	messages := make(chan listenResponse, 16)
	readErr := make(chan error, 1)
	go readLoop(s.ctx, conn, messages, readErr)

	sendErr := make(chan error, 1)
	go func() { sendErr <- s.pump(source.Chunks()) }()

	var noSpeech <-chan time.Time
	if r.cfg.NoSpeechTimeout > 0 {
		timer := time.NewTimer(r.cfg.NoSpeechTimeout)
		defer timer.Stop()
		noSpeech = timer.C
	}

	tracker := &segments{}
	for {
		select {
		case <-s.ctx.Done():
			s.closeStream()
			return

		case <-noSpeech:
			r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorNoSpeech})
			s.closeStream()
			return

		case resp := <-messages:
			if r.handleResponse(s, tracker, resp) {
				return
			}
			if tracker.heard {
				noSpeech = nil
			}

		case err := <-readErr:
			if s.ctx.Err() != nil {
				return
			}
			// Messages read before the failure are already queued.
			for drained := false; !drained; {
				select {
				case resp := <-messages:
					if r.handleResponse(s, tracker, resp) {
						return
					}
				default:
					drained = true
				}
			}
			if isNormalClose(err) {
				r.flushPending(s, tracker)
				return
			}
			r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorNetwork, Detail: err.Error()})
			return

		case err := <-sendErr:
			if s.ctx.Err() != nil {
				return
			}
			if err != nil {
				r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorNetwork, Detail: err.Error()})
			} else {
				r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorAudioCapture, Detail: "microphone stream closed"})
			}
			return
		}
	}
}

// handleResponse emits the events for one provider message and reports
// whether the session is over.
func (r *Recognizer) handleResponse(s *session, tracker *segments, resp listenResponse) bool {
	if message, ok := resp.errorMessage(); ok {
		r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorNetwork, Detail: message})
		return true
	}

	final := false
	for _, ev := range tracker.observe(resp.alternatives(), resp.final()) {
		result := ev.Results[ev.ResultIndex]
		if !s.cfg.InterimResults && !result.IsFinal {
			continue
		}
		r.emit(ev)
		final = final || result.IsFinal
	}
	if final && !s.cfg.Continuous {
		s.closeStream()
		return true
	}
	return false
}

// connectFailed reports a session that never went live.
func (r *Recognizer) connectFailed(s *session, kind voice.ErrorKind, err error) {
	if s.ctx.Err() != nil {
		r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: voice.ErrorAborted})
		return
	}
	r.logWarn("recognition session failed to start", "kind", kind, "error", err.Error())
	r.emit(voice.RecognitionEvent{Kind: voice.RecognitionEventError, Error: kind, Detail: err.Error()})
}

// flushPending finalizes a trailing interim segment when the provider closes
// a one-shot session before finalizing it.
func (r *Recognizer) flushPending(s *session, tracker *segments) {
	if s.cfg.Continuous {
		return
	}
	result, ok := tracker.pending()
	if !ok {
		return
	}
	result.IsFinal = true
	tracker.interim = nil
	r.emit(tracker.commit(result))
}

func (r *Recognizer) dial(s *session) (*websocket.Conn, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, errMissingAPIKey
	}
	listenURL, err := buildListenURL(r.cfg, s.cfg.Language, s.cfg.InterimResults)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)
	headers.Set("User-Agent", version.UserAgent())

	dialCtx, cancel := context.WithTimeout(s.ctx, r.cfg.DialTimeout)
	defer cancel()
	conn, resp, err := r.dialer.DialContext(dialCtx, listenURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &handshakeError{status: resp.StatusCode, err: err}
		}
		return nil, fmt.Errorf("connect listen socket: %w", err)
	}
	return conn, nil
}

// pump forwards microphone chunks until the source closes or a write fails.
func (s *session) pump(chunks <-chan []byte) error {
	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		if err := s.write(websocket.BinaryMessage, chunk); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
	}
	return nil
}

// closeStream asks the provider to flush and close the stream.
func (s *session) closeStream() {
	_ = s.write(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	deadline := time.Now().Add(time.Second)
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.writeMu.Unlock()
}

// readLoop decodes provider messages until the socket fails or ctx ends.
func readLoop(ctx context.Context, conn *websocket.Conn, messages chan<- listenResponse, readErr chan<- error) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		var resp listenResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			continue
		}
		select {
		case messages <- resp:
		case <-ctx.Done():
			return
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

var errMissingAPIKey = errors.New("asr api key is not configured")

// handshakeError carries the HTTP status of a rejected websocket upgrade.
type handshakeError struct {
	status int
	err    error
}

func (e *handshakeError) Error() string {
	return fmt.Sprintf("connect listen socket: status %d: %v", e.status, e.err)
}

func (e *handshakeError) Unwrap() error {
	return e.err
}

// dialErrorKind maps connect failures onto recognition error kinds.
func dialErrorKind(err error) voice.ErrorKind {
	if errors.Is(err, errMissingAPIKey) {
		return voice.ErrorServiceNotAllowed
	}
	var handshake *handshakeError
	if errors.As(err, &handshake) {
		switch handshake.status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return voice.ErrorNotAllowed
		case http.StatusPaymentRequired:
			return voice.ErrorServiceNotAllowed
		}
	}
	return voice.ErrorNetwork
}

func (r *Recognizer) emit(ev voice.RecognitionEvent) {
	r.events <- ev
}

func (r *Recognizer) logDebug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Recognizer) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
