package voice

import (
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeRecognizer struct {
	mu sync.Mutex

	events    chan RecognitionEvent
	configs   []RecognitionConfig
	startErr  error
	live      bool
	confirmed bool
	holdEnd   bool
	heldEnd   bool

	starts         int
	stops          int
	alreadyStarted int
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan RecognitionEvent, 128)}
}

func (f *fakeRecognizer) Configure(cfg RecognitionConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg)
}

func (f *fakeRecognizer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.live {
		f.alreadyStarted++
		return ErrAlreadyStarted
	}
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.live = true
	f.confirmed = false
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live {
		return ErrNotStarted
	}
	f.stops++
	f.live = false
	if !f.confirmed {
		f.events <- RecognitionEvent{Kind: RecognitionEventError, Error: ErrorAborted}
	}
	if f.holdEnd {
		f.heldEnd = true
		return nil
	}
	f.events <- RecognitionEvent{Kind: RecognitionEventEnd}
	return nil
}

func (f *fakeRecognizer) Events() <-chan RecognitionEvent {
	return f.events
}

// confirm emits the start event of the live session.
func (f *fakeRecognizer) confirm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = true
	f.events <- RecognitionEvent{Kind: RecognitionEventStart}
}

func (f *fakeRecognizer) result(text string, final bool) {
	f.events <- RecognitionEvent{
		Kind:    RecognitionEventResult,
		Results: []Result{{IsFinal: final, Alternatives: []Alternative{{Transcript: text, Confidence: 0.9}}}},
	}
}

func (f *fakeRecognizer) fail(kind ErrorKind) {
	f.events <- RecognitionEvent{Kind: RecognitionEventError, Error: kind}
}

// finish ends the live session the way the resource does on its own.
func (f *fakeRecognizer) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = false
	f.events <- RecognitionEvent{Kind: RecognitionEventEnd}
}

// releaseEnd delivers an end held back by holdEnd.
func (f *fakeRecognizer) releaseEnd() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heldEnd {
		f.heldEnd = false
		f.events <- RecognitionEvent{Kind: RecognitionEventEnd}
	}
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeRecognizer) lastConfig() RecognitionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.configs) == 0 {
		return RecognitionConfig{}
	}
	return f.configs[len(f.configs)-1]
}

type fakeSynthesizer struct {
	mu sync.Mutex

	events     chan SynthesisEvent
	speakErr   error
	utterances []Utterance
	cancels    int
}

func newFakeSynthesizer() *fakeSynthesizer {
	return &fakeSynthesizer{events: make(chan SynthesisEvent, 128)}
}

func (f *fakeSynthesizer) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeSynthesizer) Speak(u Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.utterances = append(f.utterances, u)
	return nil
}

func (f *fakeSynthesizer) Events() <-chan SynthesisEvent {
	return f.events
}

func (f *fakeSynthesizer) emit(kind SynthesisEventKind, id uint64, err error) {
	f.events <- SynthesisEvent{Kind: kind, UtteranceID: id, Err: err}
}

func (f *fakeSynthesizer) spoken() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Utterance(nil), f.utterances...)
}

func (f *fakeSynthesizer) last() Utterance {
	spoken := f.spoken()
	if len(spoken) == 0 {
		return Utterance{}
	}
	return spoken[len(spoken)-1]
}

// manualScheduler fires timers only when the test advances its clock.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{at: s.now + d, fn: fn}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	due := make([]*manualTimer, 0, len(s.timers))
	pending := s.timers[:0]
	for _, timer := range s.timers {
		switch {
		case timer.stopped:
		case timer.at <= s.now:
			due = append(due, timer)
		default:
			pending = append(pending, timer)
		}
	}
	s.timers = pending
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, timer := range due {
		if timer.stopped {
			continue
		}
		timer.fired = true
		timer.fn()
	}
}

func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, timer := range s.timers {
		if !timer.stopped {
			count++
		}
	}
	return count
}

// pump runs the loop body until no queued work or resource events remain.
func (c *Controller) pump() {
	for {
		c.drain()

		if c.recognizer != nil {
			select {
			case ev := <-c.recognizer.Events():
				c.handleRecognition(ev)
				continue
			default:
			}
		}
		if c.synthesizer != nil {
			select {
			case ev := <-c.synthesizer.Events():
				c.handleSynthesis(ev)
				continue
			default:
			}
		}

		c.queueMu.Lock()
		idle := len(c.queue) == 0
		c.queueMu.Unlock()
		if idle {
			return
		}
	}
}

type harness struct {
	t     *testing.T
	cfg   Config
	ctrl  *Controller
	rec   *fakeRecognizer
	synth *fakeSynthesizer
	clock *manualScheduler

	statuses    []Status
	transcripts []string
	errs        []error

	onTranscript func(string)
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()

	cfg := DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	h := &harness{
		t:     t,
		cfg:   cfg,
		rec:   newFakeRecognizer(),
		synth: newFakeSynthesizer(),
		clock: &manualScheduler{},
	}
	h.ctrl = New(Options{
		Config:      cfg,
		Recognizer:  h.rec,
		Synthesizer: h.synth,
		Scheduler:   h.clock,
		OnStatus:    func(s Status) { h.statuses = append(h.statuses, s) },
		OnTranscript: func(text string) {
			h.transcripts = append(h.transcripts, text)
			if h.onTranscript != nil {
				h.onTranscript(text)
			}
		},
		OnError: func(err error) { h.errs = append(h.errs, err) },
	})
	return h
}

func (h *harness) pump() {
	h.ctrl.pump()
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.ctrl.pump()
}

// armContinuous starts continuous listening and confirms the session.
func (h *harness) armContinuous() {
	h.ctrl.StartContinuousListening()
	h.pump()
	h.rec.confirm()
	h.pump()
}

// wake arms continuous listening and speaks the wake phrase.
func (h *harness) wake() {
	h.armContinuous()
	h.rec.result(h.cfg.WakePhrase, false)
	h.pump()
}
