package tts

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/vista/internal/audio"
	"github.com/rbright/vista/internal/voice"
)

// Source produces PCM for one request.
type Source interface {
	Synthesize(ctx context.Context, req Request) ([]int16, error)
}

// SpeakerConfig controls playback of synthesized audio.
type SpeakerConfig struct {
	// SampleRate is the rate of the PCM the source returns.
	SampleRate int
	// Sink is the Pulse sink name; "default" uses the server default.
	Sink  string
	Voice string
}

// Speaker implements voice.Synthesizer. One utterance plays at a time; a new
// Speak cancels the previous utterance before its audio starts.
type Speaker struct {
	source Source
	player audio.Player
	logger *slog.Logger

	sampleRate int
	sink       string

	events chan voice.SynthesisEvent

	mu     sync.Mutex
	voice  string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpeaker constructs a Speaker. A nil player plays through Pulse.
func NewSpeaker(source Source, player audio.Player, cfg SpeakerConfig, logger *slog.Logger) *Speaker {
	if player == nil {
		player = audio.PulsePlayer{}
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	return &Speaker{
		source:     source,
		player:     player,
		logger:     logger,
		sampleRate: cfg.SampleRate,
		sink:       cfg.Sink,
		voice:      strings.TrimSpace(cfg.Voice),
		events:     make(chan voice.SynthesisEvent, 64),
	}
}

// SetVoice changes the voice used by utterances that do not name one.
func (s *Speaker) SetVoice(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = strings.TrimSpace(name)
}

// Speak starts u asynchronously. Progress arrives on Events tagged with u.ID.
func (s *Speaker) Speak(u voice.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	prev := s.done
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	if strings.TrimSpace(u.Voice) == "" {
		u.Voice = s.voice
	}

	go func() {
		defer close(done)
		defer cancel()
		if prev != nil {
			<-prev
		}
		s.play(ctx, u)
	}()
	return nil
}

// Cancel stops the current utterance. Its error event still arrives.
func (s *Speaker) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Events implements voice.Synthesizer.
func (s *Speaker) Events() <-chan voice.SynthesisEvent {
	return s.events
}

// Wait blocks until the most recent utterance has finished.
func (s *Speaker) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Speaker) play(ctx context.Context, u voice.Utterance) {
	pitch := u.Pitch
	if pitch <= 0 {
		pitch = 1
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}

	samples, err := s.source.Synthesize(ctx, Request{Text: u.Text, Voice: u.Voice, Speed: rate / pitch})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.fail(u.ID, err)
		return
	}

	audio.ApplyGain(samples, u.Volume)
	s.emit(voice.SynthesisEvent{Kind: voice.SynthesisStart, UtteranceID: u.ID})
	s.logDebug("speech playback started", "utterance", u.ID, "samples", len(samples), "voice", u.Voice)

	err = s.player.Play(ctx, samples, audio.PlaybackOptions{
		SampleRate: audio.ScaleRate(s.sampleRate, pitch),
		Sink:       s.sink,
		MediaName:  "vista speech",
	})
	if err != nil {
		s.fail(u.ID, err)
		return
	}
	s.emit(voice.SynthesisEvent{Kind: voice.SynthesisEnd, UtteranceID: u.ID})
}

func (s *Speaker) fail(id uint64, err error) {
	s.logDebug("speech utterance failed", "utterance", id, "error", err.Error())
	s.emit(voice.SynthesisEvent{Kind: voice.SynthesisError, UtteranceID: id, Err: err})
}

func (s *Speaker) emit(ev voice.SynthesisEvent) {
	s.events <- ev
}

func (s *Speaker) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
