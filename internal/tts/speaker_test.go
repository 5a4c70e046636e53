package tts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbright/vista/internal/audio"
	"github.com/rbright/vista/internal/voice"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (f *fakeSource) Synthesize(_ context.Context, req Request) ([]int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return []int16{1000, -1000, 2000}, nil
}

func (f *fakeSource) last() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// fakePlayer blocks each Play until released or cancelled.
type fakePlayer struct {
	mu      sync.Mutex
	played  [][]int16
	opts    []audio.PlaybackOptions
	block   bool
	release chan struct{}
	err     error
}

func newFakePlayer(block bool) *fakePlayer {
	return &fakePlayer{block: block, release: make(chan struct{}, 8)}
}

func (f *fakePlayer) Play(ctx context.Context, samples []int16, opts audio.PlaybackOptions) error {
	f.mu.Lock()
	f.played = append(f.played, append([]int16(nil), samples...))
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.block {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakePlayer) lastPlayed() ([]int16, audio.PlaybackOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.played[len(f.played)-1], f.opts[len(f.opts)-1]
}

func nextEvent(t *testing.T, s *Speaker) voice.SynthesisEvent {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for synthesis event")
		return voice.SynthesisEvent{}
	}
}

func TestSpeakerPlaysUtterance(t *testing.T) {
	source := &fakeSource{}
	player := newFakePlayer(false)
	speaker := NewSpeaker(source, player, SpeakerConfig{SampleRate: 24000, Sink: "headphones"}, nil)

	require.NoError(t, speaker.Speak(voice.Utterance{ID: 7, Text: "hello", Voice: "nova", Rate: 0.9, Pitch: 1.5, Volume: 0.5}))

	require.Equal(t, voice.SynthesisEvent{Kind: voice.SynthesisStart, UtteranceID: 7}, nextEvent(t, speaker))
	require.Equal(t, voice.SynthesisEvent{Kind: voice.SynthesisEnd, UtteranceID: 7}, nextEvent(t, speaker))

	req := source.last()
	require.Equal(t, "hello", req.Text)
	require.Equal(t, "nova", req.Voice)
	require.InDelta(t, 0.6, req.Speed, 1e-9)

	samples, opts := player.lastPlayed()
	require.Equal(t, []int16{500, -500, 1000}, samples)
	require.Equal(t, 36000, opts.SampleRate)
	require.Equal(t, "headphones", opts.Sink)
}

func TestSpeakerUsesConfiguredVoiceWhenUtteranceHasNone(t *testing.T) {
	source := &fakeSource{}
	speaker := NewSpeaker(source, newFakePlayer(false), SpeakerConfig{Voice: "alloy"}, nil)

	require.NoError(t, speaker.Speak(voice.Utterance{ID: 1, Text: "a", Volume: 1}))
	speaker.Wait()
	require.Equal(t, "alloy", source.last().Voice)

	speaker.SetVoice(" shimmer ")
	require.NoError(t, speaker.Speak(voice.Utterance{ID: 2, Text: "b", Volume: 1}))
	speaker.Wait()
	require.Equal(t, "shimmer", source.last().Voice)
}

func TestSpeakerNewUtteranceCancelsPrevious(t *testing.T) {
	player := newFakePlayer(true)
	speaker := NewSpeaker(&fakeSource{}, player, SpeakerConfig{}, nil)

	require.NoError(t, speaker.Speak(voice.Utterance{ID: 1, Text: "first", Volume: 1}))
	require.Equal(t, voice.SynthesisStart, nextEvent(t, speaker).Kind)

	require.NoError(t, speaker.Speak(voice.Utterance{ID: 2, Text: "second", Volume: 1}))

	cancelled := nextEvent(t, speaker)
	require.Equal(t, voice.SynthesisError, cancelled.Kind)
	require.Equal(t, uint64(1), cancelled.UtteranceID)
	require.ErrorIs(t, cancelled.Err, context.Canceled)

	require.Equal(t, voice.SynthesisEvent{Kind: voice.SynthesisStart, UtteranceID: 2}, nextEvent(t, speaker))
	player.release <- struct{}{}
	require.Equal(t, voice.SynthesisEvent{Kind: voice.SynthesisEnd, UtteranceID: 2}, nextEvent(t, speaker))
}

func TestSpeakerCancelInterruptsPlayback(t *testing.T) {
	speaker := NewSpeaker(&fakeSource{}, newFakePlayer(true), SpeakerConfig{}, nil)

	require.NoError(t, speaker.Speak(voice.Utterance{ID: 3, Text: "long story", Volume: 1}))
	require.Equal(t, voice.SynthesisStart, nextEvent(t, speaker).Kind)

	require.NoError(t, speaker.Cancel())
	ev := nextEvent(t, speaker)
	require.Equal(t, voice.SynthesisError, ev.Kind)
	require.Equal(t, uint64(3), ev.UtteranceID)

	require.NoError(t, speaker.Cancel())
}

func TestSpeakerReportsSynthesisAndPlaybackFailures(t *testing.T) {
	boom := errors.New("boom")

	speaker := NewSpeaker(&fakeSource{err: boom}, newFakePlayer(false), SpeakerConfig{}, nil)
	require.NoError(t, speaker.Speak(voice.Utterance{ID: 4, Text: "x", Volume: 1}))
	ev := nextEvent(t, speaker)
	require.Equal(t, voice.SynthesisError, ev.Kind)
	require.ErrorIs(t, ev.Err, boom)

	player := newFakePlayer(false)
	player.err = boom
	speaker = NewSpeaker(&fakeSource{}, player, SpeakerConfig{}, nil)
	require.NoError(t, speaker.Speak(voice.Utterance{ID: 5, Text: "y", Volume: 1}))
	require.Equal(t, voice.SynthesisStart, nextEvent(t, speaker).Kind)
	ev = nextEvent(t, speaker)
	require.Equal(t, voice.SynthesisError, ev.Kind)
	require.Equal(t, uint64(5), ev.UtteranceID)
}
