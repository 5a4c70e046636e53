package asr

import (
	"testing"

	"github.com/rbright/vista/internal/voice"
	"github.com/stretchr/testify/require"
)

func alts(text string) []listenAlternative {
	return []listenAlternative{{Transcript: text, Confidence: 0.9}}
}

func latest(ev voice.RecognitionEvent) voice.Result {
	return ev.Results[ev.ResultIndex]
}

func TestSegmentsInterimThenFinal(t *testing.T) {
	s := &segments{}

	events := s.observe(alts("hey"), false)
	require.Len(t, events, 1)
	require.Equal(t, voice.RecognitionEventResult, events[0].Kind)
	require.Equal(t, "hey", latest(events[0]).Transcript())
	require.False(t, latest(events[0]).IsFinal)

	events = s.observe(alts("hey vista"), false)
	require.Len(t, events, 1)
	require.Equal(t, 0, events[0].ResultIndex)
	require.Equal(t, "hey vista", latest(events[0]).Transcript())

	events = s.observe(alts("hey vista what time is it"), true)
	require.Len(t, events, 1)
	require.Equal(t, 0, events[0].ResultIndex)
	require.True(t, latest(events[0]).IsFinal)
	require.Equal(t, 0.9, latest(events[0]).Alternatives[0].Confidence)

	_, pending := s.pending()
	require.False(t, pending)
}

func TestSegmentsLaterSegmentsAdvanceResultIndex(t *testing.T) {
	s := &segments{}
	s.observe(alts("hey vista"), true)

	events := s.observe(alts("turn on"), false)
	require.Len(t, events, 1)
	require.Equal(t, 1, events[0].ResultIndex)
	require.Len(t, events[0].Results, 2)
	require.True(t, events[0].Results[0].IsFinal)

	events = s.observe(alts("turn on the lights"), true)
	require.Len(t, events, 1)
	require.Equal(t, 1, events[0].ResultIndex)
	require.Equal(t, "turn on the lights", latest(events[0]).Transcript())
}

func TestSegmentsCommitsDivergentInterim(t *testing.T) {
	s := &segments{}
	s.observe(alts("first phrase"), false)

	events := s.observe(alts("second phrase"), false)
	require.Len(t, events, 2)

	require.Equal(t, 0, events[0].ResultIndex)
	require.True(t, latest(events[0]).IsFinal)
	require.Equal(t, "first phrase", latest(events[0]).Transcript())

	require.Equal(t, 1, events[1].ResultIndex)
	require.False(t, latest(events[1]).IsFinal)
	require.Equal(t, "second phrase", latest(events[1]).Transcript())

	pending, ok := s.pending()
	require.True(t, ok)
	require.Equal(t, "second phrase", pending.Transcript())
}

func TestSegmentsEmptyFinalClearsInterim(t *testing.T) {
	s := &segments{}
	s.observe(alts("hmm"), false)

	require.Empty(t, s.observe(nil, true))
	_, ok := s.pending()
	require.False(t, ok)
	require.Empty(t, s.observe(nil, false))
}

func TestSegmentsDeduplicatesRepeatedFinal(t *testing.T) {
	s := &segments{}
	s.observe(alts("hello world"), true)

	events := s.observe(alts("hello world"), true)
	require.Len(t, events, 1)
	require.Equal(t, 0, events[0].ResultIndex)
	require.Len(t, s.committed, 1)
}

func TestIsInterimContinuation(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     bool
	}{
		{name: "empty", previous: "", current: "hello", want: true},
		{name: "extension", previous: "hello wor", current: "hello world", want: true},
		{name: "revision shrinks", previous: "hello world", current: "hello", want: true},
		{name: "shared prefix", previous: "turn on the light", current: "turn on the lights now", want: true},
		{name: "case only", previous: "Turn On the", current: "turn on a lamp", want: true},
		{name: "divergent", previous: "first phrase", current: "second phrase", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isInterimContinuation(tc.previous, tc.current))
		})
	}
}

func TestCleanSegment(t *testing.T) {
	require.Equal(t, "hello there", cleanSegment("  hello \n there "))
	require.Empty(t, cleanSegment(" \t "))
}
