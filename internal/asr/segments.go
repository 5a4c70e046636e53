package asr

import (
	"strings"

	"github.com/rbright/vista/internal/voice"
)

// segments tracks the results of one session: committed segments plus the
// interim segment still being revised.
type segments struct {
	committed []voice.Result
	interim   *voice.Result
	heard     bool
}

// observe folds one provider response into the session and returns the
// result events it produces, oldest first.
func (s *segments) observe(alternatives []listenAlternative, final bool) []voice.RecognitionEvent {
	if len(alternatives) == 0 {
		if final {
			s.interim = nil
		}
		return nil
	}
	s.heard = true
	next := toResult(alternatives, final)

	var events []voice.RecognitionEvent
	if s.interim != nil && !isInterimContinuation(s.interim.Transcript(), next.Transcript()) {
		// The provider moved on without finalizing; commit what it last heard.
		committed := *s.interim
		committed.IsFinal = true
		s.interim = nil
		events = append(events, s.commit(committed))
	}

	if final {
		s.interim = nil
		events = append(events, s.commit(next))
		return events
	}

	s.interim = &next
	events = append(events, s.event(len(s.committed)))
	return events
}

// pending returns the interim segment that never finalized, if any.
func (s *segments) pending() (voice.Result, bool) {
	if s.interim == nil {
		return voice.Result{}, false
	}
	return *s.interim, true
}

func (s *segments) commit(result voice.Result) voice.RecognitionEvent {
	if n := len(s.committed); n > 0 && s.committed[n-1].Transcript() == result.Transcript() {
		return s.event(n - 1)
	}
	s.committed = append(s.committed, result)
	return s.event(len(s.committed) - 1)
}

// event snapshots the session results starting at index.
func (s *segments) event(index int) voice.RecognitionEvent {
	results := make([]voice.Result, 0, len(s.committed)+1)
	results = append(results, s.committed...)
	if s.interim != nil && index >= len(s.committed) {
		results = append(results, *s.interim)
	}
	if index >= len(results) {
		index = len(results) - 1
	}
	return voice.RecognitionEvent{
		Kind:        voice.RecognitionEventResult,
		ResultIndex: index,
		Results:     results[:index+1],
	}
}

func toResult(alternatives []listenAlternative, final bool) voice.Result {
	result := voice.Result{IsFinal: final, Alternatives: make([]voice.Alternative, 0, len(alternatives))}
	for _, alt := range alternatives {
		result.Alternatives = append(result.Alternatives, voice.Alternative{
			Transcript: alt.Transcript,
			Confidence: alt.Confidence,
		})
	}
	return result
}

// isInterimContinuation decides whether an interim update extends prior speech.
func isInterimContinuation(previous string, current string) bool {
	previous = cleanSegment(previous)
	current = cleanSegment(current)
	if previous == "" || current == "" {
		return true
	}
	if strings.HasPrefix(current, previous) || strings.HasPrefix(previous, current) {
		return true
	}

	prevWords := strings.Fields(strings.ToLower(previous))
	currWords := strings.Fields(strings.ToLower(current))
	shorter := min(len(prevWords), len(currWords))
	if shorter == 0 {
		return true
	}
	return commonPrefixWords(prevWords, currWords)*2 >= shorter
}

// commonPrefixWords counts shared leading words across two slices.
func commonPrefixWords(left []string, right []string) int {
	limit := min(len(left), len(right))
	count := 0
	for i := 0; i < limit; i++ {
		if left[i] != right[i] {
			break
		}
		count++
	}
	return count
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
