package voice

import "strings"

// Mode selects how a recognition session is gated.
type Mode int

const (
	ModeOneShot Mode = iota + 1
	ModeContinuous
)

func (m Mode) String() string {
	switch m {
	case ModeOneShot:
		return "one-shot"
	case ModeContinuous:
		return "continuous"
	default:
		return "none"
	}
}

// RecognitionConfig is applied to the recognizer before every start.
type RecognitionConfig struct {
	Continuous     bool
	InterimResults bool
	Language       string
}

type RecognitionEventKind string

const (
	RecognitionEventStart  RecognitionEventKind = "start"
	RecognitionEventResult RecognitionEventKind = "result"
	RecognitionEventError  RecognitionEventKind = "error"
	RecognitionEventEnd    RecognitionEventKind = "end"
)

// Alternative is one candidate transcript, most likely first.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognized segment of the session.
type Result struct {
	IsFinal      bool
	Alternatives []Alternative
}

// Transcript returns the most likely alternative.
func (r Result) Transcript() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// RecognitionEvent is delivered by a Recognizer on its Events channel.
//
// For result events, Results holds the session's results and ResultIndex the
// first one that changed; earlier entries are already final.
type RecognitionEvent struct {
	Kind        RecognitionEventKind
	ResultIndex int
	Results     []Result
	Error       ErrorKind
	Detail      string
}

// utterance joins the in-progress results into one fragment.
func (e RecognitionEvent) utterance() (string, bool) {
	start := e.ResultIndex
	if start < 0 || start > len(e.Results) {
		start = 0
	}

	parts := make([]string, 0, len(e.Results)-start)
	final := len(e.Results) > start
	for _, result := range e.Results[start:] {
		if text := strings.TrimSpace(result.Transcript()); text != "" {
			parts = append(parts, text)
		}
		if !result.IsFinal {
			final = false
		}
	}
	return strings.Join(parts, " "), final
}

// Recognizer is the platform speech-recognition resource.
//
// After Start returns nil the recognizer emits exactly one end event for that
// session, whether it ends naturally, by error, or by Stop.
type Recognizer interface {
	Configure(RecognitionConfig)
	Start() error
	Stop() error
	Events() <-chan RecognitionEvent
}

// Utterance is one synthesis request.
type Utterance struct {
	ID       uint64
	Text     string
	Language string
	Voice    string
	Rate     float64
	Pitch    float64
	Volume   float64
}

type SynthesisEventKind string

const (
	SynthesisStart SynthesisEventKind = "start"
	SynthesisEnd   SynthesisEventKind = "end"
	SynthesisError SynthesisEventKind = "error"
)

// SynthesisEvent reports playback progress of one utterance.
type SynthesisEvent struct {
	Kind        SynthesisEventKind
	UtteranceID uint64
	Err         error
}

// Synthesizer is the platform speech-synthesis resource.
type Synthesizer interface {
	Cancel() error
	Speak(Utterance) error
	Events() <-chan SynthesisEvent
}
