package voice

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by a Recognizer whose session is already live.
	ErrAlreadyStarted = errors.New("recognition already started")
	// ErrNotStarted is returned by a Recognizer asked to stop with no live session.
	ErrNotStarted = errors.New("recognition not started")
	// ErrUnsupported reports that recognition or synthesis is unavailable on this host.
	ErrUnsupported = errors.New("speech recognition or synthesis unsupported")
)

// ErrorKind names a recognition failure as reported by the recognizer resource.
type ErrorKind string

const (
	ErrorNoSpeech            ErrorKind = "no-speech"
	ErrorAborted             ErrorKind = "aborted"
	ErrorAudioCapture        ErrorKind = "audio-capture"
	ErrorNetwork             ErrorKind = "network"
	ErrorNotAllowed          ErrorKind = "not-allowed"
	ErrorServiceNotAllowed   ErrorKind = "service-not-allowed"
	ErrorLanguageUnsupported ErrorKind = "language-not-supported"
)

// fatal kinds cannot recover by restarting the same session.
func (k ErrorKind) fatal() bool {
	switch k {
	case ErrorNotAllowed, ErrorServiceNotAllowed, ErrorLanguageUnsupported:
		return true
	default:
		return false
	}
}

// RecognitionError is surfaced to the caller for diagnostics only.
type RecognitionError struct {
	Kind   ErrorKind
	Detail string
}

func (e *RecognitionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("speech recognition error: %s", e.Kind)
	}
	return fmt.Sprintf("speech recognition error: %s: %s", e.Kind, e.Detail)
}

// IsBenign reports whether err is an expected resource race rather than a failure.
func IsBenign(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) || errors.Is(err, ErrNotStarted)
}
