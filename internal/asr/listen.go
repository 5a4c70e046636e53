package asr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// listenResponse is one Deepgram-compatible message from the listen socket.
type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []listenAlternative `json:"alternatives"`
	} `json:"channel"`
}

type listenAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// final reports whether the response closes its segment.
func (r listenResponse) final() bool {
	return r.IsFinal || r.SpeechFinal
}

// errorMessage returns the provider error text for Error messages.
func (r listenResponse) errorMessage() (string, bool) {
	if !strings.EqualFold(r.Type, "Error") {
		return "", false
	}
	for _, candidate := range []string{r.Description, r.Message} {
		if text := strings.TrimSpace(candidate); text != "" {
			return text, true
		}
	}
	return "provider returned an unknown error", true
}

// alternatives returns cleaned candidates, dropping empty transcripts.
func (r listenResponse) alternatives() []listenAlternative {
	out := make([]listenAlternative, 0, len(r.Channel.Alternatives))
	for _, alt := range r.Channel.Alternatives {
		text := cleanSegment(alt.Transcript)
		if text == "" {
			continue
		}
		out = append(out, listenAlternative{Transcript: text, Confidence: alt.Confidence})
	}
	return out
}

// buildListenURL renders the listen endpoint with the stream query.
func buildListenURL(cfg Config, language string, interim bool) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	listenURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid asr url: %w", err)
	}
	if listenURL.Scheme != "ws" && listenURL.Scheme != "wss" {
		return "", fmt.Errorf("invalid asr url %q: scheme must be ws or wss", cfg.URL)
	}

	query := listenURL.Query()
	if model := strings.TrimSpace(cfg.Model); model != "" {
		query.Set("model", model)
	}
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", "1")
	query.Set("interim_results", strconv.FormatBool(interim))
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if language = strings.TrimSpace(language); language != "" {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
