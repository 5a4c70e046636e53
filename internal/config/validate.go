package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Voice.WakePhrase) == "" {
		return nil, fmt.Errorf("voice.wake_phrase must not be empty")
	}
	if len(strings.Fields(cfg.Voice.WakePhrase)) == 1 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("voice.wake_phrase %q is a single word; expect false wakes", cfg.Voice.WakePhrase)})
	}
	if _, err := language.Parse(strings.TrimSpace(cfg.Voice.Language)); err != nil {
		return nil, fmt.Errorf("voice.language %q is not a valid language tag", cfg.Voice.Language)
	}
	for name, value := range map[string]int{
		"voice.settle_delay_ms":      cfg.Voice.SettleDelayMS,
		"voice.restart_delay_ms":     cfg.Voice.RestartDelayMS,
		"voice.max_restart_delay_ms": cfg.Voice.MaxRestartDelayMS,
		"voice.resume_delay_ms":      cfg.Voice.ResumeDelayMS,
		"indicator.error_timeout_ms": cfg.Indicator.ErrorTimeoutMS,
	} {
		if value < 0 {
			return nil, fmt.Errorf("%s must be >= 0", name)
		}
	}
	if cfg.Voice.MaxRestartDelayMS > 0 && cfg.Voice.MaxRestartDelayMS < cfg.Voice.RestartDelayMS {
		return nil, fmt.Errorf("voice.max_restart_delay_ms must be >= voice.restart_delay_ms")
	}

	if cfg.Speech.Rate <= 0 || cfg.Speech.Rate > 10 {
		return nil, fmt.Errorf("speech.rate must be in (0, 10]")
	}
	if cfg.Speech.Pitch <= 0 || cfg.Speech.Pitch > 2 {
		return nil, fmt.Errorf("speech.pitch must be in (0, 2]")
	}
	if cfg.Speech.Volume < 0 || cfg.Speech.Volume > 1 {
		return nil, fmt.Errorf("speech.volume must be in [0, 1]")
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}

	if err := validateURL("asr.url", cfg.ASR.URL, "ws", "wss"); err != nil {
		return nil, err
	}
	if cfg.ASR.NoSpeechTimeoutMS < 0 {
		return nil, fmt.Errorf("asr.no_speech_timeout_ms must be >= 0")
	}
	if err := validateURL("tts.url", cfg.TTS.URL, "http", "https"); err != nil {
		return nil, err
	}
	if cfg.TTS.SampleRate < 8000 || cfg.TTS.SampleRate > 48000 {
		return nil, fmt.Errorf("tts.sample_rate must be between 8000 and 48000")
	}
	if cfg.TTS.TimeoutMS <= 0 {
		return nil, fmt.Errorf("tts.timeout_ms must be > 0")
	}
	if err := validateURL("chat.url", cfg.Chat.URL, "http", "https"); err != nil {
		return nil, err
	}
	if cfg.Chat.TimeoutMS <= 0 {
		return nil, fmt.Errorf("chat.timeout_ms must be > 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}

	return warnings, nil
}

func validateURL(field string, raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}
	return fmt.Errorf("%s scheme must be one of: %s", field, strings.Join(schemes, ", "))
}
