package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Voice     *jsoncVoice     `json:"voice"`
	Speech    *jsoncSpeech    `json:"speech"`
	Audio     *jsoncAudio     `json:"audio"`
	ASR       *jsoncASR       `json:"asr"`
	TTS       *jsoncTTS       `json:"tts"`
	Chat      *jsoncChat      `json:"chat"`
	Indicator *jsoncIndicator `json:"indicator"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncVoice struct {
	WakePhrase        *string `json:"wake_phrase"`
	Language          *string `json:"language"`
	InterimResults    *bool   `json:"interim_results"`
	SettleDelayMS     *int    `json:"settle_delay_ms"`
	RestartDelayMS    *int    `json:"restart_delay_ms"`
	MaxRestartDelayMS *int    `json:"max_restart_delay_ms"`
	ResumeDelayMS     *int    `json:"resume_delay_ms"`
}

type jsoncSpeech struct {
	Voice  *string  `json:"voice"`
	Rate   *float64 `json:"rate"`
	Pitch  *float64 `json:"pitch"`
	Volume *float64 `json:"volume"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
	Output   *string `json:"output"`
}

type jsoncASR struct {
	URL               *string `json:"url"`
	Model             *string `json:"model"`
	APIKeyEnv         *string `json:"api_key_env"`
	NoSpeechTimeoutMS *int    `json:"no_speech_timeout_ms"`
	SmartFormat       *bool   `json:"smart_format"`
}

type jsoncTTS struct {
	URL        *string `json:"url"`
	Model      *string `json:"model"`
	APIKeyEnv  *string `json:"api_key_env"`
	SampleRate *int    `json:"sample_rate"`
	TimeoutMS  *int    `json:"timeout_ms"`
}

type jsoncChat struct {
	URL           *string `json:"url"`
	TimeoutMS     *int    `json:"timeout_ms"`
	FallbackReply *string `json:"fallback_reply"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if v := payload.Voice; v != nil {
		setString(&cfg.Voice.WakePhrase, v.WakePhrase)
		setString(&cfg.Voice.Language, v.Language)
		setValue(&cfg.Voice.InterimResults, v.InterimResults)
		setValue(&cfg.Voice.SettleDelayMS, v.SettleDelayMS)
		setValue(&cfg.Voice.RestartDelayMS, v.RestartDelayMS)
		setValue(&cfg.Voice.MaxRestartDelayMS, v.MaxRestartDelayMS)
		setValue(&cfg.Voice.ResumeDelayMS, v.ResumeDelayMS)
	}

	if s := payload.Speech; s != nil {
		setString(&cfg.Speech.Voice, s.Voice)
		setValue(&cfg.Speech.Rate, s.Rate)
		setValue(&cfg.Speech.Pitch, s.Pitch)
		setValue(&cfg.Speech.Volume, s.Volume)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		setString(&cfg.Audio.Output, a.Output)
	}

	if a := payload.ASR; a != nil {
		setString(&cfg.ASR.URL, a.URL)
		setString(&cfg.ASR.Model, a.Model)
		setString(&cfg.ASR.APIKeyEnv, a.APIKeyEnv)
		setValue(&cfg.ASR.NoSpeechTimeoutMS, a.NoSpeechTimeoutMS)
		setValue(&cfg.ASR.SmartFormat, a.SmartFormat)
	}

	if t := payload.TTS; t != nil {
		setString(&cfg.TTS.URL, t.URL)
		setString(&cfg.TTS.Model, t.Model)
		setString(&cfg.TTS.APIKeyEnv, t.APIKeyEnv)
		setValue(&cfg.TTS.SampleRate, t.SampleRate)
		setValue(&cfg.TTS.TimeoutMS, t.TimeoutMS)
	}

	if c := payload.Chat; c != nil {
		setString(&cfg.Chat.URL, c.URL)
		setValue(&cfg.Chat.TimeoutMS, c.TimeoutMS)
		if c.FallbackReply != nil {
			cfg.Chat.FallbackReply = strings.TrimSpace(*c.FallbackReply)
			if cfg.Chat.FallbackReply == "" {
				warnings = append(warnings, Warning{Message: "chat.fallback_reply is empty; unanswered commands will be silent"})
			}
		}
	}

	if i := payload.Indicator; i != nil {
		setValue(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.Backend, i.Backend)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setValue(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setValue(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if payload.Debug != nil {
		setValue(&cfg.Debug.EnableAudioDump, payload.Debug.AudioDump)
	}

	return warnings
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
