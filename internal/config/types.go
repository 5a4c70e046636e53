// Package config resolves, parses, validates, and defaults vista configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by vista.
type Config struct {
	Voice     VoiceConfig
	Speech    SpeechConfig
	Audio     AudioConfig
	ASR       ASRConfig
	TTS       TTSConfig
	Chat      ChatConfig
	Indicator IndicatorConfig
	Debug     DebugConfig
}

// VoiceConfig controls wake-phrase gating and recognizer session timing.
type VoiceConfig struct {
	WakePhrase        string
	Language          string
	InterimResults    bool
	SettleDelayMS     int
	RestartDelayMS    int
	MaxRestartDelayMS int
	ResumeDelayMS     int
}

func (v VoiceConfig) SettleDelay() time.Duration  { return millis(v.SettleDelayMS) }
func (v VoiceConfig) RestartDelay() time.Duration { return millis(v.RestartDelayMS) }
func (v VoiceConfig) ResumeDelay() time.Duration  { return millis(v.ResumeDelayMS) }

func (v VoiceConfig) MaxRestartDelay() time.Duration {
	return millis(v.MaxRestartDelayMS)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// SpeechConfig controls synthesized speech delivery. It is reloadable.
type SpeechConfig struct {
	Voice  string
	Rate   float64
	Pitch  float64
	Volume float64
}

// AudioConfig controls capture source selection and the playback sink.
type AudioConfig struct {
	Input    string
	Fallback string
	Output   string
}

// ASRConfig controls the streaming recognizer endpoint.
type ASRConfig struct {
	URL               string
	Model             string
	APIKeyEnv         string
	NoSpeechTimeoutMS int
	SmartFormat       bool
}

// TTSConfig controls the speech synthesis endpoint.
type TTSConfig struct {
	URL        string
	Model      string
	APIKeyEnv  string
	SampleRate int
	TimeoutMS  int
}

// ChatConfig controls the conversational backend.
type ChatConfig struct {
	URL           string
	TimeoutMS     int
	FallbackReply string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
