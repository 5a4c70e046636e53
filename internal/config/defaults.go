package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Voice: VoiceConfig{
			WakePhrase:        "hey vista",
			Language:          "en-US",
			InterimResults:    true,
			SettleDelayMS:     300,
			RestartDelayMS:    300,
			MaxRestartDelayMS: 30000,
			ResumeDelayMS:     500,
		},
		Speech: SpeechConfig{
			Voice:  "alloy",
			Rate:   0.9,
			Pitch:  1.0,
			Volume: 0.8,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
			Output:   "default",
		},
		ASR: ASRConfig{
			URL:               "wss://api.deepgram.com/v1/listen",
			Model:             "nova-2",
			APIKeyEnv:         "DEEPGRAM_API_KEY",
			NoSpeechTimeoutMS: 8000,
			SmartFormat:       true,
		},
		TTS: TTSConfig{
			URL:        "https://api.openai.com/v1/audio/speech",
			Model:      "tts-1",
			APIKeyEnv:  "OPENAI_API_KEY",
			SampleRate: 24000,
			TimeoutMS:  20000,
		},
		Chat: ChatConfig{
			URL:           "http://127.0.0.1:8080/chat",
			TimeoutMS:     30000,
			FallbackReply: "I'm sorry, I didn't understand that.",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "vista-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Debug: DebugConfig{},
	}
}
