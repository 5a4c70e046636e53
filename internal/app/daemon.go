package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/vista/internal/asr"
	"github.com/rbright/vista/internal/chat"
	"github.com/rbright/vista/internal/companion"
	"github.com/rbright/vista/internal/config"
	"github.com/rbright/vista/internal/indicator"
	"github.com/rbright/vista/internal/ipc"
	"github.com/rbright/vista/internal/tts"
	"github.com/rbright/vista/internal/voice"
)

// daemon owns the controller and its adapters for one `vista run`.
type daemon struct {
	ctrl      *voice.Controller
	companion *companion.Companion
	speaker   *tts.Speaker
	notifier  *indicator.Notifier
	logger    *slog.Logger
}

func newDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) *daemon {
	asrKey := apiKey(cfg.ASR.APIKeyEnv, logger)
	ttsKey := apiKey(cfg.TTS.APIKeyEnv, logger)

	recognizer := asr.New(asr.Config{
		URL:             cfg.ASR.URL,
		Model:           cfg.ASR.Model,
		APIKey:          asrKey,
		SmartFormat:     cfg.ASR.SmartFormat,
		NoSpeechTimeout: time.Duration(cfg.ASR.NoSpeechTimeoutMS) * time.Millisecond,
		AudioDump:       cfg.Debug.EnableAudioDump,
	}, asr.PulseSource(cfg.Audio.Input, cfg.Audio.Fallback, logger), logger)

	speaker := tts.NewSpeaker(tts.NewClient(tts.Config{
		URL:        cfg.TTS.URL,
		Model:      cfg.TTS.Model,
		APIKey:     ttsKey,
		SampleRate: cfg.TTS.SampleRate,
		Timeout:    time.Duration(cfg.TTS.TimeoutMS) * time.Millisecond,
	}), nil, tts.SpeakerConfig{
		SampleRate: cfg.TTS.SampleRate,
		Sink:       cfg.Audio.Output,
		Voice:      cfg.Speech.Voice,
	}, logger)

	chatClient := chat.NewClient(chat.Config{
		URL:           cfg.Chat.URL,
		Timeout:       time.Duration(cfg.Chat.TimeoutMS) * time.Millisecond,
		FallbackReply: cfg.Chat.FallbackReply,
	})

	notifier := indicator.NewNotifier(cfg.Indicator, nil, logger)
	comp := companion.New(ctx, chatClient, notifier, logger)

	ctrl := voice.New(voice.Options{
		Config:       voiceConfig(cfg),
		Logger:       logger,
		Recognizer:   recognizer,
		Synthesizer:  speaker,
		OnStatus:     comp.HandleStatus,
		OnTranscript: comp.HandleTranscript,
		OnError:      comp.HandleError,
	})
	comp.Bind(ctrl)

	return &daemon{
		ctrl:      ctrl,
		companion: comp,
		speaker:   speaker,
		notifier:  notifier,
		logger:    logger,
	}
}

// voiceConfig maps file configuration onto controller tuning.
func voiceConfig(cfg config.Config) voice.Config {
	return voice.Config{
		WakePhrase:      cfg.Voice.WakePhrase,
		Language:        cfg.Voice.Language,
		InterimResults:  cfg.Voice.InterimResults,
		SettleDelay:     cfg.Voice.SettleDelay(),
		RestartDelay:    cfg.Voice.RestartDelay(),
		MaxRestartDelay: cfg.Voice.MaxRestartDelay(),
		ResumeDelay:     cfg.Voice.ResumeDelay(),
		Speech:          speechConfig(cfg.Speech),
	}
}

func speechConfig(speech config.SpeechConfig) voice.SpeechConfig {
	return voice.SpeechConfig{
		Voice:  speech.Voice,
		Rate:   speech.Rate,
		Pitch:  speech.Pitch,
		Volume: speech.Volume,
	}
}

// apiKey resolves a provider key; a missing key is logged and left empty so
// the adapter reports it on first use.
func apiKey(envName string, logger *slog.Logger) string {
	key, err := config.APIKey(envName)
	if err != nil && logger != nil {
		logger.Warn("api key unavailable", "env", envName, "error", err.Error())
	}
	return key
}

// reload applies the live-reloadable part of an edited config file.
func (d *daemon) reload(loaded config.Loaded) {
	d.ctrl.UpdateSpeech(speechConfig(loaded.Config.Speech))
	d.speaker.SetVoice(loaded.Config.Speech.Voice)
	d.logger.Info("config reloaded", "path", loaded.Path, "warnings", len(loaded.Warnings))
}

// wait blocks until background chat turns, playback, and cues finish.
func (d *daemon) wait() {
	d.companion.CancelTurn()
	d.companion.Wait()
	d.speaker.Wait()
	d.notifier.Wait()
}

func (r Runner) commandRun(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: vista daemon is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := newDaemon(runCtx, loaded.Config, logger)
	if !d.ctrl.IsSupported() {
		fmt.Fprintln(r.Stderr, "error: voice interaction is not supported")
		return 1
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, d.companion.Wrap(d.ctrl))
	}()

	if loaded.Exists {
		if err := config.Watch(runCtx, loaded.Path, logger, d.reload); err != nil {
			logger.Warn("config watch disabled", "error", err.Error())
		}
	}

	logger.Info("daemon start", "socket", socketPath, "wake_phrase", loaded.Config.Voice.WakePhrase)
	fmt.Fprintf(r.Stdout, "listening for %q\n", loaded.Config.Voice.WakePhrase)

	d.ctrl.StartContinuousListening()
	d.ctrl.Run(runCtx)

	cancel()
	serverErr := <-serverErrCh
	d.wait()
	logger.Info("daemon stop", "state", string(d.ctrl.State()))

	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	return 0
}
