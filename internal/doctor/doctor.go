// Package doctor runs runtime readiness diagnostics for config, audio, and the
// speech and chat backends.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/vista/internal/audio"
	"github.com/rbright/vista/internal/config"
	"github.com/rbright/vista/internal/hypr"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkDefaultSink(ctx))

	checks = append(checks, checkEndpoint("asr.url", cfg.Config.ASR.URL, "ws", "wss"))
	checks = append(checks, checkAPIKey("asr.api_key", cfg.Config.ASR.APIKeyEnv))
	checks = append(checks, checkEndpoint("tts.url", cfg.Config.TTS.URL, "http", "https"))
	checks = append(checks, checkAPIKey("tts.api_key", cfg.Config.TTS.APIKeyEnv))
	checks = append(checks, checkChatReachable(ctx, cfg.Config.Chat))

	if cfg.Config.Indicator.Enable {
		if strings.EqualFold(strings.TrimSpace(cfg.Config.Indicator.Backend), "desktop") {
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		} else {
			checks = append(checks, checkHyprland(ctx))
		}
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.input", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.input", Pass: true, Message: message}
}

// checkDefaultSink confirms a playback sink is available for speech output.
func checkDefaultSink(ctx context.Context) Check {
	sink, err := audio.DefaultSink(ctx)
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	return Check{Name: "audio.output", Pass: true, Message: fmt.Sprintf("default sink %q", sink.ID)}
}

// checkEndpoint validates that raw is an absolute URL with an allowed scheme.
func checkEndpoint(name string, raw string, schemes ...string) Check {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Check{Name: name, Pass: false, Message: "url is empty"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid url %q", raw)}
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return Check{Name: name, Pass: true, Message: raw}
		}
	}
	return Check{Name: name, Pass: false, Message: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
}

// checkAPIKey validates that the provider key variable is set.
func checkAPIKey(name string, envName string) Check {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return Check{Name: name, Pass: true, Message: "no api key configured"}
	}
	return checkEnv(envName, func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, fmt.Sprintf("%s is set", envName), fmt.Sprintf("%s is empty", envName))
}

// checkChatReachable probes the chat endpoint; any answer below 500 counts as up.
func checkChatReachable(ctx context.Context, cfg config.ChatConfig) Check {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return Check{Name: "chat.reachable", Pass: false, Message: "chat url is empty"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Check{Name: "chat.reachable", Pass: false, Message: fmt.Sprintf("invalid url: %v", err)}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "chat.reachable", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "chat.reachable", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
	}
	return Check{Name: "chat.reachable", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
}

// checkHyprland confirms a Hyprland session answers hyprctl queries.
func checkHyprland(ctx context.Context) Check {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return Check{Name: "hyprland", Pass: false, Message: "HYPRLAND_INSTANCE_SIGNATURE is empty"}
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	name, err := hypr.QueryFocusedMonitor(queryCtx)
	if err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprland", Pass: true, Message: fmt.Sprintf("focused monitor %q", name)}
}
