// Package tts synthesizes speech through an OpenAI-compatible speech endpoint
// and plays it through Pulse.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/vista/internal/audio"
	"github.com/rbright/vista/internal/version"
)

const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

// Config controls the speech endpoint.
type Config struct {
	URL        string
	Model      string
	APIKey     string
	SampleRate int
	Timeout    time.Duration
}

// Request is one synthesis call.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Client fetches raw s16le mono PCM for text.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a Client with cfg.Timeout applied per request.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("tts api key is not configured")

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize requests PCM for req.Text.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]int16, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errors.New("synthesis text is empty")
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          req.Voice,
		ResponseFormat: "pcm",
		Speed:          clampSpeed(req.Speed),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create speech request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("speech request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	samples, err := audio.DecodePCM16LE(raw)
	if err != nil {
		return nil, fmt.Errorf("decode speech response: %w", err)
	}
	return samples, nil
}

func clampSpeed(speed float64) float64 {
	switch {
	case speed <= 0:
		return 1
	case speed < minSpeed:
		return minSpeed
	case speed > maxSpeed:
		return maxSpeed
	default:
		return speed
	}
}
