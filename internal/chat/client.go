// Package chat posts recognized commands to the conversational backend.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/vista/internal/version"
)

// DefaultFallbackReply is spoken when the backend answers with nothing.
const DefaultFallbackReply = "I'm sorry, I didn't understand that."

// Config controls the chat endpoint.
type Config struct {
	URL           string
	Timeout       time.Duration
	FallbackReply string
}

// Reply is one backend answer.
type Reply struct {
	Text    string
	Emotion string
}

// Client is a JSON-over-HTTP chat client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.FallbackReply) == "" {
		cfg.FallbackReply = DefaultFallbackReply
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
	Emotion  string `json:"emotion"`
}

// Send posts message and returns the reply. Transport failures and non-2xx
// statuses are errors; an empty answer becomes the fallback reply.
func (c *Client) Send(ctx context.Context, message string) (Reply, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Reply{}, fmt.Errorf("chat request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Reply{}, fmt.Errorf("decode chat response: %w", err)
	}

	reply := Reply{
		Text:    strings.TrimSpace(decoded.Response),
		Emotion: strings.TrimSpace(decoded.Emotion),
	}
	if reply.Text == "" {
		reply.Text = c.cfg.FallbackReply
	}
	if reply.Emotion == "" {
		reply.Emotion = "neutral"
	}
	return reply, nil
}
