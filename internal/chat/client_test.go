package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, body string) (*httptest.Server, <-chan chatRequest) {
	t.Helper()
	requests := make(chan chatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func TestSendReturnsReplyAndEmotion(t *testing.T) {
	srv, requests := newChatServer(t, http.StatusOK, `{"response":" It's 3pm. ","emotion":"happy"}`)

	reply, err := NewClient(Config{URL: srv.URL}).Send(context.Background(), "what time is it")
	require.NoError(t, err)
	require.Equal(t, Reply{Text: "It's 3pm.", Emotion: "happy"}, reply)
	require.Equal(t, chatRequest{Message: "what time is it"}, <-requests)
}

func TestSendFallsBackOnEmptyReply(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusOK, `{}`)

	reply, err := NewClient(Config{URL: srv.URL}).Send(context.Background(), "hmm")
	require.NoError(t, err)
	require.Equal(t, Reply{Text: DefaultFallbackReply, Emotion: "neutral"}, reply)

	reply, err = NewClient(Config{URL: srv.URL, FallbackReply: "Say again?"}).Send(context.Background(), "hmm")
	require.NoError(t, err)
	require.Equal(t, "Say again?", reply.Text)
}

func TestSendFailsOnErrorStatus(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusBadGateway, `upstream down`)

	_, err := NewClient(Config{URL: srv.URL}).Send(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
	require.Contains(t, err.Error(), "upstream down")
}

func TestSendFailsOnMalformedBody(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusOK, `not json`)

	_, err := NewClient(Config{URL: srv.URL}).Send(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode chat response")
}

func TestSendFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{URL: url}).Send(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "send chat request")
}
