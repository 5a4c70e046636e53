package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
)

// PlaybackOptions describes one mono s16 playback stream.
type PlaybackOptions struct {
	SampleRate int
	// Sink is a Pulse sink name; empty or "default" uses the server default.
	Sink      string
	MediaName string
	// Latency in seconds. Zero selects a short default.
	Latency float64
}

// Player plays mono s16 PCM until it drains or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, samples []int16, opts PlaybackOptions) error
}

// PulsePlayer plays through a fresh Pulse client per stream.
type PulsePlayer struct{}

// Play implements Player.
func (PulsePlayer) Play(ctx context.Context, samples []int16, opts PlaybackOptions) error {
	return Play(ctx, samples, opts)
}

// Play streams samples to a Pulse sink and blocks until playback drains. A
// cancelled ctx cuts the stream short and returns ctx.Err().
func Play(ctx context.Context, samples []int16, opts PlaybackOptions) error {
	if len(samples) == 0 {
		return nil
	}
	if opts.SampleRate <= 0 {
		return fmt.Errorf("invalid playback sample rate %d", opts.SampleRate)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := newClient("audio-speakers")
	if err != nil {
		return err
	}
	defer client.Close()

	latency := opts.Latency
	if latency <= 0 {
		latency = 0.05
	}
	mediaName := strings.TrimSpace(opts.MediaName)
	if mediaName == "" {
		mediaName = "vista playback"
	}

	playOpts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(opts.SampleRate),
		pulse.PlaybackLatency(latency),
		pulse.PlaybackMediaName(mediaName),
	}
	if sinkName := strings.TrimSpace(opts.Sink); sinkName != "" && !strings.EqualFold(sinkName, "default") {
		sink, err := client.SinkByID(sinkName)
		if err != nil {
			return fmt.Errorf("resolve sink %q: %w", sinkName, err)
		}
		playOpts = append(playOpts, pulse.PlaybackSink(sink))
	}

	source := &sampleSource{samples: samples}
	stream, err := client.NewPlayback(pulse.Int16Reader(source.read), playOpts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			source.cancel()
		case <-done:
		}
	}()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}

// sampleSource feeds a fixed buffer to a playback stream.
type sampleSource struct {
	samples   []int16
	cursor    int
	cancelled atomic.Bool
}

func (s *sampleSource) read(buf []int16) (int, error) {
	if s.cancelled.Load() || s.cursor >= len(s.samples) {
		return 0, pulse.EndOfData
	}
	n := copy(buf, s.samples[s.cursor:])
	s.cursor += n
	if s.cursor >= len(s.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func (s *sampleSource) cancel() {
	s.cancelled.Store(true)
}

// ErrOddPCM reports a little-endian s16 payload with a dangling byte.
var ErrOddPCM = errors.New("pcm payload has an odd byte count")

// DecodePCM16LE converts little-endian s16 bytes into samples.
func DecodePCM16LE(raw []byte) ([]int16, error) {
	if len(raw)%2 != 0 {
		return nil, ErrOddPCM
	}
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return out, nil
}

// ApplyGain scales samples in place by gain, clipping at the s16 range.
func ApplyGain(samples []int16, gain float64) {
	if gain == 1 {
		return
	}
	if gain <= 0 {
		clear(samples)
		return
	}
	for i, sample := range samples {
		scaled := math.Round(float64(sample) * gain)
		switch {
		case scaled > math.MaxInt16:
			scaled = math.MaxInt16
		case scaled < math.MinInt16:
			scaled = math.MinInt16
		}
		samples[i] = int16(scaled)
	}
}

// ScaleRate returns the stream rate that plays audio recorded at rate with
// speed and pitch both multiplied by factor.
func ScaleRate(rate int, factor float64) int {
	if factor <= 0 {
		return rate
	}
	scaled := int(math.Round(float64(rate) * factor))
	if scaled < 1 {
		return 1
	}
	return scaled
}
