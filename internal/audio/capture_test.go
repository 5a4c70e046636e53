package audio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestCaptureOnPCMChunkingAndStopFlushesPending(t *testing.T) {
	capture := &Capture{
		chunks: make(chan []byte, 8),
		stopCh: make(chan struct{}),
	}

	input := make([]byte, chunkSizeBytes+111)
	for i := range input {
		input[i] = byte(i % 255)
	}

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), capture.BytesCaptured())
	require.Equal(t, len(input), len(capture.RawPCM()))

	firstChunk := <-capture.Chunks()
	require.Len(t, firstChunk, chunkSizeBytes)

	require.NoError(t, capture.Stop())

	remaining, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Len(t, remaining, 111)

	_, ok = <-capture.Chunks()
	require.False(t, ok)
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := &Capture{
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	close(capture.stopCh)

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.BytesCaptured())
}

func TestCaptureDeviceAndCloseAlias(t *testing.T) {
	capture := &Capture{
		device: Device{ID: "mic-1", Description: "Mic"},
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	_, ok := <-capture.Chunks()
	require.False(t, ok)
}
