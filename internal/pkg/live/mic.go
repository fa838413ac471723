package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const micFramesPerBuffer = 512

// MicSource captures microphone audio via portaudio
type MicSource struct {
	lock       sync.Mutex
	stream     *portaudio.Stream
	buffer     []float32
	sampleRate int
	closed     bool
}

// NewMicSource opens the default input device
func NewMicSource() (*MicSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("can't init portaudio: %w", err)
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("can't get input device: %w", err)
	}
	rate := int(dev.DefaultSampleRate)
	buffer := make([]float32, micFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(rate), micFramesPerBuffer, buffer)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("can't open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("can't start audio stream: %w", err)
	}
	return &MicSource{stream: stream, buffer: buffer, sampleRate: rate}, nil
}

// Read blocks for the next buffer of samples
func (m *MicSource) Read(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil, fmt.Errorf("source closed")
	}
	if err := m.stream.Read(); err != nil {
		return nil, fmt.Errorf("can't read audio: %w", err)
	}
	res := make([]float32, len(m.buffer))
	copy(res, m.buffer)
	return res, nil
}

// SampleRate returns the device capture rate
func (m *MicSource) SampleRate() int {
	return m.sampleRate
}

// Close stops and releases the device
func (m *MicSource) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	_ = m.stream.Stop()
	err := m.stream.Close()
	if tErr := portaudio.Terminate(); tErr != nil && err == nil {
		err = tErr
	}
	return err
}
