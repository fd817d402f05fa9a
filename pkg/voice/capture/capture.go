// Package capture owns the microphone input device and turns it into a
// stream of outbound PCM chunks.
package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/wildlens-ai/wildvoice/pkg/voice/pcm"
)

const (
	// DefaultSampleRate is the outbound wire rate for microphone audio.
	DefaultSampleRate = 16000
	// DefaultBlockSize is the number of samples pulled per device read.
	DefaultBlockSize = 4096
)

// DeviceError reports a missing or unusable input device. It is fatal to
// the session and surfaced to the user.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("audio device error during %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Config configures a capture source.
type Config struct {
	SampleRate int
	BlockSize  int
	Logger     *slog.Logger
}

// Source bridges the default input device to a callback of PCM chunks.
// The callback runs on the capture goroutine; it must not block.
type Source struct {
	sampleRate int
	blockSize  int
	logger     *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	stop    chan struct{}
	stopped sync.WaitGroup
	started bool
}

// New creates an unstarted capture source.
func New(cfg Config) *Source {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Source{
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		logger:     cfg.Logger,
	}
}

// Start acquires the default input device and begins delivering encoded
// chunks to onChunk. It fails with *DeviceError when no input device is
// available or the device cannot be opened.
func (s *Source) Start(onChunk func(pcm.Chunk)) error {
	if onChunk == nil {
		return fmt.Errorf("onChunk must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("capture already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Op: "initialize", Err: err}
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return &DeviceError{Op: "open input device", Err: err}
	}

	buffer := make([]float32, s.blockSize)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.sampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		portaudio.Terminate()
		return &DeviceError{Op: "open stream", Err: err}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return &DeviceError{Op: "start stream", Err: err}
	}

	s.stream = stream
	s.stop = make(chan struct{})
	s.started = true

	s.stopped.Add(1)
	go s.readLoop(stream, buffer, s.stop, onChunk)
	return nil
}

func (s *Source) readLoop(stream *portaudio.Stream, buffer []float32, stop <-chan struct{}, onChunk func(pcm.Chunk)) {
	defer s.stopped.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			select {
			case <-stop:
			default:
				s.logger.Warn("capture read failed", "error", err)
			}
			return
		}
		samples := make([]float32, len(buffer))
		copy(samples, buffer)
		onChunk(pcm.Encode(samples, s.sampleRate, 1))
	}
}

// Stop disconnects the input chain and releases the device. It is
// idempotent and safe to call even when Start never succeeded.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false

	close(s.stop)
	if s.stream != nil {
		_ = s.stream.Stop()
	}
	s.mu.Unlock()
	s.stopped.Wait()
	s.mu.Lock()

	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
	portaudio.Terminate()
}
