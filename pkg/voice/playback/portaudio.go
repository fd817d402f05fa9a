package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const mixerBlockSamples = 1024

// PortAudioDevice renders scheduled voices through the default output
// device. A single mixer goroutine pulls sample blocks from the active
// voices in device-time order, so writes pace the device clock.
type PortAudioDevice struct {
	sampleRate int
	stream     *portaudio.Stream
	block      []float32

	mu      sync.Mutex
	voices  []*paVoice
	written int64
	closed  bool

	stop chan struct{}
	done sync.WaitGroup
}

type paVoice struct {
	start   int64
	samples []float32

	mu      sync.Mutex
	stopped bool

	doneOnce sync.Once
	doneCh   chan struct{}
}

func (v *paVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
	v.finish()
}

func (v *paVoice) Done() <-chan struct{} { return v.doneCh }

func (v *paVoice) finish() {
	v.doneOnce.Do(func() { close(v.doneCh) })
}

func (v *paVoice) isStopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

// OpenPortAudioDevice acquires the default output device at the given
// sample rate (mono) and starts the mixer.
func OpenPortAudioDevice(sampleRate int) (*PortAudioDevice, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize output: %w", err)
	}
	out, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open output device: %w", err)
	}

	block := make([]float32, mixerBlockSamples)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: 1,
			Latency:  out.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: len(block),
	}, block)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start output stream: %w", err)
	}

	d := &PortAudioDevice{
		sampleRate: sampleRate,
		stream:     stream,
		block:      block,
		stop:       make(chan struct{}),
	}
	d.done.Add(1)
	go d.run()
	return d, nil
}

// Now is the device clock: total samples handed to the output stream.
func (d *PortAudioDevice) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Duration(d.written) * time.Second / time.Duration(d.sampleRate)
}

// Start schedules mono samples to begin playing at device time `at`.
// Start positions in the past are clamped to the current write head.
func (d *PortAudioDevice) Start(at time.Duration, samples []float32, sampleRate int) (Voice, error) {
	if sampleRate != d.sampleRate {
		return nil, fmt.Errorf("chunk rate %d does not match device rate %d", sampleRate, d.sampleRate)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("output device is closed")
	}
	start := int64(at) * int64(d.sampleRate) / int64(time.Second)
	if start < d.written {
		start = d.written
	}
	v := &paVoice{start: start, samples: samples, doneCh: make(chan struct{})}
	d.voices = append(d.voices, v)
	return v, nil
}

func (d *PortAudioDevice) run() {
	defer d.done.Done()
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		d.renderBlock()
		if err := d.stream.Write(); err != nil {
			select {
			case <-d.stop:
			default:
				// Underruns are recoverable; keep feeding the stream.
			}
		}
	}
}

func (d *PortAudioDevice) renderBlock() {
	for i := range d.block {
		d.block[i] = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	blockStart := d.written
	blockEnd := blockStart + int64(len(d.block))

	kept := d.voices[:0]
	for _, v := range d.voices {
		if v.isStopped() {
			continue
		}
		voiceEnd := v.start + int64(len(v.samples))
		if voiceEnd <= blockStart {
			v.finish()
			continue
		}
		from := max64(v.start, blockStart)
		to := min64(voiceEnd, blockEnd)
		for s := from; s < to; s++ {
			d.block[s-blockStart] += v.samples[s-v.start]
		}
		if voiceEnd <= blockEnd {
			v.finish()
			continue
		}
		kept = append(kept, v)
	}
	d.voices = kept
	d.written = blockEnd
}

// Close stops the mixer and releases the output device.
func (d *PortAudioDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	remaining := d.voices
	d.voices = nil
	d.mu.Unlock()

	for _, v := range remaining {
		v.Stop()
	}
	close(d.stop)
	_ = d.stream.Abort()
	d.done.Wait()
	_ = d.stream.Close()
	portaudio.Terminate()
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
