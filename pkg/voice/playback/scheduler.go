// Package playback schedules inbound PCM chunks for gapless output-device
// playback and supports immediate flush on interruption.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wildlens-ai/wildvoice/pkg/voice/pcm"
)

// DefaultSampleRate is the inbound wire rate for synthesized speech.
const DefaultSampleRate = 24000

// Config configures a Scheduler.
type Config struct {
	Device     Device
	SampleRate int
	Logger     *slog.Logger

	// OnDrained fires when the last active voice completes naturally.
	// It never fires as a result of Flush or Teardown.
	OnDrained func()
}

// Scheduler maintains the playback cursor and the set of in-flight
// voices. The cursor is the absolute device time at which the next chunk
// begins; it only moves forward except on flush, where it resets to the
// device's current time.
type Scheduler struct {
	device     Device
	sampleRate int
	logger     *slog.Logger
	onDrained  func()

	mu     sync.Mutex
	cursor time.Duration
	active map[*entry]struct{}
	gen    uint64
	torn   bool
}

type entry struct {
	voice Voice
	gen   uint64
}

// New creates a scheduler over the given output device.
func New(cfg Config) *Scheduler {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		device:     cfg.Device,
		sampleRate: cfg.SampleRate,
		logger:     cfg.Logger,
		onDrained:  cfg.OnDrained,
	}
}

// Enqueue decodes a chunk and schedules it to begin at the later of the
// running cursor and the device's current time. Decode or device
// failures are logged and the chunk is dropped; the cursor is untouched.
func (s *Scheduler) Enqueue(chunk pcm.Chunk) {
	if len(chunk.Data) == 0 || len(chunk.Data)%2 != 0 {
		s.logger.Warn("dropping malformed audio chunk", "bytes", len(chunk.Data))
		return
	}
	channels := chunk.Channels
	if channels <= 0 {
		channels = 1
	}
	rate := chunk.SampleRate
	if rate <= 0 {
		rate = s.sampleRate
	}
	samples := pcm.Decode(chunk.Data, channels)[0]
	duration := time.Duration(len(samples)) * time.Second / time.Duration(rate)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return
	}

	start := s.cursor
	if now := s.device.Now(); now > start {
		start = now
	}
	voice, err := s.device.Start(start, samples, rate)
	if err != nil {
		s.logger.Warn("dropping chunk the output device rejected", "error", err)
		return
	}

	e := &entry{voice: voice, gen: s.gen}
	if s.active == nil {
		s.active = make(map[*entry]struct{})
	}
	s.active[e] = struct{}{}
	s.cursor = start + duration

	go s.watch(e)
}

func (s *Scheduler) watch(e *entry) {
	<-e.voice.Done()

	s.mu.Lock()
	if e.gen != s.gen {
		// Flushed while completing; the flush already settled the set.
		s.mu.Unlock()
		return
	}
	delete(s.active, e)
	drained := len(s.active) == 0
	onDrained := s.onDrained
	s.mu.Unlock()

	if drained && onDrained != nil {
		onDrained()
	}
}

// Flush force-stops every active voice, clears the set, and resets the
// cursor to the device's current time. Safe to call at any time,
// including with nothing scheduled.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Scheduler) flushLocked() {
	for e := range s.active {
		e.voice.Stop()
	}
	s.active = nil
	s.gen++
	s.cursor = s.device.Now()
}

// Teardown flushes and releases the output device. Idempotent.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return
	}
	s.flushLocked()
	s.torn = true
	if err := s.device.Close(); err != nil {
		s.logger.Warn("closing output device failed", "error", err)
	}
}

// ActiveCount reports the number of in-flight voices.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Cursor reports the device time at which the next chunk would begin.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
