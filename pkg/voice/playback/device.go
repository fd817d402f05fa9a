package playback

import "time"

// Device is the output clock and sink the scheduler plays into. Now is
// the device's monotonic time; Start schedules a buffer of mono float
// samples to begin at an absolute device time and returns a handle for
// the in-flight playback.
type Device interface {
	Now() time.Duration
	Start(at time.Duration, samples []float32, sampleRate int) (Voice, error)
	Close() error
}

// Voice is one scheduled-but-not-finished playback buffer.
type Voice interface {
	// Stop force-stops playback regardless of scheduled position.
	Stop()
	// Done is closed when the voice finishes, naturally or via Stop.
	Done() <-chan struct{}
}
