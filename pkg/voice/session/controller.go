// Package session owns the voice session lifecycle: it connects the
// microphone, the remote agent transport, and the playback scheduler,
// and exposes a single observable status to the embedding shell.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/wildlens-ai/wildvoice/pkg/voice/pcm"
	"github.com/wildlens-ai/wildvoice/pkg/voice/transport"
)

// CaptureSource is the microphone input chain.
type CaptureSource interface {
	// Start begins delivering encoded chunks to onChunk on the capture
	// goroutine. The callback must not block.
	Start(onChunk func(pcm.Chunk)) error
	// Stop disconnects the chain and releases the device. Idempotent.
	Stop()
}

// Playback is the scheduling side of the output device.
type Playback interface {
	Enqueue(chunk pcm.Chunk)
	Flush()
	Teardown()
}

// Config wires a controller's collaborators.
type Config struct {
	Transport transport.Transport
	Capture   CaptureSource

	// NewPlayback builds the playback scheduler with the controller's
	// drain notification installed.
	NewPlayback func(onDrained func()) Playback

	Animal AnimalContext
	Model  string
	APIKey string

	// BaseURL overrides the remote endpoint for transports that take one.
	BaseURL string

	Logger *slog.Logger
}

// Controller drives one voice session from connect to teardown. All
// state mutation happens on a single event-loop goroutine; capture,
// transport, and playback callbacks post into its event channel.
type Controller struct {
	id       string
	cfg      Config
	logger   *slog.Logger
	playback Playback

	conn transport.Conn

	events chan loopEvent
	done   chan struct{}

	mu      sync.Mutex
	status  Status
	lastErr error
	updates chan StatusUpdate
}

type loopEventKind int

const (
	evOpened loopEventKind = iota
	evTransport
	evFailed
	evRemoteClosed
	evDrained
	evCloseRequested
)

type loopEvent struct {
	kind loopEventKind
	tev  transport.Event
	err  error
}

// New validates the wiring and returns an unstarted controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("session: Transport is required")
	}
	if cfg.Capture == nil {
		return nil, fmt.Errorf("session: Capture is required")
	}
	if cfg.NewPlayback == nil {
		return nil, fmt.Errorf("session: NewPlayback is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("session: Model is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Controller{
		id:      id,
		cfg:     cfg,
		logger:  logger.With("session_id", id),
		events:  make(chan loopEvent, 64),
		done:    make(chan struct{}),
		status:  StatusConnecting,
		updates: make(chan StatusUpdate, 16),
	}, nil
}

// ID is the unique identifier assigned at creation.
func (c *Controller) ID() string { return c.id }

// Start opens the transport and begins the event loop. The session
// reports progress through Status and Updates.
func (c *Controller) Start() {
	c.playback = c.cfg.NewPlayback(func() {
		c.post(loopEvent{kind: evDrained})
	})

	c.conn = c.cfg.Transport.Open(transport.Config{
		Model:        c.cfg.Model,
		SystemPrompt: c.cfg.Animal.SystemPrompt(),
		APIKey:       c.cfg.APIKey,
		BaseURL:      c.cfg.BaseURL,
	}, transport.Callbacks{
		OnOpen:  func() { c.post(loopEvent{kind: evOpened}) },
		OnEvent: func(e transport.Event) { c.post(loopEvent{kind: evTransport, tev: e}) },
		OnError: func(err error) { c.post(loopEvent{kind: evFailed, err: err}) },
		OnClose: func() { c.post(loopEvent{kind: evRemoteClosed}) },
	})

	go c.run()
}

// post delivers an event to the loop, dropping it once the session has
// reached a terminal state. Dropping is what makes stale callbacks from
// already-stopped collaborators harmless.
func (c *Controller) post(e loopEvent) {
	select {
	case <-c.done:
	case c.events <- e:
	}
}

func (c *Controller) run() {
	for e := range c.events {
		if terminal := c.handle(e); terminal {
			close(c.done)
			return
		}
	}
}

// handle processes one event and reports whether the session reached a
// terminal status.
func (c *Controller) handle(e loopEvent) bool {
	switch e.kind {
	case evOpened:
		if err := c.cfg.Capture.Start(c.conn.Send); err != nil {
			c.logger.Error("starting audio capture failed", "error", err)
			return c.fail(err)
		}
		c.setStatus(StatusListening)

	case evTransport:
		return c.handleTransportEvent(e.tev)

	case evFailed:
		c.logger.Error("transport failed", "error", e.err)
		return c.fail(e.err)

	case evRemoteClosed:
		c.logger.Info("remote ended the session")
		c.teardown()
		c.setStatus(StatusClosed)
		return true

	case evDrained:
		// Playback ran out with no turn-complete yet; the agent pauses
		// mid-utterance sometimes, stay ready for the next chunk.
		if c.Status() == StatusSpeaking {
			c.setStatus(StatusListening)
		}

	case evCloseRequested:
		c.teardown()
		c.setStatus(StatusClosed)
		return true
	}
	return false
}

func (c *Controller) handleTransportEvent(e transport.Event) bool {
	switch ev := e.(type) {
	case transport.AudioEvent:
		if len(ev.Data) == 0 {
			return false
		}
		c.playback.Enqueue(pcm.Chunk{
			Data:       ev.Data,
			SampleRate: transport.DefaultOutputSampleRate,
			Channels:   1,
		})
		c.setStatus(StatusSpeaking)

	case transport.InterruptedEvent:
		c.playback.Flush()
		c.setStatus(StatusListening)

	case transport.TurnCompleteEvent:
		c.setStatus(StatusListening)

	case transport.ErrorEvent:
		c.logger.Error("remote reported an error", "error", ev.Err)
		return c.fail(ev.Err)
	}
	return false
}

// fail runs the shared teardown path and pins the error status.
func (c *Controller) fail(err error) bool {
	c.teardown()
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.setStatus(StatusError)
	return true
}

// teardown releases every collaborator. Runs only on the loop
// goroutine, at most once, because every caller closes done after.
func (c *Controller) teardown() {
	c.cfg.Capture.Stop()
	c.playback.Teardown()
	c.conn.Close()
}

// Close requests session termination and waits for teardown to finish.
// Idempotent; safe to call from any goroutine except the event loop.
func (c *Controller) Close() {
	select {
	case <-c.done:
		return
	case c.events <- loopEvent{kind: evCloseRequested}:
	}
	<-c.done
}

// Done is closed once the session reaches a terminal status.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Status snapshots the current lifecycle status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err reports the fatal error, non-nil only in StatusError.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Updates streams status transitions. Slow consumers miss intermediate
// transitions rather than stalling the session.
func (c *Controller) Updates() <-chan StatusUpdate {
	return c.updates
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s || c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.status = s
	update := StatusUpdate{Status: s}
	if s == StatusError && c.lastErr != nil {
		update.Err = c.lastErr.Error()
	}
	c.mu.Unlock()

	c.logger.Debug("session status changed", "status", string(s))
	select {
	case c.updates <- update:
	default:
	}
}
