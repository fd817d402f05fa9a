// Package transport abstracts the duplex channel to the remote
// conversational agent. Adapters open a session with a configuration
// payload, accept outbound audio chunks, and deliver an ordered stream
// of inbound events.
package transport

import (
	"fmt"
	"sync"

	"github.com/wildlens-ai/wildvoice/pkg/voice/pcm"
)

const (
	// DefaultInputSampleRate is the outbound microphone rate on the wire.
	DefaultInputSampleRate = 16000
	// DefaultOutputSampleRate is the inbound synthesized-speech rate.
	DefaultOutputSampleRate = 24000
)

// Config is the session configuration payload sent at open.
type Config struct {
	Model            string
	SystemPrompt     string
	APIKey           string
	InputSampleRate  int
	OutputSampleRate int

	// BaseURL overrides the remote endpoint (bidiws adapter only).
	BaseURL string
}

func (c Config) withDefaults() Config {
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = DefaultInputSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = DefaultOutputSampleRate
	}
	return c
}

// InputMIMEType is the wire mime type for outbound PCM chunks.
func (c Config) InputMIMEType() string {
	rate := c.InputSampleRate
	if rate <= 0 {
		rate = DefaultInputSampleRate
	}
	return fmt.Sprintf("audio/pcm;rate=%d", rate)
}

// Event is an inbound session event. The remote peer drives the order
// and interleaving of events.
type Event interface {
	event() string
}

// AudioEvent carries one synthesized PCM chunk, already decoded from the
// wire's text encoding.
type AudioEvent struct {
	Data []byte
}

func (AudioEvent) event() string { return "audio" }

// InterruptedEvent signals the user began speaking over the agent; any
// in-flight playback must flush immediately.
type InterruptedEvent struct{}

func (InterruptedEvent) event() string { return "interrupted" }

// TurnCompleteEvent signals the agent finished its utterance.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) event() string { return "turn_complete" }

// ErrorEvent carries a remote-reported error message.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) event() string { return "error" }

// Callbacks receive session lifecycle and inbound events. OnOpen fires
// exactly once on success; OnError at most once on terminal failure;
// OnClose at most once when the remote ends the session.
type Callbacks struct {
	OnOpen  func()
	OnEvent func(Event)
	OnError func(error)
	OnClose func()
}

// Transport opens duplex sessions to the remote agent.
type Transport interface {
	// Open begins an asynchronous connection attempt and returns its
	// handle immediately. Establishment results arrive via callbacks.
	Open(cfg Config, cb Callbacks) Conn
}

// Conn is the handle for an in-progress or established session.
type Conn interface {
	// Send forwards one outbound chunk. Sends on a connection that is
	// not open are dropped and logged, never returned as errors.
	Send(chunk pcm.Chunk)
	// Close requests graceful termination. Idempotent; safe on a handle
	// that never opened.
	Close()
}

// TransportError reports a connection failure or mid-session drop.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// callbackGuard enforces the exactly-once / at-most-once callback
// contract shared by the adapters.
type callbackGuard struct {
	cb       Callbacks
	openOnce sync.Once
	termOnce sync.Once
}

func (g *callbackGuard) open() {
	g.openOnce.Do(func() {
		if g.cb.OnOpen != nil {
			g.cb.OnOpen()
		}
	})
}

func (g *callbackGuard) emit(e Event) {
	if g.cb.OnEvent != nil {
		g.cb.OnEvent(e)
	}
}

func (g *callbackGuard) fail(err error) {
	g.termOnce.Do(func() {
		if g.cb.OnError != nil {
			g.cb.OnError(err)
		}
	})
}

func (g *callbackGuard) remoteClose() {
	g.termOnce.Do(func() {
		if g.cb.OnClose != nil {
			g.cb.OnClose()
		}
	})
}
