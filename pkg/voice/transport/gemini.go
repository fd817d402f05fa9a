package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/wildlens-ai/wildvoice/pkg/voice/pcm"
)

// Gemini is the primary transport adapter, speaking the Gemini Live API
// through the official SDK.
type Gemini struct {
	Logger *slog.Logger
}

// Open starts an asynchronous connection attempt against the Live API.
func (t *Gemini) Open(cfg Config, cb Callbacks) Conn {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &geminiConn{
		cfg:    cfg.withDefaults(),
		guard:  &callbackGuard{cb: cb},
		logger: logger,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	go c.connect()
	return c
}

type geminiConn struct {
	cfg    Config
	guard  *callbackGuard
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session *genai.Session

	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *geminiConn) connect() {
	client, err := genai.NewClient(c.ctx, &genai.ClientConfig{
		APIKey:  c.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		c.guard.fail(&TransportError{Op: "create client", Err: err})
		return
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if c.cfg.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: c.cfg.SystemPrompt}},
		}
	}

	session, err := client.Live.Connect(c.ctx, c.cfg.Model, config)
	if err != nil {
		c.guard.fail(&TransportError{Op: "connect", Err: err})
		return
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = session.Close()
		return
	}
	c.session = session
	c.mu.Unlock()

	c.guard.open()
	c.receiveLoop(session)
}

func (c *geminiConn) receiveLoop(session *genai.Session) {
	for {
		msg, err := session.Receive()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if errors.Is(err, io.EOF) {
				c.guard.remoteClose()
				return
			}
			c.guard.fail(&TransportError{Op: "receive", Err: err})
			return
		}
		if msg == nil || msg.ServerContent == nil {
			continue
		}
		sc := msg.ServerContent
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				data := make([]byte, len(part.InlineData.Data))
				copy(data, part.InlineData.Data)
				c.guard.emit(AudioEvent{Data: data})
			}
		}
		if sc.Interrupted {
			c.guard.emit(InterruptedEvent{})
		}
		if sc.TurnComplete {
			c.guard.emit(TurnCompleteEvent{})
		}
	}
}

// Send forwards a chunk as realtime input. Drops are logged, not returned.
func (c *geminiConn) Send(chunk pcm.Chunk) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil || c.closed.Load() {
		c.logger.Debug("dropping outbound chunk, session not open", "bytes", len(chunk.Data))
		return
	}
	err := session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     chunk.Data,
			MIMEType: c.cfg.InputMIMEType(),
		},
	})
	if err != nil {
		c.logger.Warn("send audio chunk failed", "error", err)
	}
}

// Close tears the session down. Idempotent.
func (c *geminiConn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		c.mu.Lock()
		session := c.session
		c.session = nil
		c.mu.Unlock()
		if session != nil {
			_ = session.Close()
		}
	})
}
