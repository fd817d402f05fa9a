package transport

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wildlens-ai/wildvoice/pkg/voice/pcm"
)

const (
	defaultBidiBaseURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultConnectTimeout = 15 * time.Second
)

// BidiWS speaks the live wire protocol directly over a websocket,
// reproducing the transport contract byte-for-byte: outbound chunks as
// {"data": <base64 s16le pcm>, "mimeType": "audio/pcm;rate=16000"}
// inside realtimeInput, inbound audio as base64 inline data at 24 kHz
// alongside optional interrupted/turnComplete flags.
type BidiWS struct {
	Logger *slog.Logger
	Dialer *websocket.Dialer
}

// Wire message shapes. Field order and naming must match the remote
// protocol exactly.

type bidiSetup struct {
	Model             string         `json:"model"`
	GenerationConfig  *bidiGenConfig `json:"generationConfig,omitempty"`
	SystemInstruction *bidiContent   `json:"systemInstruction,omitempty"`
}

type bidiGenConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type bidiContent struct {
	Parts []bidiPart `json:"parts"`
}

type bidiPart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *bidiBlob `json:"inlineData,omitempty"`
}

type bidiBlob struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

type bidiClientMessage struct {
	Setup         *bidiSetup         `json:"setup,omitempty"`
	RealtimeInput *bidiRealtimeInput `json:"realtimeInput,omitempty"`
}

type bidiRealtimeInput struct {
	MediaChunks []bidiBlob `json:"mediaChunks"`
}

type bidiServerMessage struct {
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
	ServerContent *bidiServerContent `json:"serverContent,omitempty"`
	Error         *bidiServerError   `json:"error,omitempty"`
}

type bidiServerContent struct {
	ModelTurn    *bidiContent `json:"modelTurn,omitempty"`
	Interrupted  bool         `json:"interrupted,omitempty"`
	TurnComplete bool         `json:"turnComplete,omitempty"`
}

type bidiServerError struct {
	Message string `json:"message"`
}

// Open dials the websocket and performs setup asynchronously.
func (t *BidiWS) Open(cfg Config, cb Callbacks) Conn {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	c := &bidiConn{
		cfg:    cfg.withDefaults(),
		guard:  &callbackGuard{cb: cb},
		logger: logger,
	}
	go c.connect(dialer)
	return c
}

type bidiConn struct {
	cfg    Config
	guard  *callbackGuard
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *bidiConn) endpoint() (string, error) {
	base := strings.TrimSpace(c.cfg.BaseURL)
	if base == "" {
		base = defaultBidiBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *bidiConn) connect(dialer *websocket.Dialer) {
	wsURL, err := c.endpoint()
	if err != nil {
		c.guard.fail(&TransportError{Op: "dial", Err: err})
		return
	}

	d := *dialer
	d.HandshakeTimeout = defaultConnectTimeout
	conn, _, err := d.Dial(wsURL, nil)
	if err != nil {
		c.guard.fail(&TransportError{Op: "dial", Err: err})
		return
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	setup := bidiClientMessage{Setup: &bidiSetup{
		Model:            c.cfg.Model,
		GenerationConfig: &bidiGenConfig{ResponseModalities: []string{"AUDIO"}},
	}}
	if c.cfg.SystemPrompt != "" {
		setup.Setup.SystemInstruction = &bidiContent{
			Parts: []bidiPart{{Text: c.cfg.SystemPrompt}},
		}
	}
	if err := c.writeJSON(setup); err != nil {
		c.guard.fail(&TransportError{Op: "setup", Err: err})
		c.Close()
		return
	}

	c.readLoop(conn)
}

func (c *bidiConn) readLoop(conn *websocket.Conn) {
	for {
		var msg bidiServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if c.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.guard.remoteClose()
				return
			}
			c.guard.fail(&TransportError{Op: "read", Err: err})
			return
		}

		switch {
		case msg.SetupComplete != nil:
			c.guard.open()
		case msg.Error != nil:
			c.guard.emit(ErrorEvent{Err: fmt.Errorf("%s", msg.Error.Message)})
		case msg.ServerContent != nil:
			c.handleServerContent(msg.ServerContent)
		}
	}
}

func (c *bidiConn) handleServerContent(sc *bidiServerContent) {
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := pcm.DecodeTransport(part.InlineData.Data)
			if err != nil {
				c.logger.Warn("dropping undecodable audio chunk", "error", err)
				continue
			}
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

func (c *bidiConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("connection is not open")
	}
	return c.conn.WriteJSON(v)
}

// Send forwards one chunk as a realtimeInput media chunk.
func (c *bidiConn) Send(chunk pcm.Chunk) {
	if c.closed.Load() {
		c.logger.Debug("dropping outbound chunk, connection closed", "bytes", len(chunk.Data))
		return
	}
	msg := bidiClientMessage{RealtimeInput: &bidiRealtimeInput{
		MediaChunks: []bidiBlob{{
			Data:     pcm.EncodeTransport(chunk.Data),
			MIMEType: c.cfg.InputMIMEType(),
		}},
	}}
	if err := c.writeJSON(msg); err != nil {
		c.logger.Warn("send audio chunk failed", "error", err)
	}
}

// Close requests graceful termination. Idempotent.
func (c *bidiConn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			_ = conn.Close()
		}
	})
}
