package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// The terminal frames every response as a complete TStream document; the
// closing root tag is the only delimiter on the wire.
const frameDelimiter = "</TStream>"

// cancelPayload aborts whatever exchange the terminal client has
// outstanding. The terminal answers with a normal response payload.
const cancelPayload = "<TStream><Admin><TranCode>CancelTransaction</TranCode></Admin></TStream>"

const readBufferSize = 4096

// TCP exchanges raw payloads with the PIN pad over a single TCP
// connection. Responses are delivered, in arrival order, to the handler
// registered via SetResponseHandler. Implements terminal.Transport.
type TCP struct {
	logger  *zap.Logger
	address string
	timeout time.Duration

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	handler   func(payload string)
}

func NewTCP(logger *zap.Logger, address string, timeout time.Duration) *TCP {
	return &TCP{
		logger:  logger,
		address: address,
		timeout: timeout,
	}
}

// Connect dials the PIN pad and starts the response pump.
func (t *TCP) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	conn, err := net.DialTimeout("tcp", t.address, t.timeout)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	t.conn = conn
	t.connected = true

	go t.readPump(conn)

	t.logger.Info("Connected to PIN pad", zap.String("address", t.address))
	return nil
}

// Close tears down the connection. The response pump exits on the read
// error that follows.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	t.connected = false

	return err
}

// Send writes one request payload. It returns once the payload is accepted
// by the socket; the response arrives later through the handler.
func (t *TCP) Send(ctx context.Context, payload string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return fmt.Errorf("not connected")
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	t.conn.SetWriteDeadline(deadline)

	if _, err := t.conn.Write([]byte(payload)); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Cancel asks the terminal to abort the outstanding exchange.
func (t *TCP) Cancel(ctx context.Context) error {
	return t.Send(ctx, cancelPayload)
}

// SetResponseHandler installs the single callback invoked for every
// response document the pump assembles.
func (t *TCP) SetResponseHandler(handler func(payload string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// ClearResponseHandler removes the callback. Documents arriving afterwards
// are dropped.
func (t *TCP) ClearResponseHandler() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = nil
}

// readPump accumulates bytes off the socket and delivers each complete
// TStream document. Partial reads are expected; the delimiter scan is
// case-insensitive to match the terminal's tag casing.
func (t *TCP) readPump(conn net.Conn) {
	var pending strings.Builder
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.mu.Lock()
			stillActive := t.connected && t.conn == conn
			if stillActive {
				t.conn = nil
				t.connected = false
			}
			t.mu.Unlock()

			if stillActive {
				t.logger.Error("PIN pad connection lost", zap.Error(err))
			}
			return
		}

		pending.Write(buf[:n])
		rest := pending.String()
		for {
			idx := indexDelimiter(rest)
			if idx < 0 {
				break
			}
			end := idx + len(frameDelimiter)
			t.deliver(rest[:end])
			rest = rest[end:]
		}
		pending.Reset()
		pending.WriteString(rest)
	}
}

func (t *TCP) deliver(document string) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	if handler == nil {
		t.logger.Warn("Response dropped, no handler registered",
			zap.Int("bytes", len(document)))
		return
	}
	handler(document)
}

func indexDelimiter(s string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(frameDelimiter))
}
