package terminal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrTransport wraps every failure originating in the vendor transport so
// callers can tell a dead link from a protocol condition.
var ErrTransport = errors.New("terminal transport error")

// Transport is the black-box vendor driver that exchanges raw payloads with
// the PIN pad. It accepts one request at a time and delivers every response
// payload it receives, in request order, through the registered handler.
type Transport interface {
	Send(ctx context.Context, payload string) error
	Cancel(ctx context.Context) error
	SetResponseHandler(handler func(payload string))
	ClearResponseHandler()
}

// Executor isolates the Manager from the transport's request/response
// mechanics. It holds no protocol state.
type Executor struct {
	logger    *zap.Logger
	transport Transport
}

func NewExecutor(logger *zap.Logger, transport Transport) *Executor {
	return &Executor{
		logger:    logger,
		transport: transport,
	}
}

// Submit forwards a built request to the transport. It returns once the
// transport has accepted the payload for sending, not once a response
// arrives.
func (e *Executor) Submit(ctx context.Context, payload string) error {
	e.logger.Info("Submitting request to terminal",
		zap.Int("bytes", len(payload)),
		zap.String("payload", payload))

	if err := e.transport.Send(ctx, payload); err != nil {
		return fmt.Errorf("%w: submit: %v", ErrTransport, err)
	}
	return nil
}

// Cancel asks the transport to abort any outstanding exchange. The terminal
// is expected to answer with a response the normal dispatch path handles.
func (e *Executor) Cancel(ctx context.Context) error {
	e.logger.Info("Cancelling outstanding terminal exchange")

	if err := e.transport.Cancel(ctx); err != nil {
		return fmt.Errorf("%w: cancel: %v", ErrTransport, err)
	}
	return nil
}

// RegisterResponseHandler installs the single callback the transport will
// invoke for every payload it receives. The protocol carries no correlation
// id; the Manager interprets responses by its own in-flight state.
func (e *Executor) RegisterResponseHandler(handler func(payload string)) {
	e.transport.SetResponseHandler(handler)
}

// ClearHandlers removes the registered callback. Used during teardown.
func (e *Executor) ClearHandlers() {
	e.transport.ClearResponseHandler()
}
