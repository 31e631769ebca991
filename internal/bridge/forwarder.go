package bridge

import (
	"github.com/openterm/pinpad-bridge/internal/api/websocket"
	"github.com/openterm/pinpad-bridge/internal/dsixml"
	"github.com/openterm/pinpad-bridge/internal/terminal"
	"go.uber.org/zap"
)

// Broadcaster fans a message out to every connected app instance.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Forwarder translates the manager's typed listener callbacks into
// WebSocket messages for the app. Typed records degrade to JSON here and
// nowhere else.
type Forwarder struct {
	logger *zap.Logger
	hub    Broadcaster
}

func NewForwarder(logger *zap.Logger, hub Broadcaster) *Forwarder {
	return &Forwarder{
		logger: logger,
		hub:    hub,
	}
}

var _ terminal.TransactionListener = (*Forwarder)(nil)
var _ terminal.ConfigListener = (*Forwarder)(nil)

func (f *Forwarder) OnError(result dsixml.ErrorResult) {
	f.logger.Info("Forwarding transaction error",
		zap.String("return_code", result.ReturnCode))
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeTransactionError, result))
}

func (f *Forwarder) OnCardReadSuccessfully(data dsixml.CardData) {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeCardRead, data))
}

func (f *Forwarder) OnSaleTransactionCompleted(result dsixml.SaleResult) {
	f.logger.Info("Forwarding sale completion",
		zap.String("auth_code", result.AuthCode),
		zap.String("purchase", result.Amount.Purchase))
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeSaleCompleted, result))
}

func (f *Forwarder) OnRecurringSaleCompleted(result dsixml.RecurringSaleResult) {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeRecurringSaleCompleted, result))
}

func (f *Forwarder) OnCardReplaceTransactionCompleted(result dsixml.ZeroAuthResult) {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeCardReplaced, result))
}

func (f *Forwarder) OnClientVersionCompleted(result dsixml.ClientVersionResult) {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeClientVersion, result))
}

func (f *Forwarder) OnShowMessage(text string) {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeDisplayMessage,
		websocket.DisplayMessageData{Text: text}))
}

func (f *Forwarder) OnConfigError(text string) {
	f.logger.Warn("Forwarding config error", zap.String("message", text))
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeConfigError,
		websocket.DisplayMessageData{Text: text}))
}

func (f *Forwarder) OnConfigPingFailed() {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeConfigPingFailed, nil))
}

func (f *Forwarder) OnConfigPingSuccess() {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeConfigPingOK, nil))
}

func (f *Forwarder) OnConfigCompleted() {
	f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeConfigCompleted, nil))
}

// ObserveState returns a terminal.StateObserver that broadcasts state
// changes to the app.
func (f *Forwarder) ObserveState() terminal.StateObserver {
	return func(previous, current terminal.State) {
		f.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeStateChanged,
			websocket.StateChangeData{
				Current:  string(current.Current),
				Next:     string(current.Next),
				Previous: string(previous.Current),
			}))
	}
}
