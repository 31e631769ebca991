package bridge

import (
	"testing"

	"github.com/openterm/pinpad-bridge/internal/api/websocket"
	"github.com/openterm/pinpad-bridge/internal/dsixml"
	"github.com/openterm/pinpad-bridge/internal/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHub struct {
	messages []websocket.Message
}

func (r *recordingHub) Broadcast(msg websocket.Message) {
	r.messages = append(r.messages, msg)
}

func (r *recordingHub) last(t *testing.T) websocket.Message {
	t.Helper()
	require.NotEmpty(t, r.messages)
	return r.messages[len(r.messages)-1]
}

func newTestForwarder() (*Forwarder, *recordingHub) {
	hub := &recordingHub{}
	return NewForwarder(zap.NewNop(), hub), hub
}

func TestSaleCompletionBroadcastsTypedResult(t *testing.T) {
	f, hub := newTestForwarder()

	f.OnSaleTransactionCompleted(dsixml.SaleResult{
		AuthCode:      "ABC123",
		CaptureStatus: "Captured",
		AcctNo:        "************1234",
		CardType:      "VISA",
		Amount:        dsixml.Amount{Purchase: "12.50", Authorize: "12.50"},
	})

	msg := hub.last(t)
	assert.Equal(t, websocket.MessageTypeSaleCompleted, msg.Type)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())

	result, ok := msg.Data.(dsixml.SaleResult)
	require.True(t, ok)
	assert.Equal(t, "ABC123", result.AuthCode)
	assert.Equal(t, "12.50", result.Amount.Purchase)
}

func TestTransactionEventsMapToMessageTypes(t *testing.T) {
	f, hub := newTestForwarder()

	f.OnError(dsixml.ErrorResult{Envelope: dsixml.Envelope{ReturnCode: "100204"}})
	assert.Equal(t, websocket.MessageTypeTransactionError, hub.last(t).Type)

	f.OnRecurringSaleCompleted(dsixml.RecurringSaleResult{RecordNo: "REC42"})
	assert.Equal(t, websocket.MessageTypeRecurringSaleCompleted, hub.last(t).Type)

	f.OnCardReplaceTransactionCompleted(dsixml.ZeroAuthResult{})
	assert.Equal(t, websocket.MessageTypeCardReplaced, hub.last(t).Type)

	f.OnCardReadSuccessfully(dsixml.CardData{})
	assert.Equal(t, websocket.MessageTypeCardRead, hub.last(t).Type)

	f.OnClientVersionCompleted(dsixml.ClientVersionResult{Version: "1.77"})
	assert.Equal(t, websocket.MessageTypeClientVersion, hub.last(t).Type)

	assert.Len(t, hub.messages, 5)
}

func TestDisplayPromptBroadcastsText(t *testing.T) {
	f, hub := newTestForwarder()

	f.OnShowMessage("INSERT/TAP CARD")

	msg := hub.last(t)
	assert.Equal(t, websocket.MessageTypeDisplayMessage, msg.Type)

	data, ok := msg.Data.(websocket.DisplayMessageData)
	require.True(t, ok)
	assert.Equal(t, "INSERT/TAP CARD", data.Text)
}

func TestConfigEventsMapToMessageTypes(t *testing.T) {
	f, hub := newTestForwarder()

	f.OnConfigError("SETUP REQUIRED")
	msg := hub.last(t)
	assert.Equal(t, websocket.MessageTypeConfigError, msg.Type)
	data, ok := msg.Data.(websocket.DisplayMessageData)
	require.True(t, ok)
	assert.Equal(t, "SETUP REQUIRED", data.Text)

	f.OnConfigPingSuccess()
	assert.Equal(t, websocket.MessageTypeConfigPingOK, hub.last(t).Type)

	f.OnConfigPingFailed()
	assert.Equal(t, websocket.MessageTypeConfigPingFailed, hub.last(t).Type)

	f.OnConfigCompleted()
	assert.Equal(t, websocket.MessageTypeConfigCompleted, hub.last(t).Type)
}

func TestObserveStateBroadcastsTransition(t *testing.T) {
	f, hub := newTestForwarder()

	observe := f.ObserveState()
	observe(
		terminal.State{Current: terminal.OpSale, Next: terminal.OpReset},
		terminal.State{Current: terminal.OpReset, Next: terminal.OpNone},
	)

	msg := hub.last(t)
	assert.Equal(t, websocket.MessageTypeStateChanged, msg.Type)

	data, ok := msg.Data.(websocket.StateChangeData)
	require.True(t, ok)
	assert.Equal(t, "reset", data.Current)
	assert.Equal(t, "none", data.Next)
	assert.Equal(t, "sale", data.Previous)
}
