package websocket

import (
	"time"

	"github.com/google/uuid"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Transaction outcome messages
	MessageTypeSaleCompleted          MessageType = "sale_completed"
	MessageTypeRecurringSaleCompleted MessageType = "recurring_sale_completed"
	MessageTypeCardReplaced           MessageType = "card_replaced"
	MessageTypeCardRead               MessageType = "card_read"
	MessageTypeClientVersion          MessageType = "client_version"
	MessageTypeTransactionError       MessageType = "transaction_error"
	MessageTypeDisplayMessage         MessageType = "display_message"

	// Configuration messages
	MessageTypeConfigError      MessageType = "config_error"
	MessageTypeConfigPingOK     MessageType = "config_ping_ok"
	MessageTypeConfigPingFailed MessageType = "config_ping_failed"
	MessageTypeConfigCompleted  MessageType = "config_completed"

	// Machine state messages
	MessageTypeStateChanged MessageType = "state_changed"
)

// Message represents a WebSocket message
type Message struct {
	ID        uuid.UUID   `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// StateChangeData carries a state transition to the app.
type StateChangeData struct {
	Current  string `json:"current"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

// DisplayMessageData carries a terminal display prompt.
type DisplayMessageData struct {
	Text string `json:"text"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		ID:        uuid.New(),
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
