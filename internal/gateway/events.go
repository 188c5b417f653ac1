package gateway

import (
	"encoding/json"
	"time"

	"marsh-chat/internal/models"
)

// EventKind enumerates every realtime event. Client and server frames share
// one envelope: {"event": <kind>, "data": <payload>}.
type EventKind string

// Client -> server
const (
	EventAuthenticate     EventKind = "authenticate"
	EventRequestUserList  EventKind = "request_user_list"
	EventLoadConversation EventKind = "load_conversation"
	EventSendMessage      EventKind = "send_message"
	EventTyping           EventKind = "typing"
	EventMarkAsRead       EventKind = "mark_as_read"
)

// Server -> client
const (
	EventAuthFailed         EventKind = "auth_failed"
	EventUserList           EventKind = "user_list"
	EventUserStatusChanged  EventKind = "user_status_changed"
	EventConversationLoaded EventKind = "conversation_loaded"
	EventMessageSent        EventKind = "message_sent"
	EventNewMessage         EventKind = "new_message"
	EventUserTyping         EventKind = "user_typing"
	EventMessagesRead       EventKind = "messages_read"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client payloads
type (
	SendMessagePayload struct {
		Recipient string        `json:"recipient"`
		Text      string        `json:"text"`
		Media     *models.Media `json:"media,omitempty"`
		Type      string        `json:"type"`
	}

	TypingPayload struct {
		Recipient string `json:"recipient"`
		IsTyping  bool   `json:"isTyping"`
	}

	MarkAsReadPayload struct {
		ConversationID string `json:"conversationId"`
	}
)

// Server payloads
type (
	UserStatusPayload struct {
		Username string     `json:"username"`
		Online   bool       `json:"online"`
		LastSeen *time.Time `json:"lastSeen,omitempty"`
	}

	ConversationLoadedPayload struct {
		ConversationID string            `json:"conversationId"`
		Messages       []*models.Message `json:"messages"`
		OtherUser      string            `json:"otherUser"`
	}

	MessageSentPayload struct {
		ConversationID string          `json:"conversationId"`
		Message        *models.Message `json:"message"`
	}

	NewMessagePayload struct {
		ConversationID string          `json:"conversationId"`
		Message        *models.Message `json:"message"`
		From           string          `json:"from"`
	}

	UserTypingPayload struct {
		From     string `json:"from"`
		IsTyping bool   `json:"isTyping"`
	}

	MessagesReadPayload struct {
		ConversationID string `json:"conversationId"`
		Reader         string `json:"reader"`
	}
)

// Encode marshals an outbound event frame. The payload types above are all
// marshal-safe, so the error path only exists for programming mistakes.
func Encode(kind EventKind, data any) []byte {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		raw = encoded
	}
	frame, err := json.Marshal(&Envelope{Event: kind, Data: raw})
	if err != nil {
		return nil
	}
	return frame
}
