package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"CBProject/tools/errs"
)

// Live protocol event names.
const (
	// client -> server
	EvtRegister    = "register"
	EvtJoinChat    = "joinChat"
	EvtSendMessage = "sendMessage"

	// server -> client
	EvtMessage      = "message"
	EvtMessageSaved = "message-saved"
	EvtMessageError = "message-error"
	EvtNotification = "notification"
)

// Frame is the envelope for every event in both directions. AckID is chosen
// by the client on sendMessage and echoed on the saved/error reply so the
// client can correlate its acks.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
	AckID string         `json:"ackId,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame has no event")
	}
	return f, nil
}

// ---- inbound payloads ----

type RegisterPayload struct {
	UserID string `json:"userId"`
}

type JoinChatPayload struct {
	ChatID string `json:"chatId"`
}

type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	Kind     string `json:"kind"`
}

// ---- outbound payloads ----

// SenderMeta is the display metadata attached to outgoing messages.
type SenderMeta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// MessagePayload is the enriched message shape broadcast to the chat group
// and echoed back to the sender on message-saved.
type MessagePayload struct {
	ID        string     `json:"id"`
	ChatID    string     `json:"chatId"`
	Sender    SenderMeta `json:"sender"`
	Kind      string     `json:"kind"`
	Text      string     `json:"text,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	CreatedAt int64      `json:"createdAt"` // unix ms
}

// NotificationPayload is pushed to a recipient's personal group.
type NotificationPayload struct {
	ID        string           `json:"id"`
	Actor     SenderMeta       `json:"actor"`
	Type      string           `json:"type"`
	Data      NotificationData `json:"data"`
	CreatedAt int64            `json:"createdAt"` // unix ms
}

type NotificationData struct {
	ChatID  string `json:"chatId"`
	Preview string `json:"preview"`
}

type ErrorPayload struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// ---- frame builders ----

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	AckID string `json:"ackId,omitempty"`
}

func encodeFrame(event string, data any, ackID string) []byte {
	b, err := json.Marshal(outFrame{Event: event, Data: data, AckID: ackID})
	if err != nil {
		// outbound payload types only hold marshalable fields
		return []byte(`{"event":"` + event + `"}`)
	}
	return b
}

func BuildMessageFrame(m MessagePayload) []byte {
	return encodeFrame(EvtMessage, m, "")
}

func BuildMessageSavedFrame(m MessagePayload, ackID string) []byte {
	return encodeFrame(EvtMessageSaved, m, ackID)
}

func BuildMessageErrorFrame(err *errs.CodeError, ackID string) []byte {
	return encodeFrame(EvtMessageError, ErrorPayload{Code: err.Code, Error: err.Msg}, ackID)
}

func BuildNotificationFrame(n NotificationPayload) []byte {
	return encodeFrame(EvtNotification, n, "")
}

func unixMS(t time.Time) int64 { return t.UnixMilli() }
