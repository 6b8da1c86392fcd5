package models

import "time"

// MessageView is the wire shape of a chat message, used by the history
// endpoint and by live events.
type MessageView struct {
	ID          uint         `json:"id"`
	RoomID      uint         `json:"roomId"`
	SenderUID   uint         `json:"senderUid"`
	ReceiverUID uint         `json:"receiverUid"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"createdAt"`
	Kind        MessageKind  `json:"kind"`
	LinkuID     *uint        `json:"linkuId,omitempty"`
	LinkuStatus *LinkuStatus `json:"linkuStatus"`
}

// NewMessageView projects msg; status is the current status of msg.LinkuRef.
func NewMessageView(msg *ChatMessage, status *LinkuStatus) MessageView {
	return MessageView{
		ID:          msg.ID,
		RoomID:      msg.RoomID,
		SenderUID:   msg.SenderUID,
		ReceiverUID: msg.ReceiverUID,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt.UTC(),
		Kind:        msg.Kind,
		LinkuID:     msg.LinkuRef,
		LinkuStatus: status,
	}
}

// Frame types on the /ws stream.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameChatSend     = "chat.send"
	FrameMessage      = "message"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameError        = "error"
)

// InboundFrame is a client -> server frame.
type InboundFrame struct {
	Type        string `json:"type"`
	Topic       string `json:"topic,omitempty"`
	RoomID      uint   `json:"roomId,omitempty"`
	ReceiverUID uint   `json:"receiverUid,omitempty"`
	Content     string `json:"content,omitempty"`
}

// OutboundFrame is a server -> client frame.
type OutboundFrame struct {
	Type    string       `json:"type"`
	Topic   string       `json:"topic,omitempty"`
	Data    *MessageView `json:"data,omitempty"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}
