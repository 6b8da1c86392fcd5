package models

import "time"

type MessageKind string

const (
	KindText         MessageKind = "TEXT"
	KindLinkuPropose MessageKind = "LINKU_PROPOSE"
	KindLinkuAccept  MessageKind = "LINKU_ACCEPT"
	KindLinkuReject  MessageKind = "LINKU_REJECT"
	KindReviewNotice MessageKind = "REVIEW_NOTICE"
)

func (k MessageKind) IsCard() bool {
	switch k {
	case KindLinkuPropose, KindLinkuAccept, KindLinkuReject, KindReviewNotice:
		return true
	}
	return false
}

// ChatMessage is one persisted, append-only chat line.
// Ordering inside a room is (CreatedAt, ID).
type ChatMessage struct {
	ID uint `gorm:"primaryKey"`

	// RoomID is the room the message belongs to.
	RoomID uint `gorm:"not null;index:idx_msg_room_time,priority:1"`
	// SenderUID and ReceiverUID are the two participants; they never match.
	SenderUID   uint `gorm:"column:sender_uid;not null"`
	ReceiverUID uint `gorm:"column:receiver_uid;not null;index:idx_msg_unread,priority:1"`
	// Content is the text body, or the rendered card text for LinkU cards.
	Content string `gorm:"type:text;not null"`
	// CreatedAt is non-decreasing per room in insertion order.
	CreatedAt time.Time `gorm:"not null;index:idx_msg_room_time,priority:2"`
	// ReadFlag is the receiver's read receipt. It only moves false -> true.
	ReadFlag bool `gorm:"not null;index:idx_msg_unread,priority:2"`
	// Kind tags text lines and LinkU lifecycle cards.
	Kind MessageKind `gorm:"type:varchar(32);not null"`
	// LinkuRef points at the connection a card describes; nil for TEXT.
	LinkuRef *uint `gorm:"index"`
}
