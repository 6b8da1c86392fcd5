package models

import "time"

// ChatRoom is a two-party conversation. AUID is the post owner and BUID the
// user who opened the chat, but lookups treat the pair as unordered through
// PairLow/PairHigh, which carry a unique index.
type ChatRoom struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// PostRef is the talent post the pair first talked about. Advisory only.
	PostRef *uint `gorm:"index" json:"postRef,omitempty"`
	AUID    uint  `gorm:"column:a_uid;not null;index" json:"aUid"`
	BUID    uint  `gorm:"column:b_uid;not null;index" json:"bUid"`

	PairLow  uint `gorm:"column:pair_low;not null;uniqueIndex:idx_room_pair"`
	PairHigh uint `gorm:"column:pair_high;not null;uniqueIndex:idx_room_pair"`

	CreatedAt time.Time
}

// NewChatRoom builds an unsaved room for owner a and initiator b.
func NewChatRoom(postRef *uint, a, b uint) *ChatRoom {
	low, high := OrderedPair(a, b)
	return &ChatRoom{PostRef: postRef, AUID: a, BUID: b, PairLow: low, PairHigh: high}
}

func OrderedPair(x, y uint) (uint, uint) {
	if x < y {
		return x, y
	}
	return y, x
}

func (r *ChatRoom) HasParticipant(uid uint) bool {
	return uid != 0 && (r.AUID == uid || r.BUID == uid)
}

// Other returns the participant that is not uid.
func (r *ChatRoom) Other(uid uint) uint {
	if r.AUID == uid {
		return r.BUID
	}
	return r.AUID
}
