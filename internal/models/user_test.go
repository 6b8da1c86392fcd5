package models_test

import (
	"reflect"
	"testing"

	"linku/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

// TestUserDisplayName verifies that the username wins over the login handle.
func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want string
	}{
		{name: "username set", user: &models.User{Username: "Kim", Handle: "kim01"}, want: "Kim"},
		{name: "handle fallback", user: &models.User{Handle: "kim01"}, want: "kim01"},
		{name: "nil user", user: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

// TestNewChatRoom_OrdersPair verifies that the pair columns do not depend on role order.
func TestNewChatRoom_OrdersPair(t *testing.T) {
	// Arrange
	post := uint(7)

	// Act
	r1 := models.NewChatRoom(&post, 1, 2)
	r2 := models.NewChatRoom(nil, 2, 1)

	// Assert
	assert.Equal(t, r1.PairLow, r2.PairLow)
	assert.Equal(t, r1.PairHigh, r2.PairHigh)
	assert.Equal(t, uint(1), r1.AUID, "owner is kept as a_uid")
	assert.Equal(t, uint(2), r2.AUID)
}

func TestChatRoomParticipants(t *testing.T) {
	room := models.NewChatRoom(nil, 4, 9)

	assert.True(t, room.HasParticipant(4))
	assert.True(t, room.HasParticipant(9))
	assert.False(t, room.HasParticipant(5))
	assert.False(t, room.HasParticipant(0))
	assert.Equal(t, uint(9), room.Other(4))
	assert.Equal(t, uint(4), room.Other(9))
}

func TestMessageKindIsCard(t *testing.T) {
	assert.False(t, models.KindText.IsCard())
	for _, k := range []models.MessageKind{models.KindLinkuPropose, models.KindLinkuAccept, models.KindLinkuReject, models.KindReviewNotice} {
		assert.True(t, k.IsCard(), string(k))
	}
}

// TestStructTags catches accidental removal of the indexes the stores rely on.
func TestStructTags(t *testing.T) {
	roomType := reflect.TypeOf(models.ChatRoom{})
	low, _ := roomType.FieldByName("PairLow")
	high, _ := roomType.FieldByName("PairHigh")
	assert.Contains(t, low.Tag.Get("gorm"), "uniqueIndex:idx_room_pair")
	assert.Contains(t, high.Tag.Get("gorm"), "uniqueIndex:idx_room_pair")

	reviewType := reflect.TypeOf(models.LinkuReview{})
	conn, _ := reviewType.FieldByName("ConnectionID")
	reviewer, _ := reviewType.FieldByName("ReviewerUID")
	assert.Contains(t, conn.Tag.Get("gorm"), "uniqueIndex:idx_review_conn_reviewer")
	assert.Contains(t, reviewer.Tag.Get("gorm"), "uniqueIndex:idx_review_conn_reviewer")

	userType := reflect.TypeOf(models.User{})
	handle, _ := userType.FieldByName("Handle")
	assert.Contains(t, handle.Tag.Get("gorm"), "column:user_id")
}
