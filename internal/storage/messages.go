package storage

import (
	"context"
	"time"

	"linku/backend/internal/models"
)

// AppendMessage stores msg and assigns ID and CreatedAt. CreatedAt is the
// store clock, raised to the room's newest timestamp when the clock lags, so
// timestamps never go backwards inside a room.
func (s *Service) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	now := s.Now()
	latest, err := s.LatestMessage(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if latest != nil && latest.CreatedAt.After(now) {
		now = latest.CreatedAt
	}
	msg.ID = 0
	msg.CreatedAt = now
	msg.ReadFlag = false
	if err := s.db(ctx).Create(msg).Error; err != nil {
		return s.fail("append message", err)
	}
	return nil
}

// ListMessagesAfter returns the room's messages strictly newer than after,
// or all of them when after is nil, ascending by (created_at, id).
func (s *Service) ListMessagesAfter(ctx context.Context, roomID uint, after *time.Time) ([]models.ChatMessage, error) {
	q := s.db(ctx).Where("room_id = ?", roomID)
	if after != nil {
		q = q.Where("created_at > ?", after.UTC())
	}
	var msgs []models.ChatMessage
	if err := q.Order("created_at asc, id asc").Find(&msgs).Error; err != nil {
		return nil, s.fail("list messages", err)
	}
	return msgs, nil
}

// LatestMessage returns the newest message of the room, or nil.
func (s *Service) LatestMessage(ctx context.Context, roomID uint) (*models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db(ctx).Where("room_id = ?", roomID).
		Order("created_at desc, id desc").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, s.fail("latest message", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func (s *Service) MessageExistsAfter(ctx context.Context, roomID uint, ts time.Time) (bool, error) {
	var count int64
	err := s.db(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ? AND created_at > ?", roomID, ts.UTC()).
		Count(&count).Error
	if err != nil {
		return false, s.fail("message exists after", err)
	}
	return count > 0, nil
}

func (s *Service) CountUnread(ctx context.Context, roomID, receiverUID uint, after *time.Time) (int64, error) {
	q := s.db(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ? AND receiver_uid = ? AND read_flag = ?", roomID, receiverUID, false)
	if after != nil {
		q = q.Where("created_at > ?", after.UTC())
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, s.fail("count unread", err)
	}
	return count, nil
}

// MarkRead flips read_flag for unread messages addressed to receiverUID in the
// room with id up to throughID, and returns how many changed.
func (s *Service) MarkRead(ctx context.Context, roomID, receiverUID, throughID uint) (int64, error) {
	res := s.db(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ? AND receiver_uid = ? AND read_flag = ? AND id <= ?", roomID, receiverUID, false, throughID).
		Update("read_flag", true)
	if res.Error != nil {
		return 0, s.fail("mark read", res.Error)
	}
	return res.RowsAffected, nil
}
