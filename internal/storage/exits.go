package storage

import (
	"context"
	"time"

	"linku/backend/internal/models"
)

func (s *Service) RecordExit(ctx context.Context, roomID, uid uint, at time.Time) error {
	rec := models.ExitRecord{RoomID: roomID, UID: uid, ExitedAt: at.UTC()}
	if err := s.db(ctx).Create(&rec).Error; err != nil {
		return s.fail("record exit", err)
	}
	return nil
}

// LatestExit returns the viewer's cut for the room, or nil when they never left.
func (s *Service) LatestExit(ctx context.Context, roomID, uid uint) (*time.Time, error) {
	var recs []models.ExitRecord
	err := s.db(ctx).Where("room_id = ? AND uid = ?", roomID, uid).
		Order("exited_at desc, id desc").
		Limit(1).
		Find(&recs).Error
	if err != nil {
		return nil, s.fail("latest exit", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	ts := recs[0].ExitedAt.UTC()
	return &ts, nil
}
