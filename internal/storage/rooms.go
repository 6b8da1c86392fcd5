package storage

import (
	"context"
	"errors"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateRoom returns the unique room of the unordered pair {a, b}. The
// boolean reports whether this call created it. post_ref is only written on
// creation.
func (s *Service) GetOrCreateRoom(ctx context.Context, postRef *uint, a, b uint) (*models.ChatRoom, bool, error) {
	if a == b {
		return nil, false, apperr.ErrSelfChat
	}
	if room, err := s.findRoomByPair(ctx, a, b); err != nil || room != nil {
		return room, false, err
	}

	room := models.NewChatRoom(postRef, a, b)
	res := s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_low"}, {Name: "pair_high"}},
		DoNothing: true,
	}).Create(room)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, false, s.fail("create room", res.Error)
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return room, true, nil
	}

	// lost the race to a concurrent creator
	existing, err := s.findRoomByPair(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, s.fail("create room", errors.New("room vanished after conflict"))
	}
	return existing, false, nil
}

func (s *Service) findRoomByPair(ctx context.Context, a, b uint) (*models.ChatRoom, error) {
	low, high := models.OrderedPair(a, b)
	var rooms []models.ChatRoom
	if err := s.db(ctx).Where("pair_low = ? AND pair_high = ?", low, high).Limit(1).Find(&rooms).Error; err != nil {
		return nil, s.fail("find room by pair", err)
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return &rooms[0], nil
}

func (s *Service) FindRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := s.db(ctx).First(&room, id).Error; err != nil {
		return nil, s.notFound("find room", err, apperr.ErrRoomNotFound)
	}
	return &room, nil
}

// LockRoom reads the room holding a row lock until the transaction ends.
func (s *Service) LockRoom(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := s.forUpdate(s.db(ctx)).First(&room, id).Error; err != nil {
		return nil, s.notFound("lock room", err, apperr.ErrRoomNotFound)
	}
	return &room, nil
}

func (s *Service) RoomsForUID(ctx context.Context, uid uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := s.db(ctx).Where("(a_uid = ? OR b_uid = ?)", uid, uid).Order("id asc").Find(&rooms).Error; err != nil {
		return nil, s.fail("rooms for uid", err)
	}
	return rooms, nil
}
