package storage

import (
	"context"
	"strings"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"
)

func (s *Service) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).First(&u, id).Error; err != nil {
		return nil, s.notFound("find user", err, apperr.ErrUserNotFound)
	}
	return &u, nil
}

// FindUsers loads the given users keyed by id. Missing ids are absent.
func (s *Service) FindUsers(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, s.fail("find users", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Service) FindUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, apperr.ErrUserNotFound
	}
	var users []models.User
	if err := s.db(ctx).Where("user_id = ?", handle).Limit(1).Find(&users).Error; err != nil {
		return nil, s.fail("find user by handle", err)
	}
	if len(users) == 0 {
		return nil, apperr.ErrUserNotFound
	}
	return &users[0], nil
}
