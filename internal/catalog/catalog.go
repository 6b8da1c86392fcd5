// Package catalog reads talent posts owned by the post service. Only the
// fields LinkU needs for display are exposed.
package catalog

import (
	"context"
	"errors"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"

	"gorm.io/gorm"
)

type PostCatalog interface {
	Find(ctx context.Context, id uint) (*models.TalentPost, error)
	Titles(ctx context.Context, ids []uint) (map[uint]string, error)
}

type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) Find(ctx context.Context, id uint) (*models.TalentPost, error) {
	var post models.TalentPost
	if err := c.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrPostNotFound
		}
		return nil, apperr.Transient(err)
	}
	return &post, nil
}

func (c *GormCatalog) Titles(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var posts []models.TalentPost
	if err := c.db.WithContext(ctx).Select("id", "title").Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, apperr.Transient(err)
	}
	for _, p := range posts {
		out[p.ID] = p.Title
	}
	return out, nil
}
