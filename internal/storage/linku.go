package storage

import (
	"context"
	"errors"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateConnection(ctx context.Context, c *models.LinkuConnection) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.Now()
	}
	if err := s.db(ctx).Create(c).Error; err != nil {
		return s.fail("create connection", err)
	}
	return nil
}

func (s *Service) FindConnection(ctx context.Context, id uint) (*models.LinkuConnection, error) {
	var c models.LinkuConnection
	if err := s.db(ctx).First(&c, id).Error; err != nil {
		return nil, s.notFound("find connection", err, apperr.ErrLinkuNotFound)
	}
	return &c, nil
}

// LockConnection reads the connection holding a row lock until the
// transaction ends.
func (s *Service) LockConnection(ctx context.Context, id uint) (*models.LinkuConnection, error) {
	var c models.LinkuConnection
	if err := s.forUpdate(s.db(ctx)).First(&c, id).Error; err != nil {
		return nil, s.notFound("lock connection", err, apperr.ErrLinkuNotFound)
	}
	return &c, nil
}

func (s *Service) SaveConnection(ctx context.Context, c *models.LinkuConnection) error {
	if err := s.db(ctx).Save(c).Error; err != nil {
		return s.fail("save connection", err)
	}
	return nil
}

// LatestConnection returns the room's newest connection in status, by
// (created_at, id), or nil.
func (s *Service) LatestConnection(ctx context.Context, roomID uint, status models.LinkuStatus) (*models.LinkuConnection, error) {
	var conns []models.LinkuConnection
	err := s.db(ctx).Where("room_id = ? AND status = ?", roomID, status).
		Order("created_at desc, id desc").
		Limit(1).
		Find(&conns).Error
	if err != nil {
		return nil, s.fail("latest connection", err)
	}
	if len(conns) == 0 {
		return nil, nil
	}
	return &conns[0], nil
}

func (s *Service) ConnectionStatuses(ctx context.Context, ids []uint) (map[uint]models.LinkuStatus, error) {
	out := make(map[uint]models.LinkuStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var conns []models.LinkuConnection
	if err := s.db(ctx).Select("id", "status").Where("id IN ?", ids).Find(&conns).Error; err != nil {
		return nil, s.fail("connection statuses", err)
	}
	for _, c := range conns {
		out[c.ID] = c.Status
	}
	return out, nil
}

// CompletedConnectionsFor lists accepted and reviewed connections involving
// uid, newest first.
func (s *Service) CompletedConnectionsFor(ctx context.Context, uid uint) ([]models.LinkuConnection, error) {
	var conns []models.LinkuConnection
	err := s.db(ctx).
		Where("status = ? AND completed = ?", models.LinkuAccepted, true).
		Where("(requester_uid = ? OR target_uid = ?)", uid, uid).
		Order("created_at desc, id desc").
		Find(&conns).Error
	if err != nil {
		return nil, s.fail("completed connections", err)
	}
	return conns, nil
}

func (s *Service) CreateReview(ctx context.Context, r *models.LinkuReview) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.Now()
	}
	if err := s.db(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrAlreadyReviewed
		}
		return s.fail("create review", err)
	}
	return nil
}

func (s *Service) ReviewExists(ctx context.Context, connectionID, reviewerUID uint) (bool, error) {
	var count int64
	err := s.db(ctx).Model(&models.LinkuReview{}).
		Where("connection_id = ? AND reviewer_uid = ?", connectionID, reviewerUID).
		Count(&count).Error
	if err != nil {
		return false, s.fail("review exists", err)
	}
	return count > 0, nil
}

func (s *Service) FindReview(ctx context.Context, id uint) (*models.LinkuReview, error) {
	var r models.LinkuReview
	if err := s.db(ctx).First(&r, id).Error; err != nil {
		return nil, s.notFound("find review", err, apperr.ErrReviewNotFound)
	}
	return &r, nil
}

func (s *Service) DeleteReview(ctx context.Context, id uint) error {
	res := s.db(ctx).Delete(&models.LinkuReview{}, id)
	if res.Error != nil {
		return s.fail("delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrReviewNotFound
	}
	return nil
}

// ReviewsForTarget lists reviews received by uid, newest first.
func (s *Service) ReviewsForTarget(ctx context.Context, uid uint) ([]models.LinkuReview, error) {
	var reviews []models.LinkuReview
	err := s.db(ctx).Where("target_uid = ?", uid).
		Order("created_at desc, id desc").
		Find(&reviews).Error
	if err != nil {
		return nil, s.fail("reviews for target", err)
	}
	return reviews, nil
}

// LatestReviews returns the newest review of each connection that has one.
func (s *Service) LatestReviews(ctx context.Context, connectionIDs []uint) (map[uint]models.LinkuReview, error) {
	out := make(map[uint]models.LinkuReview, len(connectionIDs))
	if len(connectionIDs) == 0 {
		return out, nil
	}
	var reviews []models.LinkuReview
	err := s.db(ctx).Where("connection_id IN ?", connectionIDs).
		Order("created_at desc, id desc").
		Find(&reviews).Error
	if err != nil {
		return nil, s.fail("latest reviews", err)
	}
	for _, r := range reviews {
		if _, seen := out[r.ConnectionID]; !seen {
			out[r.ConnectionID] = r
		}
	}
	return out, nil
}

func (s *Service) RatingStats(ctx context.Context, uid uint) (RatingStats, error) {
	var stats RatingStats

	var agg struct {
		ReviewCount int64
		Average     float64
	}
	err := s.db(ctx).Model(&models.LinkuReview{}).
		Select("COUNT(*) AS review_count, COALESCE(AVG(kindness), 0) AS average").
		Where("target_uid = ?", uid).
		Scan(&agg).Error
	if err != nil {
		return stats, s.fail("rating average", err)
	}
	stats.ReviewCount = agg.ReviewCount
	stats.AverageKindness = agg.Average

	err = s.db(ctx).Model(&models.LinkuConnection{}).
		Where("status = ?", models.LinkuAccepted).
		Where("(requester_uid = ? OR target_uid = ?)", uid, uid).
		Count(&stats.AcceptedCount).Error
	if err != nil {
		return stats, s.fail("accepted count", err)
	}
	err = s.db(ctx).Model(&models.LinkuConnection{}).
		Where("status = ? AND completed = ?", models.LinkuAccepted, false).
		Where("(requester_uid = ? OR target_uid = ?)", uid, uid).
		Count(&stats.OngoingCount).Error
	if err != nil {
		return stats, s.fail("ongoing count", err)
	}
	return stats, nil
}
