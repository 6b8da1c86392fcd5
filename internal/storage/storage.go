package storage

import (
	"context"
	"errors"
	"time"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"
	"linku/backend/internal/platform/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the system of record for rooms, messages, exits and LinkU data.
// Every method honours ctx; inside Transaction the callback receives a Storage
// bound to the open transaction.
type Storage interface {
	// Rooms
	GetOrCreateRoom(ctx context.Context, postRef *uint, a, b uint) (*models.ChatRoom, bool, error)
	FindRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	LockRoom(ctx context.Context, id uint) (*models.ChatRoom, error)
	RoomsForUID(ctx context.Context, uid uint) ([]models.ChatRoom, error)

	// Messages
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessagesAfter(ctx context.Context, roomID uint, after *time.Time) ([]models.ChatMessage, error)
	LatestMessage(ctx context.Context, roomID uint) (*models.ChatMessage, error)
	MessageExistsAfter(ctx context.Context, roomID uint, ts time.Time) (bool, error)
	CountUnread(ctx context.Context, roomID, receiverUID uint, after *time.Time) (int64, error)
	MarkRead(ctx context.Context, roomID, receiverUID, throughID uint) (int64, error)

	// Exits
	RecordExit(ctx context.Context, roomID, uid uint, at time.Time) error
	LatestExit(ctx context.Context, roomID, uid uint) (*time.Time, error)

	// LinkU
	CreateConnection(ctx context.Context, c *models.LinkuConnection) error
	FindConnection(ctx context.Context, id uint) (*models.LinkuConnection, error)
	LockConnection(ctx context.Context, id uint) (*models.LinkuConnection, error)
	SaveConnection(ctx context.Context, c *models.LinkuConnection) error
	LatestConnection(ctx context.Context, roomID uint, status models.LinkuStatus) (*models.LinkuConnection, error)
	ConnectionStatuses(ctx context.Context, ids []uint) (map[uint]models.LinkuStatus, error)
	CompletedConnectionsFor(ctx context.Context, uid uint) ([]models.LinkuConnection, error)
	CreateReview(ctx context.Context, r *models.LinkuReview) error
	ReviewExists(ctx context.Context, connectionID, reviewerUID uint) (bool, error)
	FindReview(ctx context.Context, id uint) (*models.LinkuReview, error)
	DeleteReview(ctx context.Context, id uint) error
	ReviewsForTarget(ctx context.Context, uid uint) ([]models.LinkuReview, error)
	LatestReviews(ctx context.Context, connectionIDs []uint) (map[uint]models.LinkuReview, error)
	RatingStats(ctx context.Context, uid uint) (RatingStats, error)

	// Users
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindUsers(ctx context.Context, ids []uint) (map[uint]models.User, error)
	FindUserByHandle(ctx context.Context, handle string) (*models.User, error)

	Transaction(ctx context.Context, fn func(tx Storage) error) error
	Now() time.Time
}

// RatingStats holds the raw aggregates behind a user's rating summary.
type RatingStats struct {
	AverageKindness float64
	ReviewCount     int64
	OngoingCount    int64
	AcceptedCount   int64
}

type Service struct {
	DB    *gorm.DB
	log   *logger.Logger
	clock func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{DB: db, clock: time.Now, log: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "storage")
	return s
}

// Now returns the store clock in UTC at microsecond precision, which is what
// PostgreSQL keeps for timestamptz.
func (s *Service) Now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx, log: s.log, clock: s.clock})
	})
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return s.fail("transaction", err)
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// forUpdate adds a row lock. SQLite has no row locks and serializes writers
// on its own.
func (s *Service) forUpdate(q *gorm.DB) *gorm.DB {
	if s.DB.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *Service) fail(op string, err error) error {
	s.log.Error("storage operation failed", "op", op, "error", err)
	return apperr.Transient(err)
}

// notFound maps gorm.ErrRecordNotFound to sentinel and everything else to a
// transient failure.
func (s *Service) notFound(op string, err error, sentinel *apperr.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return s.fail(op, err)
}
