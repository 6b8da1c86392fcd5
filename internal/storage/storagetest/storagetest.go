// Package storagetest provides a migrated SQLite store and a settable clock
// for tests of packages built on storage.Service.
package storagetest

import (
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"linku/backend/internal/config"
	"linku/backend/internal/models"
	"linku/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Clock is a manually driven clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// At returns 2024-03-01 at hh:mm UTC, the base day used across tests.
func At(hh, mm int) time.Time {
	return time.Date(2024, 3, 1, hh, mm, 0, 0, time.UTC)
}

// OpenDB opens a migrated SQLite database in t's temp dir.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "linku.db") + "?_busy_timeout=5000"
	db, err := storage.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// New returns a Service over a fresh database driven by clock.
func New(t *testing.T, clock *Clock) *storage.Service {
	t.Helper()
	return storage.NewStorageService(OpenDB(t), storage.WithClock(clock.Now))
}

// SeedUsers inserts users with handle "user<id>" and username "User <id>".
func SeedUsers(t *testing.T, db *gorm.DB, ids ...uint) {
	t.Helper()
	for _, id := range ids {
		u := models.User{
			ID:       id,
			Username: "User " + strconv.FormatUint(uint64(id), 10),
			Handle:   "user" + strconv.FormatUint(uint64(id), 10),
			Major:    "CS",
		}
		require.NoError(t, db.Create(&u).Error)
	}
}
