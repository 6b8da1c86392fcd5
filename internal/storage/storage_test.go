package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"
	"linku/backend/internal/storage"
	"linku/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*storage.Service, *storagetest.Clock) {
	clock := storagetest.NewClock(storagetest.At(10, 0))
	return storagetest.New(t, clock), clock
}

func ptr(v uint) *uint { return &v }

func TestGetOrCreateRoom_PairUniqueness(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	r1, created, err := s.GetOrCreateRoom(ctx, ptr(7), 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	r2, created, err := s.GetOrCreateRoom(ctx, ptr(9), 2, 1)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, r1.ID, r2.ID)
	require.NotNil(t, r2.PostRef)
	assert.Equal(t, uint(7), *r2.PostRef, "post_ref is never rebound")
	assert.Equal(t, uint(1), r2.AUID)
}

func TestGetOrCreateRoom_SelfChat(t *testing.T) {
	s, _ := newStore(t)

	_, _, err := s.GetOrCreateRoom(context.Background(), nil, 3, 3)

	assert.ErrorIs(t, err, apperr.ErrSelfChat)
}

func TestGetOrCreateRoom_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := uint(1), uint(2)
			if i%2 == 1 {
				a, b = b, a
			}
			room, _, err := s.GetOrCreateRoom(ctx, nil, a, b)
			errs[i] = err
			if room != nil {
				ids[i] = room.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	rooms, err := s.RoomsForUID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestFindRoomByID_NotFound(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.FindRoomByID(context.Background(), 404)

	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)
}

func appendText(t *testing.T, s *storage.Service, roomID, from, to uint, content string) models.ChatMessage {
	t.Helper()
	msg := models.ChatMessage{RoomID: roomID, SenderUID: from, ReceiverUID: to, Content: content, Kind: models.KindText}
	require.NoError(t, s.AppendMessage(context.Background(), &msg))
	return msg
}

func TestAppendMessage_OrderAndMonotonicTime(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)
	room, _, err := s.GetOrCreateRoom(ctx, nil, 1, 2)
	require.NoError(t, err)

	m1 := appendText(t, s, room.ID, 1, 2, "first")
	clock.Set(storagetest.At(9, 0)) // clock steps backwards
	m2 := appendText(t, s, room.ID, 2, 1, "second")

	assert.Greater(t, m2.ID, m1.ID)
	assert.False(t, m2.CreatedAt.Before(m1.CreatedAt))

	all, err := s.ListMessagesAfter(ctx, room.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Content)
	assert.Equal(t, "second", all[1].Content)

	latest, err := s.LatestMessage(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, m2.ID, latest.ID)
}

func TestListMessagesAfter_StrictCut(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)
	room, _, err := s.GetOrCreateRoom(ctx, nil, 1, 2)
	require.NoError(t, err)

	appendText(t, s, room.ID, 1, 2, "m1")
	clock.Set(storagetest.At(10, 1))
	m2 := appendText(t, s, room.ID, 1, 2, "m2")
	clock.Set(storagetest.At(10, 3))
	appendText(t, s, room.ID, 2, 1, "m3")

	after, err := s.ListMessagesAfter(ctx, room.ID, &m2.CreatedAt)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "m3", after[0].Content)

	exists, err := s.MessageExistsAfter(ctx, room.ID, storagetest.At(10, 3))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = s.MessageExistsAfter(ctx, room.ID, storagetest.At(10, 2))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUnreadAndMarkRead(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)
	room, _, err := s.GetOrCreateRoom(ctx, nil, 1, 2)
	require.NoError(t, err)

	appendText(t, s, room.ID, 1, 2, "hi")
	clock.Advance(time.Minute)
	appendText(t, s, room.ID, 1, 2, "there")
	last := appendText(t, s, room.ID, 2, 1, "yo")

	n, err := s.CountUnread(ctx, room.ID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cut := storagetest.At(10, 0)
	n, err = s.CountUnread(ctx, room.ID, 2, &cut)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only messages after the cut count")

	changed, err := s.MarkRead(ctx, room.ID, 2, last.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	n, err = s.CountUnread(ctx, room.ID, 2, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.CountUnread(ctx, room.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the other side is untouched")
}

func TestMarkRead_StopsAtBound(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	room, _, err := s.GetOrCreateRoom(ctx, nil, 1, 2)
	require.NoError(t, err)

	seen := appendText(t, s, room.ID, 1, 2, "seen")
	appendText(t, s, room.ID, 1, 2, "arrived later")

	changed, err := s.MarkRead(ctx, room.ID, 2, seen.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	n, err := s.CountUnread(ctx, room.ID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "a message past the bound stays unread")
}

func TestExitLog_LatestWins(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	none, err := s.LatestExit(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.RecordExit(ctx, 1, 2, storagetest.At(10, 5)))
	require.NoError(t, s.RecordExit(ctx, 1, 2, storagetest.At(11, 0)))
	require.NoError(t, s.RecordExit(ctx, 1, 3, storagetest.At(12, 0)))

	cut, err := s.LatestExit(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, cut)
	assert.True(t, cut.Equal(storagetest.At(11, 0)))
}

func TestTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	room, _, err := s.GetOrCreateRoom(ctx, nil, 1, 2)
	require.NoError(t, err)

	err = s.Transaction(ctx, func(tx storage.Storage) error {
		msg := models.ChatMessage{RoomID: room.ID, SenderUID: 1, ReceiverUID: 2, Content: "lost", Kind: models.KindText}
		if err := tx.AppendMessage(ctx, &msg); err != nil {
			return err
		}
		return apperr.ErrForbidden
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	msgs, err := s.ListMessagesAfter(ctx, room.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestReviews_UniqueAndStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	conn := models.LinkuConnection{RoomID: 1, RequesterUID: 1, TargetUID: 2, Status: models.LinkuAccepted}
	require.NoError(t, s.CreateConnection(ctx, &conn))
	open := models.LinkuConnection{RoomID: 2, RequesterUID: 3, TargetUID: 1, Status: models.LinkuAccepted}
	require.NoError(t, s.CreateConnection(ctx, &open))

	review := models.LinkuReview{ConnectionID: conn.ID, ReviewerUID: 2, TargetUID: 1, Relation: models.RelationGood, Kindness: 4}
	require.NoError(t, s.CreateReview(ctx, &review))
	conn.Completed = true
	require.NoError(t, s.SaveConnection(ctx, &conn))

	dup := models.LinkuReview{ConnectionID: conn.ID, ReviewerUID: 2, TargetUID: 1, Relation: models.RelationBest, Kindness: 5}
	assert.ErrorIs(t, s.CreateReview(ctx, &dup), apperr.ErrAlreadyReviewed)

	stats, err := s.RatingStats(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, stats.AverageKindness, 0.0001)
	assert.Equal(t, int64(1), stats.ReviewCount)
	assert.Equal(t, int64(2), stats.AcceptedCount)
	assert.Equal(t, int64(1), stats.OngoingCount)

	done, err := s.CompletedConnectionsFor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, conn.ID, done[0].ID)

	latest, err := s.LatestReviews(ctx, []uint{conn.ID, open.ID})
	require.NoError(t, err)
	assert.Len(t, latest, 1)
	assert.Equal(t, review.ID, latest[conn.ID].ID)
}

func TestRatingStats_Empty(t *testing.T) {
	s, _ := newStore(t)

	stats, err := s.RatingStats(context.Background(), 99)

	require.NoError(t, err)
	assert.Equal(t, storage.RatingStats{}, stats)
}

func TestLatestConnection_NewestPerStatus(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore(t)

	old := models.LinkuConnection{RoomID: 5, RequesterUID: 1, TargetUID: 2, Status: models.LinkuRejected}
	require.NoError(t, s.CreateConnection(ctx, &old))
	clock.Advance(time.Minute)
	p1 := models.LinkuConnection{RoomID: 5, RequesterUID: 1, TargetUID: 2, Status: models.LinkuPending}
	require.NoError(t, s.CreateConnection(ctx, &p1))
	p2 := models.LinkuConnection{RoomID: 5, RequesterUID: 1, TargetUID: 2, Status: models.LinkuPending}
	require.NoError(t, s.CreateConnection(ctx, &p2))

	got, err := s.LatestConnection(ctx, 5, models.LinkuPending)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, got.ID, "same created_at falls back to id")

	none, err := s.LatestConnection(ctx, 5, models.LinkuAccepted)
	require.NoError(t, err)
	assert.Nil(t, none)

	statuses, err := s.ConnectionStatuses(ctx, []uint{old.ID, p1.ID})
	require.NoError(t, err)
	assert.Equal(t, models.LinkuRejected, statuses[old.ID])
	assert.Equal(t, models.LinkuPending, statuses[p1.ID])
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	clock := storagetest.NewClock(storagetest.At(10, 0))
	db := storagetest.OpenDB(t)
	s := storage.NewStorageService(db, storage.WithClock(clock.Now))
	storagetest.SeedUsers(t, db, 1, 2)

	u, err := s.FindUserByHandle(ctx, "user2")
	require.NoError(t, err)
	assert.Equal(t, uint(2), u.ID)

	_, err = s.FindUserByHandle(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	_, err = s.FindUser(ctx, 3)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	users, err := s.FindUsers(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "User 1", users[1].Username)
}
