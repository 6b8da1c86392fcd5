package chat

import (
	"context"
	"sort"
	"time"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"
)

// RoomView describes a room by its stored pair: the owner and the user who
// opened it.
type RoomView struct {
	RoomID   uint  `json:"roomId"`
	PostID   *uint `json:"postId"`
	OwnerUID uint  `json:"ownerUid"`
	OtherUID uint  `json:"otherUid"`
}

type RoomCard struct {
	RoomID               uint                `json:"roomId"`
	PostID               *uint               `json:"postId"`
	OtherUID             uint                `json:"otherUid"`
	OtherName            string              `json:"otherName"`
	OtherHandle          string              `json:"otherHandle"`
	OtherProfileImageURL string              `json:"otherProfileImageUrl"`
	LastMessage          string              `json:"lastMessage"`
	LastMessageKind      *models.MessageKind `json:"lastMessageKind"`
	LastMessageAt        *time.Time          `json:"lastMessageAt"`
	UnreadCount          int64               `json:"unreadCount"`
}

// OpenRoom returns the caller's room with ownerUID, creating it on first
// contact. When ownerUID is 0 the owner is the author of postID.
func (s *Service) OpenRoom(ctx context.Context, callerUID uint, postID *uint, ownerUID uint) (*RoomView, error) {
	if postID != nil {
		post, err := s.posts.Find(ctx, *postID)
		if err != nil {
			return nil, err
		}
		if ownerUID == 0 {
			ownerUID = post.AuthorID
		}
	}
	if ownerUID == 0 {
		return nil, apperr.Validation("OWNER_REQUIRED", "ownerUid or postId is required")
	}
	if ownerUID == callerUID {
		return nil, apperr.ErrSelfChat
	}
	if _, err := s.store.FindUser(ctx, ownerUID); err != nil {
		return nil, err
	}

	room, created, err := s.store.GetOrCreateRoom(ctx, postID, ownerUID, callerUID)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("room created", "room_id", room.ID, "owner_uid", ownerUID, "initiator_uid", callerUID)
	}
	return &RoomView{
		RoomID:   room.ID,
		PostID:   room.PostRef,
		OwnerUID: room.AUID,
		OtherUID: room.BUID,
	}, nil
}

// ListMyRooms returns the viewer's visible rooms, most recent activity first.
// A room is hidden when the viewer left it and nothing arrived since.
func (s *Service) ListMyRooms(ctx context.Context, viewerUID uint) ([]RoomCard, error) {
	rooms, err := s.store.RoomsForUID(ctx, viewerUID)
	if err != nil {
		return nil, err
	}

	others := make([]uint, 0, len(rooms))
	for i := range rooms {
		others = append(others, rooms[i].Other(viewerUID))
	}
	users, err := s.store.FindUsers(ctx, others)
	if err != nil {
		return nil, err
	}

	cards := make([]RoomCard, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		cut, err := s.store.LatestExit(ctx, room.ID, viewerUID)
		if err != nil {
			return nil, err
		}
		if cut != nil {
			visible, err := s.store.MessageExistsAfter(ctx, room.ID, *cut)
			if err != nil {
				return nil, err
			}
			if !visible {
				continue
			}
		}

		unread, err := s.store.CountUnread(ctx, room.ID, viewerUID, cut)
		if err != nil {
			return nil, err
		}
		latest, err := s.store.LatestMessage(ctx, room.ID)
		if err != nil {
			return nil, err
		}

		other := users[room.Other(viewerUID)]
		card := RoomCard{
			RoomID:               room.ID,
			PostID:               room.PostRef,
			OtherUID:             room.Other(viewerUID),
			OtherName:            other.DisplayName(),
			OtherHandle:          other.Handle,
			OtherProfileImageURL: other.ProfileImageURL,
			UnreadCount:          unread,
		}
		if latest != nil {
			at := latest.CreatedAt.UTC()
			kind := latest.Kind
			card.LastMessage = latest.Content
			card.LastMessageKind = &kind
			card.LastMessageAt = &at
		}
		cards = append(cards, card)
	}

	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i].LastMessageAt, cards[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return cards[i].RoomID > cards[j].RoomID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return cards[i].RoomID > cards[j].RoomID
		default:
			return a.After(*b)
		}
	})
	return cards, nil
}
