// Package chat implements two-party rooms: writes, per-viewer history,
// unread counts, room listing and leave.
package chat

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"linku/backend/internal/apperr"
	"linku/backend/internal/catalog"
	"linku/backend/internal/chathub"
	"linku/backend/internal/config"
	"linku/backend/internal/models"
	"linku/backend/internal/platform/keylock"
	"linku/backend/internal/platform/logger"
	"linku/backend/internal/storage"
)

type Service struct {
	store storage.Storage
	posts catalog.PostCatalog
	bus   chathub.Publisher
	rooms *keylock.Map
	log   *logger.Logger
}

func NewService(store storage.Storage, posts catalog.PostCatalog, bus chathub.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		store: store,
		posts: posts,
		bus:   bus,
		rooms: keylock.New(),
		log:   log.With("component", "chat"),
	}
}

// Outgoing is a stored message to publish once its transaction commits.
type Outgoing struct {
	Message models.ChatMessage
	Status  *models.LinkuStatus
}

// WithRoom runs fn in a transaction holding the room, then publishes what fn
// returns. Appends and publishes of one room are serialized, so subscribers
// see messages in append order.
func (s *Service) WithRoom(ctx context.Context, roomID uint, fn func(tx storage.Storage, room *models.ChatRoom) ([]Outgoing, error)) ([]models.MessageView, error) {
	unlock := s.rooms.Lock(roomKey(roomID))
	defer unlock()

	var out []Outgoing
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		out, err = fn(tx, room)
		return err
	})
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(out))
	for i := range out {
		view := models.NewMessageView(&out[i].Message, out[i].Status)
		s.bus.Publish(chathub.RoomTopic(roomID), chathub.Event{Message: view})
		views = append(views, view)
	}
	return views, nil
}

func roomKey(id uint) string {
	return "room:" + strconv.FormatUint(uint64(id), 10)
}

// SendText persists a text message and publishes it on the room topic.
func (s *Service) SendText(ctx context.Context, senderUID, roomID, receiverUID uint, content string) (*models.MessageView, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if senderUID == receiverUID {
		return nil, apperr.ErrSelfSend
	}
	views, err := s.WithRoom(ctx, roomID, func(tx storage.Storage, room *models.ChatRoom) ([]Outgoing, error) {
		if err := checkPair(room, senderUID, receiverUID); err != nil {
			return nil, err
		}
		msg := models.ChatMessage{
			RoomID:      room.ID,
			SenderUID:   senderUID,
			ReceiverUID: receiverUID,
			Content:     content,
			Kind:        models.KindText,
		}
		if err := tx.AppendMessage(ctx, &msg); err != nil {
			return nil, err
		}
		return []Outgoing{{Message: msg}}, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("text sent", "room_id", roomID, "sender_uid", senderUID, "message_id", views[0].ID)
	return &views[0], nil
}

// Card is a LinkU lifecycle message.
type Card struct {
	SenderUID   uint
	ReceiverUID uint
	Content     string
	Kind        models.MessageKind
	LinkuRef    uint
	Status      models.LinkuStatus
}

// AppendCard stores a card inside a WithRoom callback. The caller returns the
// result from the callback so it gets published after commit.
func (s *Service) AppendCard(ctx context.Context, tx storage.Storage, room *models.ChatRoom, card Card) (Outgoing, error) {
	if !card.Kind.IsCard() {
		return Outgoing{}, apperr.Validation("INVALID_CARD", "kind %q is not a card", card.Kind)
	}
	if card.LinkuRef == 0 {
		return Outgoing{}, apperr.Validation("INVALID_CARD", "card requires a linku reference")
	}
	if err := validateContent(card.Content); err != nil {
		return Outgoing{}, err
	}
	if card.SenderUID == card.ReceiverUID {
		return Outgoing{}, apperr.ErrSelfSend
	}
	if err := checkPair(room, card.SenderUID, card.ReceiverUID); err != nil {
		return Outgoing{}, err
	}
	ref := card.LinkuRef
	msg := models.ChatMessage{
		RoomID:      room.ID,
		SenderUID:   card.SenderUID,
		ReceiverUID: card.ReceiverUID,
		Content:     card.Content,
		Kind:        card.Kind,
		LinkuRef:    &ref,
	}
	if err := tx.AppendMessage(ctx, &msg); err != nil {
		return Outgoing{}, err
	}
	status := card.Status
	return Outgoing{Message: msg, Status: &status}, nil
}

// History returns the viewer's projection of the room: everything after their
// latest exit, or everything when they never left. Messages addressed to the
// viewer are marked read in the same transaction, up to the last one listed.
// The room row is held so no append lands between the read and the mark.
func (s *Service) History(ctx context.Context, viewerUID, roomID uint) ([]models.MessageView, error) {
	var views []models.MessageView
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.HasParticipant(viewerUID) {
			return apperr.ErrNotParticipant
		}
		cut, err := tx.LatestExit(ctx, roomID, viewerUID)
		if err != nil {
			return err
		}
		msgs, err := tx.ListMessagesAfter(ctx, roomID, cut)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			if _, err := tx.MarkRead(ctx, roomID, viewerUID, msgs[len(msgs)-1].ID); err != nil {
				return err
			}
		}
		views, err = withStatuses(ctx, tx, msgs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func withStatuses(ctx context.Context, tx storage.Storage, msgs []models.ChatMessage) ([]models.MessageView, error) {
	var refs []uint
	for _, m := range msgs {
		if m.LinkuRef != nil {
			refs = append(refs, *m.LinkuRef)
		}
	}
	statuses, err := tx.ConnectionStatuses(ctx, refs)
	if err != nil {
		return nil, err
	}
	views := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		var status *models.LinkuStatus
		if ref := msgs[i].LinkuRef; ref != nil {
			if st, ok := statuses[*ref]; ok {
				status = &st
			}
		}
		views = append(views, models.NewMessageView(&msgs[i], status))
	}
	return views, nil
}

// Leave records a new cut for the viewer. Nothing is broadcast.
func (s *Service) Leave(ctx context.Context, viewerUID, roomID uint) error {
	if err := s.EnsureParticipant(ctx, viewerUID, roomID); err != nil {
		return err
	}
	at := s.store.Now()
	if err := s.store.RecordExit(ctx, roomID, viewerUID, at); err != nil {
		return err
	}
	s.log.Info("room left", "room_id", roomID, "viewer_uid", viewerUID)
	return nil
}

// Unread counts messages addressed to the viewer, after their cut, that are
// not read yet.
func (s *Service) Unread(ctx context.Context, viewerUID, roomID uint) (int64, error) {
	if err := s.EnsureParticipant(ctx, viewerUID, roomID); err != nil {
		return 0, err
	}
	cut, err := s.store.LatestExit(ctx, roomID, viewerUID)
	if err != nil {
		return 0, err
	}
	return s.store.CountUnread(ctx, roomID, viewerUID, cut)
}

func (s *Service) EnsureParticipant(ctx context.Context, uid, roomID uint) error {
	room, err := s.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(uid) {
		return apperr.ErrNotParticipant
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("EMPTY_CONTENT", "content must not be empty")
	}
	if utf8.RuneCountInString(content) > config.MaxMessageLength {
		return apperr.Validation("CONTENT_TOO_LONG", "content exceeds %d characters", config.MaxMessageLength)
	}
	return nil
}

func checkPair(room *models.ChatRoom, senderUID, receiverUID uint) error {
	if !room.HasParticipant(senderUID) || !room.HasParticipant(receiverUID) {
		return apperr.ErrNotParticipant
	}
	return nil
}
