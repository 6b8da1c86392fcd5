// Package linku implements the LinkU collaboration state machine, review
// intake and rating aggregation. Every transition emits a card into the
// room's chat.
package linku

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"linku/backend/internal/apperr"
	"linku/backend/internal/catalog"
	"linku/backend/internal/chat"
	"linku/backend/internal/config"
	"linku/backend/internal/localization"
	"linku/backend/internal/models"
	"linku/backend/internal/platform/keylock"
	"linku/backend/internal/platform/logger"
	"linku/backend/internal/storage"
)

type Service struct {
	store storage.Storage
	chat  *chat.Service
	posts catalog.PostCatalog
	texts *localization.Localizer
	conns *keylock.Map
	loc   *time.Location
	log   *logger.Logger
}

type Option func(*Service)

// WithLocation sets the zone used for human-readable dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(store storage.Storage, chatSvc *chat.Service, posts catalog.PostCatalog, texts *localization.Localizer, opts ...Option) *Service {
	s := &Service{
		store: store,
		chat:  chatSvc,
		posts: posts,
		texts: texts,
		conns: keylock.New(),
		loc:   time.UTC,
		log:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "linku")
	return s
}

func connKey(id uint) string {
	return "linku:" + strconv.FormatUint(uint64(id), 10)
}

// State reports the room's current LinkU for viewer: the newest ACCEPTED
// connection, else the newest PENDING one, else nothing.
func (s *Service) State(ctx context.Context, viewerUID, roomID uint) (StateView, error) {
	if err := s.chat.EnsureParticipant(ctx, viewerUID, roomID); err != nil {
		return StateView{}, err
	}
	current, err := s.store.LatestConnection(ctx, roomID, models.LinkuAccepted)
	if err != nil {
		return StateView{}, err
	}
	if current == nil {
		current, err = s.store.LatestConnection(ctx, roomID, models.LinkuPending)
		if err != nil {
			return StateView{}, err
		}
	}
	if current == nil {
		return StateView{}, nil
	}
	canReview, err := s.canReview(ctx, s.store, current, viewerUID)
	if err != nil {
		return StateView{}, err
	}
	return stateOf(current, canReview), nil
}

func (s *Service) canReview(ctx context.Context, st storage.Storage, c *models.LinkuConnection, viewerUID uint) (bool, error) {
	if c.Status != models.LinkuAccepted || c.Completed || c.TargetUID != viewerUID {
		return false, nil
	}
	reviewed, err := st.ReviewExists(ctx, c.ID, viewerUID)
	if err != nil {
		return false, err
	}
	return !reviewed, nil
}

// Propose opens a PENDING connection from requester to target and posts a
// LINKU_PROPOSE card. postRef defaults to the room's post.
func (s *Service) Propose(ctx context.Context, requesterUID, roomID, targetUID uint, postRef *uint, message string) (StateView, error) {
	if requesterUID == targetUID {
		return StateView{}, apperr.Validation("SELF_PROPOSE", "cannot propose a LinkU to yourself")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = s.texts.Text("linku.propose.default")
	}
	if utf8.RuneCountInString(message) > config.MaxMessageLength {
		return StateView{}, apperr.Validation("CONTENT_TOO_LONG", "message exceeds %d characters", config.MaxMessageLength)
	}
	if postRef != nil {
		if _, err := s.posts.Find(ctx, *postRef); err != nil {
			return StateView{}, err
		}
	}

	var conn models.LinkuConnection
	_, err := s.chat.WithRoom(ctx, roomID, func(tx storage.Storage, room *models.ChatRoom) ([]chat.Outgoing, error) {
		if !room.HasParticipant(requesterUID) || !room.HasParticipant(targetUID) {
			return nil, apperr.ErrNotParticipant
		}
		conn = models.LinkuConnection{
			RoomID:       room.ID,
			PostRef:      postRef,
			RequesterUID: requesterUID,
			TargetUID:    targetUID,
			Status:       models.LinkuPending,
			CreatedAt:    tx.Now(),
		}
		if conn.PostRef == nil {
			conn.PostRef = room.PostRef
		}
		if err := tx.CreateConnection(ctx, &conn); err != nil {
			return nil, err
		}
		card, err := s.chat.AppendCard(ctx, tx, room, chat.Card{
			SenderUID:   requesterUID,
			ReceiverUID: targetUID,
			Content:     message,
			Kind:        models.KindLinkuPropose,
			LinkuRef:    conn.ID,
			Status:      models.LinkuPending,
		})
		if err != nil {
			return nil, err
		}
		return []chat.Outgoing{card}, nil
	})
	if err != nil {
		return StateView{}, err
	}
	s.log.Info("linku proposed", "connection_id", conn.ID, "room_id", roomID, "requester_uid", requesterUID, "target_uid", targetUID)
	return stateOf(&conn, false), nil
}

// Accept moves a PENDING connection to ACCEPTED. Only the target may accept.
// Accepting an ACCEPTED connection that has no review yet is idempotent and
// keeps the first accepted_at.
func (s *Service) Accept(ctx context.Context, connectionID, actorUID uint) (StateView, error) {
	var state StateView
	err := s.transition(ctx, connectionID, actorUID, func(tx storage.Storage, c *models.LinkuConnection) (chat.Card, error) {
		switch {
		case c.Status == models.LinkuPending:
			now := tx.Now()
			c.AcceptedAt = &now
		case c.Status == models.LinkuAccepted && !c.Completed:
			if c.AcceptedAt == nil {
				now := tx.Now()
				c.AcceptedAt = &now
			}
		default:
			return chat.Card{}, apperr.ErrInvalidTransition.WithMessage("cannot accept a %s linku", strings.ToLower(describe(c)))
		}
		c.Status = models.LinkuAccepted
		c.Completed = false

		canReview, err := s.canReview(ctx, tx, c, actorUID)
		if err != nil {
			return chat.Card{}, err
		}
		state = stateOf(c, canReview)
		return chat.Card{
			SenderUID:   c.TargetUID,
			ReceiverUID: c.RequesterUID,
			Content:     s.texts.Text("linku.accept"),
			Kind:        models.KindLinkuAccept,
			LinkuRef:    c.ID,
			Status:      models.LinkuAccepted,
		}, nil
	})
	if err != nil {
		return StateView{}, err
	}
	return state, nil
}

// Reject moves a PENDING connection to REJECTED. Only the target may reject.
func (s *Service) Reject(ctx context.Context, connectionID, actorUID uint) error {
	return s.transition(ctx, connectionID, actorUID, func(_ storage.Storage, c *models.LinkuConnection) (chat.Card, error) {
		if c.Status != models.LinkuPending {
			return chat.Card{}, apperr.ErrInvalidTransition.WithMessage("cannot reject a %s linku", strings.ToLower(describe(c)))
		}
		c.Status = models.LinkuRejected
		c.Completed = false
		return chat.Card{
			SenderUID:   c.TargetUID,
			ReceiverUID: c.RequesterUID,
			Content:     s.texts.Text("linku.reject"),
			Kind:        models.KindLinkuReject,
			LinkuRef:    c.ID,
			Status:      models.LinkuRejected,
		}, nil
	})
}

// transition serializes actions on one connection: in process through the
// key lock and across processes through the row lock taken inside the room
// transaction. Authorization is checked before the state.
func (s *Service) transition(ctx context.Context, connectionID, actorUID uint, apply func(tx storage.Storage, c *models.LinkuConnection) (chat.Card, error)) error {
	unlock := s.conns.Lock(connKey(connectionID))
	defer unlock()

	existing, err := s.store.FindConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	var from, to models.LinkuStatus
	_, err = s.chat.WithRoom(ctx, existing.RoomID, func(tx storage.Storage, room *models.ChatRoom) ([]chat.Outgoing, error) {
		c, err := tx.LockConnection(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		if c.TargetUID != actorUID {
			return nil, apperr.ErrForbidden.WithMessage("only the invited user can answer this linku")
		}
		from = c.Status
		card, err := apply(tx, c)
		if err != nil {
			return nil, err
		}
		to = c.Status
		if err := tx.SaveConnection(ctx, c); err != nil {
			return nil, err
		}
		out, err := s.chat.AppendCard(ctx, tx, room, card)
		if err != nil {
			return nil, err
		}
		return []chat.Outgoing{out}, nil
	})
	if err != nil {
		return err
	}
	s.log.Info("linku transition", "connection_id", connectionID, "actor_uid", actorUID, "from", from, "to", to)
	return nil
}

func describe(c *models.LinkuConnection) string {
	if c.Status == models.LinkuAccepted && c.Completed {
		return "completed"
	}
	return string(c.Status)
}
