package linku

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"linku/backend/internal/apperr"
	"linku/backend/internal/chat"
	"linku/backend/internal/config"
	"linku/backend/internal/models"
	"linku/backend/internal/storage"
)

func validateReview(req ReviewRequest) (models.RelationRating, error) {
	relation := models.RelationRating(strings.ToUpper(strings.TrimSpace(req.RelationRating)))
	if !config.RelationRatings[string(relation)] {
		return "", apperr.Validation("INVALID_RELATION", "relationRating must be BAD, GOOD or BEST")
	}
	if req.KindnessScore < config.MinKindness || req.KindnessScore > config.MaxKindness {
		return "", apperr.Validation("INVALID_KINDNESS", "kindnessScore must be between %d and %d", config.MinKindness, config.MaxKindness)
	}
	if utf8.RuneCountInString(req.Content) > config.MaxReviewLength {
		return "", apperr.Validation("CONTENT_TOO_LONG", "review exceeds %d characters", config.MaxReviewLength)
	}
	return relation, nil
}

// WriteReview records the target's review of the room's newest ACCEPTED
// connection, marks it completed and posts a REVIEW_NOTICE card to the
// requester.
func (s *Service) WriteReview(ctx context.Context, roomID, reviewerUID uint, req ReviewRequest) (*models.LinkuReview, error) {
	relation, err := validateReview(req)
	if err != nil {
		return nil, err
	}
	if err := s.chat.EnsureParticipant(ctx, reviewerUID, roomID); err != nil {
		return nil, err
	}
	latest, err := s.store.LatestConnection(ctx, roomID, models.LinkuAccepted)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, apperr.ErrNoActiveLinku
	}

	unlock := s.conns.Lock(connKey(latest.ID))
	defer unlock()

	var review models.LinkuReview
	_, err = s.chat.WithRoom(ctx, roomID, func(tx storage.Storage, room *models.ChatRoom) ([]chat.Outgoing, error) {
		c, err := tx.LockConnection(ctx, latest.ID)
		if err != nil {
			return nil, err
		}
		current, err := tx.LatestConnection(ctx, roomID, models.LinkuAccepted)
		if err != nil {
			return nil, err
		}
		if current == nil || current.ID != c.ID {
			return nil, apperr.ErrInvalidTransition.WithMessage("linku changed while writing the review, retry")
		}
		if c.TargetUID != reviewerUID {
			return nil, apperr.ErrForbidden.WithMessage("only the invited user can review this linku")
		}
		reviewed, err := tx.ReviewExists(ctx, c.ID, reviewerUID)
		if err != nil {
			return nil, err
		}
		if reviewed || c.Completed {
			return nil, apperr.ErrAlreadyReviewed
		}

		review = models.LinkuReview{
			ConnectionID: c.ID,
			ReviewerUID:  reviewerUID,
			TargetUID:    c.RequesterUID,
			Relation:     relation,
			Kindness:     req.KindnessScore,
			Content:      strings.TrimSpace(req.Content),
			CreatedAt:    tx.Now(),
		}
		if err := tx.CreateReview(ctx, &review); err != nil {
			return nil, err
		}
		c.Completed = true
		if err := tx.SaveConnection(ctx, c); err != nil {
			return nil, err
		}

		name := strconv.FormatUint(uint64(reviewerUID), 10)
		if u, err := tx.FindUser(ctx, reviewerUID); err == nil {
			name = u.DisplayName()
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		card, err := s.chat.AppendCard(ctx, tx, room, chat.Card{
			SenderUID:   reviewerUID,
			ReceiverUID: c.RequesterUID,
			Content:     s.texts.Text("linku.review_notice", name),
			Kind:        models.KindReviewNotice,
			LinkuRef:    c.ID,
			Status:      models.LinkuAccepted,
		})
		if err != nil {
			return nil, err
		}
		return []chat.Outgoing{card}, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("linku reviewed", "connection_id", review.ConnectionID, "review_id", review.ID, "reviewer_uid", reviewerUID)
	return &review, nil
}

// DeleteReview removes a review. Either side of the review may delete it;
// the connection stays completed.
func (s *Service) DeleteReview(ctx context.Context, actorUID, reviewID uint) error {
	review, err := s.store.FindReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if actorUID != review.ReviewerUID && actorUID != review.TargetUID {
		return apperr.ErrForbidden.WithMessage("only the reviewer or the reviewed user can delete this review")
	}
	if err := s.store.DeleteReview(ctx, reviewID); err != nil {
		return err
	}
	s.log.Info("review deleted", "review_id", reviewID, "actor_uid", actorUID)
	return nil
}

// Reviews lists reviews received by uid, newest first.
func (s *Service) Reviews(ctx context.Context, uid uint) ([]ReviewView, error) {
	reviews, err := s.store.ReviewsForTarget(ctx, uid)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ReviewerUID)
	}
	users, err := s.store.FindUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	layout := s.texts.Text("layout.review_date")
	out := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := ReviewView{
			ReviewID:       r.ID,
			ConnectionID:   r.ConnectionID,
			ReviewerUID:    r.ReviewerUID,
			RelationRating: string(r.Relation),
			KindnessScore:  r.Kindness,
			Content:        r.Content,
			CreatedAt:      r.CreatedAt.In(s.loc).Format(layout),
		}
		if u, ok := users[r.ReviewerUID]; ok {
			view.ReviewerName = u.DisplayName()
			view.ReviewerMajor = u.Major
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) ReviewsByHandle(ctx context.Context, handle string) ([]ReviewView, error) {
	u, err := s.store.FindUserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return s.Reviews(ctx, u.ID)
}

// Rating summarizes the reviews uid received and the connections they took
// part in. The average is rounded to one decimal.
func (s *Service) Rating(ctx context.Context, uid uint) (RatingView, error) {
	stats, err := s.store.RatingStats(ctx, uid)
	if err != nil {
		return RatingView{}, err
	}
	return RatingView{
		AverageScore:  math.Round(stats.AverageKindness*10) / 10,
		ReviewCount:   stats.ReviewCount,
		OngoingCount:  stats.OngoingCount,
		AcceptedCount: stats.AcceptedCount,
	}, nil
}

func (s *Service) RatingByHandle(ctx context.Context, handle string) (RatingView, error) {
	u, err := s.store.FindUserByHandle(ctx, handle)
	if err != nil {
		return RatingView{}, err
	}
	return s.Rating(ctx, u.ID)
}

// RatingByUID is Rating for a user that must exist.
func (s *Service) RatingByUID(ctx context.Context, uid uint) (RatingView, error) {
	if _, err := s.store.FindUser(ctx, uid); err != nil {
		return RatingView{}, err
	}
	return s.Rating(ctx, uid)
}

// MyConnections lists uid's completed connections, newest first, with both
// parties' profiles and the collaboration period.
func (s *Service) MyConnections(ctx context.Context, uid uint) ([]ConnectionView, error) {
	conns, err := s.store.CompletedConnectionsFor(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []ConnectionView{}, nil
	}

	connIDs := make([]uint, 0, len(conns))
	userIDs := make([]uint, 0, len(conns)*2)
	postRefs := make(map[uint]*uint, len(conns))
	for _, c := range conns {
		connIDs = append(connIDs, c.ID)
		userIDs = append(userIDs, c.RequesterUID, c.TargetUID)
		ref := c.PostRef
		if ref == nil {
			room, err := s.store.FindRoomByID(ctx, c.RoomID)
			if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
				return nil, err
			}
			if room != nil {
				ref = room.PostRef
			}
		}
		postRefs[c.ID] = ref
	}
	users, err := s.store.FindUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	ends, err := s.store.LatestReviews(ctx, connIDs)
	if err != nil {
		return nil, err
	}
	titles, err := s.posts.Titles(ctx, distinctRefs(postRefs))
	if err != nil {
		return nil, err
	}

	layout := s.texts.Text("layout.connection_date")
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		proposer, partner := users[c.RequesterUID], users[c.TargetUID]
		view := ConnectionView{
			ConnectionID:            c.ID,
			RoomID:                  c.RoomID,
			ProposerUID:             c.RequesterUID,
			ProposerName:            proposer.DisplayName(),
			ProposerProfileImageURL: proposer.ProfileImageURL,
			PartnerUID:              c.TargetUID,
			PartnerName:             partner.DisplayName(),
			PartnerProfileImageURL:  partner.ProfileImageURL,
			TalentPostID:            postRefs[c.ID],
		}
		if ref := postRefs[c.ID]; ref != nil {
			view.TalentPostTitle = titles[*ref]
		}
		view.StartDate = s.formatDate(startOf(&c), layout)
		if r, ok := ends[c.ID]; ok {
			view.EndDate = s.formatDate(r.CreatedAt, layout)
			view.Period = view.StartDate + " ~ " + view.EndDate
		} else {
			view.Period = view.StartDate + " ~ " + s.texts.Text("linku.period.ongoing")
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) formatDate(t time.Time, layout string) string {
	return t.In(s.loc).Format(layout)
}

func startOf(c *models.LinkuConnection) time.Time {
	if c.AcceptedAt != nil {
		return *c.AcceptedAt
	}
	return c.CreatedAt
}

func distinctRefs(refs map[uint]*uint) []uint {
	seen := make(map[uint]struct{}, len(refs))
	out := make([]uint, 0, len(refs))
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if _, ok := seen[*ref]; ok {
			continue
		}
		seen[*ref] = struct{}{}
		out = append(out, *ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
