package linku

import "linku/backend/internal/models"

// StateView is the viewer-relative LinkU state of a room.
type StateView struct {
	Linked       bool                `json:"linked"`
	CanReview    bool                `json:"canReview"`
	ConnectionID *uint               `json:"connectionId"`
	Status       *models.LinkuStatus `json:"status"`
}

type ReviewRequest struct {
	RelationRating string `json:"relationRating"`
	KindnessScore  int    `json:"kindnessScore"`
	Content        string `json:"content"`
}

type ReviewView struct {
	ReviewID       uint   `json:"reviewId"`
	ConnectionID   uint   `json:"connectionId"`
	ReviewerUID    uint   `json:"reviewerUid"`
	ReviewerName   string `json:"reviewerName"`
	ReviewerMajor  string `json:"reviewerMajor"`
	RelationRating string `json:"relationRating"`
	KindnessScore  int    `json:"kindnessScore"`
	Content        string `json:"content"`
	CreatedAt      string `json:"createdAt"`
}

type RatingView struct {
	AverageScore  float64 `json:"averageScore"`
	ReviewCount   int64   `json:"reviewCount"`
	OngoingCount  int64   `json:"ongoingCount"`
	AcceptedCount int64   `json:"acceptedCount"`
}

type ConnectionView struct {
	ConnectionID            uint   `json:"connectionId"`
	RoomID                  uint   `json:"roomId"`
	ProposerUID             uint   `json:"proposerUid"`
	ProposerName            string `json:"proposerName"`
	ProposerProfileImageURL string `json:"proposerProfileImageUrl"`
	PartnerUID              uint   `json:"partnerUid"`
	PartnerName             string `json:"partnerName"`
	PartnerProfileImageURL  string `json:"partnerProfileImageUrl"`
	TalentPostID            *uint  `json:"talentPostId"`
	TalentPostTitle         string `json:"talentPostTitle"`
	StartDate               string `json:"startDate"`
	EndDate                 string `json:"endDate,omitempty"`
	Period                  string `json:"period"`
}

func stateOf(c *models.LinkuConnection, canReview bool) StateView {
	id := c.ID
	status := c.Status
	return StateView{
		Linked:       c.Status == models.LinkuAccepted,
		CanReview:    canReview,
		ConnectionID: &id,
		Status:       &status,
	}
}
