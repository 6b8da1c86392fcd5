package models

import "time"

type LinkuStatus string

const (
	LinkuPending  LinkuStatus = "PENDING"
	LinkuAccepted LinkuStatus = "ACCEPTED"
	LinkuRejected LinkuStatus = "REJECTED"
)

// LinkuConnection is one collaboration proposal inside a room. A room may hold
// several; the newest per status is authoritative.
type LinkuConnection struct {
	ID           uint        `gorm:"primaryKey"`
	RoomID       uint        `gorm:"not null;index"`
	PostRef      *uint       `gorm:"index"`
	RequesterUID uint        `gorm:"column:requester_uid;not null;index"`
	TargetUID    uint        `gorm:"column:target_uid;not null;index"`
	Status       LinkuStatus `gorm:"type:varchar(16);not null;index"`
	Completed    bool        `gorm:"not null"`
	CreatedAt    time.Time   `gorm:"not null"`
	AcceptedAt   *time.Time
	UpdatedAt    time.Time
}

func (LinkuConnection) TableName() string { return "linku_connections" }

func (c *LinkuConnection) Involves(uid uint) bool {
	return c.RequesterUID == uid || c.TargetUID == uid
}

type RelationRating string

const (
	RelationBad  RelationRating = "BAD"
	RelationGood RelationRating = "GOOD"
	RelationBest RelationRating = "BEST"
)

// LinkuReview is written by the connection's target about its requester.
// (ConnectionID, ReviewerUID) is unique.
type LinkuReview struct {
	ID           uint           `gorm:"primaryKey"`
	ConnectionID uint           `gorm:"not null;uniqueIndex:idx_review_conn_reviewer,priority:1"`
	ReviewerUID  uint           `gorm:"column:reviewer_uid;not null;uniqueIndex:idx_review_conn_reviewer,priority:2"`
	TargetUID    uint           `gorm:"column:target_uid;not null;index"`
	Relation     RelationRating `gorm:"type:varchar(8);not null"`
	Kindness     int            `gorm:"not null"`
	Content      string         `gorm:"type:text"`
	CreatedAt    time.Time      `gorm:"not null"`
}

func (LinkuReview) TableName() string { return "linku_reviews" }
