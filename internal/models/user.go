package models

// User is the account read model. Accounts are owned by the identity service;
// this backend only reads them for display and handle resolution.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `json:"username"`
	// Handle is the login id, stored in the user_id column.
	Handle          string `gorm:"column:user_id;uniqueIndex" json:"userId"`
	Email           string `json:"email"`
	Major           string `json:"major"`
	ProfileImageURL string `gorm:"column:profile_image_url" json:"profileImageUrl"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the username and falls back to the handle.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Handle
}

// TalentPost is the part of a talent post this backend needs for LinkU cards.
type TalentPost struct {
	ID       uint   `gorm:"primaryKey"`
	Title    string `gorm:"not null"`
	AuthorID uint   `gorm:"not null;index"`
}

func (TalentPost) TableName() string { return "talent_posts" }
