package models

import "time"

// ExitRecord marks a "leave" by UID in RoomID. Rows are only ever inserted;
// the newest ExitedAt per (room, uid) is the viewer's cut.
type ExitRecord struct {
	ID       uint      `gorm:"primaryKey"`
	RoomID   uint      `gorm:"not null;index:idx_exit_room_uid,priority:1"`
	UID      uint      `gorm:"column:uid;not null;index:idx_exit_room_uid,priority:2"`
	ExitedAt time.Time `gorm:"not null;index:idx_exit_room_uid,priority:3"`
}
