package models

import "time"

// UserBlock is a blocker -> blocked relationship. Either direction hides the
// other user's activity from the notification stream.
type UserBlock struct {
	BlockerID string    `json:"blocker_id" gorm:"primaryKey;type:varchar(36);index:ix_user_blocks_blocked_blocker,priority:2"`
	BlockedID string    `json:"blocked_id" gorm:"primaryKey;type:varchar(36);index:ix_user_blocks_blocked_blocker,priority:1"`
	CreatedAt time.Time `json:"created_at"`
}
