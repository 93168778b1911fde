package models

import "time"

// FollowRequest is a pending request to follow a private account.
type FollowRequest struct {
	RequesterID string    `json:"requester_id" gorm:"primaryKey;type:varchar(36)"`
	TargetID    string    `json:"target_id" gorm:"primaryKey;type:varchar(36);index:ix_follow_requests_target_created_at,priority:1"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:ix_follow_requests_target_created_at,priority:2"`
	UpdatedAt   time.Time `json:"updated_at"`
}
