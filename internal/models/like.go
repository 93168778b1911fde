package models

import "time"

// Like represents a like on a post. A re-like refreshes UpdatedAt, which is
// what lets a dismissed like notification come back. UpdatedAt is nil until
// the first re-like.
type Like struct {
	UserID    string     `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	PostID    int64      `json:"post_id" gorm:"primaryKey;index:ix_likes_post_updated_at,priority:1"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"autoUpdateTime:false;index:ix_likes_post_updated_at,priority:2"`
}
