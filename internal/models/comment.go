package models

import "time"

// Comment represents a comment on a post
type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	PostID    int64     `json:"post_id" gorm:"index:ix_comments_post_created_at,priority:1;not null"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);index;not null"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:ix_comments_post_created_at,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}
