package models

import "time"

// Post is the subject of comment and like notifications. Only the author is
// read here; post CRUD lives elsewhere.
type Post struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);index;not null"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
