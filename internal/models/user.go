package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the account record the notification sources join against for
// actor usernames and display names.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username    string    `json:"username" gorm:"size:64;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:120"`
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
	CreatedAt   time.Time `json:"created_at"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
