// Package testdb opens isolated in-memory SQLite databases with the
// notification schema for tests.
package testdb

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated database that is closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.FollowRequest{},
		&models.UserBlock{},
		&models.DismissedNotification{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// QueryCounter counts statements that read rows. Safe for concurrent use.
type QueryCounter struct {
	n atomic.Int64
}

// Count returns the number of statements seen so far.
func (q *QueryCounter) Count() int { return int(q.n.Load()) }

// Reset zeroes the counter.
func (q *QueryCounter) Reset() { q.n.Store(0) }

// CountQueries registers callbacks that count every Find, Scan and Raw
// statement issued through db.
func CountQueries(t testing.TB, db *gorm.DB) *QueryCounter {
	t.Helper()
	counter := &QueryCounter{}
	inc := func(*gorm.DB) { counter.n.Add(1) }
	name := "testdb:count_" + uuid.NewString()
	if err := db.Callback().Query().After("gorm:query").Register(name, inc); err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	if err := db.Callback().Row().After("gorm:row").Register(name, inc); err != nil {
		t.Fatalf("register row callback: %v", err)
	}
	return counter
}

// Seed creates related records with sensible defaults.
type Seed struct {
	t  testing.TB
	db *gorm.DB
}

// NewSeed returns a Seed bound to db.
func NewSeed(t testing.TB, db *gorm.DB) *Seed {
	return &Seed{t: t, db: db}
}

func (s *Seed) create(value interface{}) {
	s.t.Helper()
	if err := s.db.Create(value).Error; err != nil {
		s.t.Fatalf("seed %T: %v", value, err)
	}
}

// User creates a user with a fresh UUID and returns it.
func (s *Seed) User(username string) models.User {
	s.t.Helper()
	user := models.User{ID: uuid.NewString(), Username: username, Name: username, CreatedAt: Time(0)}
	s.create(&user)
	return user
}

// Post creates a post owned by authorID.
func (s *Seed) Post(id int64, authorID string) models.Post {
	s.t.Helper()
	post := models.Post{ID: id, AuthorID: authorID, CreatedAt: Time(0), UpdatedAt: Time(0)}
	s.create(&post)
	return post
}

// Comment creates a comment at the given time.
func (s *Seed) Comment(id, postID int64, authorID string, at time.Time) models.Comment {
	s.t.Helper()
	comment := models.Comment{ID: id, PostID: postID, AuthorID: authorID, Text: "hi", CreatedAt: at, UpdatedAt: at}
	s.create(&comment)
	return comment
}

// Like creates a like. updatedAt may be nil.
func (s *Seed) Like(postID int64, userID string, createdAt time.Time, updatedAt *time.Time) models.Like {
	s.t.Helper()
	like := models.Like{PostID: postID, UserID: userID, CreatedAt: createdAt, UpdatedAt: updatedAt}
	s.create(&like)
	return like
}

// FollowRequest creates a pending follow request.
func (s *Seed) FollowRequest(requesterID, targetID string, at time.Time) models.FollowRequest {
	s.t.Helper()
	req := models.FollowRequest{RequesterID: requesterID, TargetID: targetID, CreatedAt: at, UpdatedAt: at}
	s.create(&req)
	return req
}

// Block records blockerID blocking blockedID.
func (s *Seed) Block(blockerID, blockedID string) {
	s.t.Helper()
	s.create(&models.UserBlock{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: Time(0)})
}

// Dismissal writes a ledger row directly.
func (s *Seed) Dismissal(userID, notificationID string, at time.Time) models.DismissedNotification {
	s.t.Helper()
	rec := models.DismissedNotification{UserID: userID, NotificationID: notificationID, DismissedAt: at}
	s.create(&rec)
	return rec
}

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Time returns a whole-second UTC instant offset from a fixed epoch.
func Time(offsetSeconds int) time.Time {
	return epoch.Add(time.Duration(offsetSeconds) * time.Second)
}

// Ptr returns a pointer to t.
func Ptr(t time.Time) *time.Time { return &t }
