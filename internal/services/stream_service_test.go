package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/anonto42/nano-midea/notifyfeed/internal/notifid"
	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/anonto42/nano-midea/notifyfeed/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type streamFixture struct {
	db         *gorm.DB
	seed       *testdb.Seed
	dismissals *DismissalService
	stream     *StreamService
	author     models.User
	fan        models.User
}

func newStreamFixture(t *testing.T) *streamFixture {
	db := testdb.Open(t)
	seed := testdb.NewSeed(t, db)
	dismissals := NewDismissalService(repositories.NewPostgresDismissalRepository(db),
		WithClock(tickingClock(1000)),
		WithBackgroundPrune(false, PruneOptions{}),
	)
	f := &streamFixture{
		db:         db,
		seed:       seed,
		dismissals: dismissals,
		stream: NewStreamService(dismissals,
			repositories.NewPostgresCommentRepository(db, repositories.NotBlockedEitherWay),
			repositories.NewPostgresLikeRepository(db, repositories.NotBlockedEitherWay),
			repositories.NewPostgresFollowRequestRepository(db, repositories.NotBlockedEitherWay),
		),
		author: seed.User("author"),
		fan:    seed.User("fan"),
	}
	seed.Post(1, f.author.ID)
	seed.Post(2, f.author.ID)
	return f
}

func streamIDs(resp *models.NotificationStreamResponse) []string {
	ids := make([]string, 0, len(resp.Notifications))
	for _, n := range resp.Notifications {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestFetchBudget(t *testing.T) {
	assert.Equal(t, 16, FetchBudget(16, 0))
	assert.Equal(t, 116, FetchBudget(16, 100))
	assert.Equal(t, 532, FetchBudget(32, 500))
	assert.Equal(t, 532, FetchBudget(1, 540))
}

func TestLoadStreamBackfillsPastDismissed(t *testing.T) {
	f := newStreamFixture(t)
	for i := 1; i <= 560; i++ {
		f.seed.Comment(int64(i), 1, f.fan.ID, testdb.Time(i))
	}
	// Dismiss the 540 newest comments (ids 21..560).
	for i := 560; i > 20; i-- {
		f.seed.Dismissal(f.author.ID, notifid.BuildCommentID(1, int64(i)), testdb.Time(10000+i))
	}

	resp, err := f.stream.LoadStream(context.Background(), f.author.ID, StreamOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"comment-1-20"}, streamIDs(resp))
}

func TestLoadStreamQueryCountIsConstant(t *testing.T) {
	f := newStreamFixture(t)
	for i := 1; i <= 300; i++ {
		f.seed.Comment(int64(i), 1, f.fan.ID, testdb.Time(i))
		f.seed.Dismissal(f.author.ID, notifid.BuildCommentID(1, int64(i)), testdb.Time(5000+i))
	}
	f.seed.Like(2, f.fan.ID, testdb.Time(10), nil)
	f.seed.FollowRequest(f.fan.ID, f.author.ID, testdb.Time(10))

	counter := testdb.CountQueries(t, f.db)
	resp, err := f.stream.LoadStream(context.Background(), f.author.ID, StreamOptions{})
	require.NoError(t, err)

	// Ledger, comments, likes and follow requests: one statement each.
	assert.Equal(t, 4, counter.Count())
	assert.Equal(t, []string{notifid.BuildLikeID(2, f.fan.ID)}, streamIDs(resp))
	assert.Len(t, resp.FollowRequests, 1)
}

func TestLoadStreamLikeResurfaces(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()
	f.seed.Like(1, f.fan.ID, testdb.Time(10), nil)
	likeID := notifid.BuildLikeID(1, f.fan.ID)

	_, err := f.dismissals.Dismiss(ctx, f.author.ID, likeID)
	require.NoError(t, err)

	resp, err := f.stream.LoadStream(ctx, f.author.ID, StreamOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.Notifications)

	// A re-like after the dismissal (clock starts at +1000s).
	require.NoError(t, f.db.Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", 1, f.fan.ID).
		Update("updated_at", testdb.Time(2000)).Error)

	resp, err = f.stream.LoadStream(ctx, f.author.ID, StreamOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{likeID}, streamIDs(resp))
	assert.True(t, testdb.Time(2000).Equal(*resp.Notifications[0].OccurredAt))
}

func TestLoadStreamLegacyLikeDismissal(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()
	f.seed.Like(2, f.fan.ID, testdb.Time(10), nil)
	f.seed.Dismissal(f.author.ID, notifid.LegacyLikeID(2), testdb.Time(100))

	resp, err := f.stream.LoadStream(ctx, f.author.ID, StreamOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.Notifications)

	require.NoError(t, f.db.Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", 2, f.fan.ID).
		Update("updated_at", testdb.Time(200)).Error)

	resp, err = f.stream.LoadStream(ctx, f.author.ID, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{notifid.BuildLikeID(2, f.fan.ID)}, streamIDs(resp))
}

func TestLoadStreamMergesAndFormats(t *testing.T) {
	f := newStreamFixture(t)
	other := f.seed.User("jane doe")
	f.seed.Comment(7, 1, f.fan.ID, testdb.Time(30))
	f.seed.Like(2, f.fan.ID, testdb.Time(40), nil)
	f.seed.Like(1, other.ID, testdb.Time(30), nil)
	f.seed.Comment(8, 2, other.ID, testdb.Time(20))
	f.seed.FollowRequest(other.ID, f.author.ID, testdb.Time(50))

	resp, err := f.stream.LoadStream(context.Background(), f.author.ID, StreamOptions{Limit: 3})
	require.NoError(t, err)

	// Ties at +30s: same post, comment before like.
	assert.Equal(t, []string{
		notifid.BuildLikeID(2, f.fan.ID),
		"comment-1-7",
		notifid.BuildLikeID(1, other.ID),
	}, streamIDs(resp))

	like := resp.Notifications[0]
	assert.Equal(t, models.EventKindLike, like.Kind)
	assert.Equal(t, "liked your post", like.Message)
	assert.Equal(t, "/posts/2", like.Href)
	require.NotNil(t, like.Username)
	assert.Equal(t, "fan", *like.Username)

	comment := resp.Notifications[1]
	assert.Equal(t, models.EventKindComment, comment.Kind)
	assert.Equal(t, "commented on your post", comment.Message)
	assert.Equal(t, "/posts/1", comment.Href)

	require.Len(t, resp.FollowRequests, 1)
	follow := resp.FollowRequests[0]
	assert.Equal(t, notifid.BuildFollowID(other.ID), follow.ID)
	assert.Equal(t, "jane doe", follow.Username)
	assert.Equal(t, "jane doe", follow.Name)
	assert.Equal(t, "/users/jane%20doe", follow.Href)

	assert.Equal(t, 4, resp.TotalCount)
}

func TestLoadStreamFollowRequestDismissal(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()
	f.seed.FollowRequest(f.fan.ID, f.author.ID, testdb.Time(10))

	_, err := f.dismissals.Dismiss(ctx, f.author.ID, notifid.BuildFollowID(f.fan.ID))
	require.NoError(t, err)

	resp, err := f.stream.LoadStream(ctx, f.author.ID, StreamOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.FollowRequests)

	// Withdrawn and requested again.
	require.NoError(t, f.db.Where("requester_id = ?", f.fan.ID).Delete(&models.FollowRequest{}).Error)
	f.seed.FollowRequest(f.fan.ID, f.author.ID, testdb.Time(5000))

	resp, err = f.stream.LoadStream(ctx, f.author.ID, StreamOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.FollowRequests, 1)
}

func TestStreamOptionsNormalize(t *testing.T) {
	assert.Equal(t, StreamOptions{Limit: 16, FollowLimit: 8}, StreamOptions{}.normalize())
	assert.Equal(t, StreamOptions{Limit: 32, FollowLimit: 32}, StreamOptions{Limit: 99, FollowLimit: 99}.normalize())
	assert.Equal(t, StreamOptions{Limit: 1, FollowLimit: 2}, StreamOptions{Limit: 1, FollowLimit: 2}.normalize())
}

func TestMergeEventsOrder(t *testing.T) {
	at := func(s int) *time.Time { return testdb.Ptr(testdb.Time(s)) }
	events := mergeEvents(
		[]models.NotificationEvent{
			{Kind: models.EventKindComment, PostID: 1, CommentID: 1, OccurredAt: nil},
			{Kind: models.EventKindComment, PostID: 1, CommentID: 2, OccurredAt: at(10)},
			{Kind: models.EventKindComment, PostID: 1, CommentID: 3, OccurredAt: at(10)},
		},
		[]models.NotificationEvent{
			{Kind: models.EventKindLike, PostID: 1, ActorID: "a", OccurredAt: at(10)},
			{Kind: models.EventKindLike, PostID: 1, ActorID: "b", OccurredAt: at(10)},
			{Kind: models.EventKindLike, PostID: 2, ActorID: "a", OccurredAt: at(10)},
			{Kind: models.EventKindLike, PostID: 9, ActorID: "z", OccurredAt: at(20)},
		},
	)

	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, eventID(e).String())
	}
	assert.Equal(t, []string{
		"like-9-z",
		"like-2-a",
		"comment-1-3",
		"comment-1-2",
		"like-1-b",
		"like-1-a",
		"comment-1-1",
	}, got)
}

func TestIsVisible(t *testing.T) {
	const actor = "5f1c2b9e-8d4a-4c3e-9b7a-2e6f0d1c3a4b"
	like := notifid.Like{PostID: 3, ActorID: actor}
	dismissed := map[string]time.Time{}
	dismissed["comment-1-1"] = testdb.Time(0)
	dismissed[like.String()] = testdb.Time(10)
	dismissed[like.Legacy().String()] = testdb.Time(20)
	dismissed["follow-"+actor] = testdb.Time(10)

	assert.False(t, isVisible(notifid.Comment{PostID: 1, CommentID: 1}, testdb.Ptr(testdb.Time(99)), dismissed))
	assert.True(t, isVisible(notifid.Comment{PostID: 1, CommentID: 2}, nil, dismissed))

	assert.False(t, isVisible(like, testdb.Ptr(testdb.Time(15)), dismissed), "legacy dismissal is newer")
	assert.False(t, isVisible(like, testdb.Ptr(testdb.Time(20)), dismissed), "equal time stays hidden")
	assert.True(t, isVisible(like, testdb.Ptr(testdb.Time(21)), dismissed))
	assert.False(t, isVisible(like, nil, dismissed))

	follow := notifid.Follow{ActorID: actor}
	assert.False(t, isVisible(follow, testdb.Ptr(testdb.Time(10)), dismissed))
	assert.True(t, isVisible(follow, testdb.Ptr(testdb.Time(11)), dismissed))
}

type failingComments struct{}

func (failingComments) RecentCommentEvents(context.Context, string, int) ([]models.NotificationEvent, error) {
	return nil, errors.New("comments unavailable")
}

func TestLoadStreamFailsWhenASourceFails(t *testing.T) {
	f := newStreamFixture(t)
	stream := NewStreamService(f.dismissals,
		failingComments{},
		repositories.NewPostgresLikeRepository(f.db, nil),
		repositories.NewPostgresFollowRequestRepository(f.db, nil),
	)

	_, err := stream.LoadStream(context.Background(), f.author.ID, StreamOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comments unavailable")
}
