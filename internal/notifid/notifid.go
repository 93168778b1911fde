// Package notifid builds, parses and validates the string identifiers used to
// match notification events against a user's dismissals.
//
// Supported formats:
//
//	comment-<postId>-<commentId>
//	like-<postId>-<actorUserId>
//	like-<postId>                 (legacy, matched but never produced)
//	follow-<actorUserId>
//
// Post and comment ids are positive integers, actor ids are canonical UUIDs.
package notifid

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	commentPrefix = "comment-"
	likePrefix    = "like-"
	followPrefix  = "follow-"
)

// ErrUnsupported is returned by Parse for any string that is not a known
// notification id shape.
var ErrUnsupported = errors.New("unsupported notification id")

// ID is one of Comment, Like, LegacyLike or Follow.
type ID interface {
	String() string
	isID()
}

// Comment identifies a comment left on one of the viewer's posts.
type Comment struct {
	PostID    int64
	CommentID int64
}

// Like identifies a like by a specific actor on one of the viewer's posts.
type Like struct {
	PostID  int64
	ActorID string
}

// LegacyLike is the pre-actor like id. It only exists in historical dismissals.
type LegacyLike struct {
	PostID int64
}

// Follow identifies a follow request from an actor.
type Follow struct {
	ActorID string
}

func (Comment) isID()    {}
func (Like) isID()       {}
func (LegacyLike) isID() {}
func (Follow) isID()     {}

func (c Comment) String() string    { return BuildCommentID(c.PostID, c.CommentID) }
func (l Like) String() string       { return BuildLikeID(l.PostID, l.ActorID) }
func (l LegacyLike) String() string { return LegacyLikeID(l.PostID) }
func (f Follow) String() string     { return BuildFollowID(f.ActorID) }

// Legacy returns the legacy id that used to identify likes on the same post.
func (l Like) Legacy() LegacyLike { return LegacyLike{PostID: l.PostID} }

// BuildCommentID formats a comment notification id.
func BuildCommentID(postID, commentID int64) string {
	return commentPrefix + strconv.FormatInt(postID, 10) + "-" + strconv.FormatInt(commentID, 10)
}

// BuildLikeID formats a like notification id.
func BuildLikeID(postID int64, actorID string) string {
	return likePrefix + strconv.FormatInt(postID, 10) + "-" + actorID
}

// LegacyLikeID formats the old like id shape. Only used to look up
// historical dismissals.
func LegacyLikeID(postID int64) string {
	return likePrefix + strconv.FormatInt(postID, 10)
}

// BuildFollowID formats a follow request notification id.
func BuildFollowID(actorID string) string {
	return followPrefix + actorID
}

// Parse decodes s into one of the ID variants.
func Parse(s string) (ID, error) {
	switch {
	case strings.HasPrefix(s, commentPrefix):
		parts := strings.Split(strings.TrimPrefix(s, commentPrefix), "-")
		if len(parts) != 2 {
			return nil, ErrUnsupported
		}
		postID, ok := parsePositiveInt(parts[0])
		if !ok {
			return nil, ErrUnsupported
		}
		commentID, ok := parsePositiveInt(parts[1])
		if !ok {
			return nil, ErrUnsupported
		}
		return Comment{PostID: postID, CommentID: commentID}, nil

	case strings.HasPrefix(s, likePrefix):
		// UUIDs contain dashes, so only the first separator is significant.
		rest := strings.TrimPrefix(s, likePrefix)
		head, actor, hasActor := strings.Cut(rest, "-")
		postID, ok := parsePositiveInt(head)
		if !ok {
			return nil, ErrUnsupported
		}
		if !hasActor {
			return LegacyLike{PostID: postID}, nil
		}
		if !isCanonicalUUID(actor) {
			return nil, ErrUnsupported
		}
		return Like{PostID: postID, ActorID: actor}, nil

	case strings.HasPrefix(s, followPrefix):
		actor := strings.TrimPrefix(s, followPrefix)
		if !isCanonicalUUID(actor) {
			return nil, ErrUnsupported
		}
		return Follow{ActorID: actor}, nil
	}
	return nil, ErrUnsupported
}

// IsSupported reports whether s is a well-formed notification id. Client
// supplied ids must pass this before they are stored.
func IsSupported(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// parsePositiveInt accepts plain decimal digits only, so "+1", "01" style
// variants that would not round-trip are rejected.
func parsePositiveInt(s string) (int64, bool) {
	if s == "" || s[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func isCanonicalUUID(s string) bool {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return parsed.String() == s
}
