package notifid

// SQL expressions that render the same strings as the Build* functions inside
// the database, so dismissals can be joined against source rows in-store.
// Arguments are trusted column references, never user input.

// CommentIDExpr renders comment-<post>-<comment>.
func CommentIDExpr(postIDColumn, commentIDColumn string) string {
	return "('" + commentPrefix + "' || CAST(" + postIDColumn + " AS TEXT) || '-' || CAST(" + commentIDColumn + " AS TEXT))"
}

// LikeIDExpr renders like-<post>-<actor>.
func LikeIDExpr(postIDColumn, actorIDColumn string) string {
	return "('" + likePrefix + "' || CAST(" + postIDColumn + " AS TEXT) || '-' || CAST(" + actorIDColumn + " AS TEXT))"
}

// LegacyLikeIDExpr renders like-<post>.
func LegacyLikeIDExpr(postIDColumn string) string {
	return "('" + likePrefix + "' || CAST(" + postIDColumn + " AS TEXT))"
}

// FollowIDExpr renders follow-<actor>.
func FollowIDExpr(actorIDColumn string) string {
	return "('" + followPrefix + "' || CAST(" + actorIDColumn + " AS TEXT))"
}
