package repositories

import (
	"gorm.io/gorm/clause"
)

// BlockPredicate returns a condition that holds when the actor in
// actorColumn and the viewer have no block between them. Blocking policy is
// owned elsewhere; sources only consume it as a boolean condition.
type BlockPredicate func(viewerID, actorColumn string) clause.Expr

// NotBlockedEitherWay is the default BlockPredicate backed by user_blocks.
// actorColumn must be a trusted column reference.
func NotBlockedEitherWay(viewerID, actorColumn string) clause.Expr {
	return clause.Expr{
		SQL: "NOT EXISTS (SELECT 1 FROM user_blocks b WHERE (b.blocker_id = ? AND b.blocked_id = " + actorColumn + ")" +
			" OR (b.blocker_id = " + actorColumn + " AND b.blocked_id = ?))",
		Vars: []interface{}{viewerID, viewerID},
	}
}
