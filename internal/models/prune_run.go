package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PruneRun is the stored summary of one maintenance prune run.
type PruneRun struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StartedAt     time.Time          `json:"started_at" bson:"started_at"`
	UsersScanned  int                `json:"users_scanned" bson:"users_scanned"`
	UsersPruned   int                `json:"users_pruned" bson:"users_pruned"`
	RowsDeleted   int                `json:"rows_deleted" bson:"rows_deleted"`
	ElapsedMillis int64              `json:"elapsed_ms" bson:"elapsed_ms"`
	StopReason    string             `json:"stop_reason" bson:"stop_reason"`
	KeepLimit     int                `json:"keep_limit" bson:"keep_limit"`
}
