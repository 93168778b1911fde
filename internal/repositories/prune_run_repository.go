package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/notifyfeed/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PruneRunRepository stores maintenance run summaries
type PruneRunRepository interface {
	CreatePruneRun(ctx context.Context, run *models.PruneRun) error
	GetRecentPruneRuns(ctx context.Context, limit int64) ([]models.PruneRun, error)
}

// MongoPruneRunRepository implements PruneRunRepository for MongoDB
type MongoPruneRunRepository struct {
	collection *mongo.Collection
}

// NewMongoPruneRunRepository creates a new MongoPruneRunRepository
func NewMongoPruneRunRepository(db *mongo.Database) *MongoPruneRunRepository {
	return &MongoPruneRunRepository{collection: db.Collection("dismissal_prune_runs")}
}

// CreatePruneRun inserts a run summary
func (r *MongoPruneRunRepository) CreatePruneRun(ctx context.Context, run *models.PruneRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		return errors.Wrap(err, "unable to store prune run")
	}
	return nil
}

// GetRecentPruneRuns returns the newest run summaries first
func (r *MongoPruneRunRepository) GetRecentPruneRuns(ctx context.Context, limit int64) ([]models.PruneRun, error) {
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "started_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list prune runs")
	}
	defer cursor.Close(ctx)

	var runs []models.PruneRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, errors.Wrap(err, "unable to decode prune runs")
	}
	return runs, nil
}
