package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivityRepository stores the per-user audit feed in the activities collection.
type ActivityRepository struct {
	collection *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{collection: db.Collection("activities")}
}

// CreateActivity appends one entry to the feed and sets its ID.
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	res, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		logrus.WithError(err).WithField("user_id", activity.UserID.Hex()).Error("Failed to insert activity")
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		activity.ID = id
	}
	return nil
}

// GetUserActivities returns the newest entries of a user's feed matching q.
func (r *ActivityRepository) GetUserActivities(ctx context.Context, userID primitive.ObjectID, q models.ActivityQuery) ([]models.Activity, error) {
	filter := bson.M{"user_id": userID}
	if q.TargetID != nil {
		filter["target_id"] = *q.TargetID
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to query activities")
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	out := []models.Activity{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return out, nil
}
