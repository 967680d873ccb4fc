package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ContributionRepository stores the append-only goal ledger.
type ContributionRepository struct {
	collection *mongo.Collection
}

func NewContributionRepository(db *mongo.Database) *ContributionRepository {
	return &ContributionRepository{
		collection: db.Collection("goal_contributions"),
	}
}

// CreateContribution appends one ledger entry.
func (r *ContributionRepository) CreateContribution(ctx context.Context, c *models.GoalContribution) (*models.GoalContribution, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", c.GoalID.Hex()).Error("Failed to insert contribution")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("unexpected inserted contribution id type")
	}
	c.ID = insertedID

	logger.Log.WithFields(map[string]interface{}{
		"goal_id":         c.GoalID.Hex(),
		"contribution_id": c.ID.Hex(),
		"type":            c.Type,
	}).Info("Contribution recorded")
	return c, nil
}

// ListContributions returns one page of the ledger, newest first.
func (r *ContributionRepository) ListContributions(ctx context.Context, goalID primitive.ObjectID, q models.ContributionQuery) ([]models.GoalContribution, int64, error) {
	q.Page = q.Page.Normalize()

	filter := bson.M{"goal_id": goalID}
	if q.From != nil || q.To != nil {
		dateRange := bson.M{}
		if q.From != nil {
			dateRange["$gte"] = *q.From
		}
		if q.To != nil {
			dateRange["$lte"] = *q.To
		}
		filter["date"] = dateRange
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	contributions, err := r.find(ctx, filter, opts)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to list contributions")
		return nil, 0, err
	}
	return contributions, total, nil
}

// GetContributionHistory returns the whole ledger of a goal, oldest first.
func (r *ContributionRepository) GetContributionHistory(ctx context.Context, goalID primitive.ObjectID) ([]models.GoalContribution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{"goal_id": goalID}, opts)
}

// DeleteContributionsByGoal removes a goal's ledger.
func (r *ContributionRepository) DeleteContributionsByGoal(ctx context.Context, goalID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"goal_id": goalID})
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to delete contributions")
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *ContributionRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.GoalContribution, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	contributions := []models.GoalContribution{}
	if err := cursor.All(ctx, &contributions); err != nil {
		return nil, err
	}
	return contributions, nil
}
