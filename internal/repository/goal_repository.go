package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GoalRepository struct handles database operations related to goals
type GoalRepository struct {
	collection *mongo.Collection
}

// NewGoalRepository creates a new instance of GoalRepository
func NewGoalRepository(db *mongo.Database) *GoalRepository {
	return &GoalRepository{
		collection: db.Collection("goals"),
	}
}

var goalSortFields = map[string]string{
	models.SortByName:         "name",
	models.SortByTargetAmount: "target_amount",
	models.SortByTargetDate:   "target_date",
	models.SortByPriority:     "priority",
	models.SortByCreatedAt:    "created_at",
}

// CreateGoal creates a new goal in the database
func (r *GoalRepository) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now()
	}
	goal.UpdatedAt = goal.CreatedAt
	goal.Version = 1

	result, err := r.collection.InsertOne(ctx, goal)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert goal")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted ID")
		return nil, errors.New("unexpected inserted goal id type")
	}
	goal.ID = insertedID

	logger.Log.WithField("goal_id", goal.ID.Hex()).Info("Goal created successfully")
	return goal, nil
}

// GetGoalByID fetches a goal by its ID
func (r *GoalRepository) GetGoalByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error) {
	var goal models.Goal

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&goal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", id.Hex()).Error("Failed to find goal by ID")
		return nil, err
	}

	return &goal, nil
}

// UpdateGoal replaces the stored goal if nobody changed it since it was read.
// On success the goal's version is advanced.
func (r *GoalRepository) UpdateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	expected := goal.Version
	goal.Version = expected + 1
	if goal.UpdatedAt.IsZero() {
		goal.UpdatedAt = time.Now()
	}

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": goal.ID, "version": expected}, goal)
	if err != nil {
		goal.Version = expected
		logger.Log.WithError(err).WithField("goal_id", goal.ID.Hex()).Error("Failed to update goal")
		return nil, err
	}

	if res.MatchedCount == 0 {
		goal.Version = expected
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": goal.ID})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		logger.Log.WithFields(map[string]interface{}{
			"goal_id": goal.ID.Hex(),
			"version": expected,
		}).Warn("Goal version conflict")
		return nil, ErrVersionConflict
	}

	logger.Log.WithField("goal_id", goal.ID.Hex()).Info("Goal updated successfully")
	return goal, nil
}

// DeleteGoal deletes a goal from the database by its ID
func (r *GoalRepository) DeleteGoal(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", id.Hex()).Error("Failed to delete goal")
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	logger.Log.WithField("goal_id", id.Hex()).Info("Goal deleted successfully")
	return nil
}

// FindGoals returns one page of a user's goals together with the total number
// of goals matching the filter.
func (r *GoalRepository) FindGoals(ctx context.Context, userID primitive.ObjectID, f models.GoalFilter) ([]models.Goal, int64, error) {
	f = f.Normalize()
	filter := goalFilter(userID, f)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to count goals")
		return nil, 0, err
	}

	dir := -1
	if f.SortOrder == models.SortAsc {
		dir = 1
	}

	var goals []models.Goal
	if f.SortBy == models.SortByPriority {
		goals, err = r.findByPriority(ctx, filter, dir, f.Page)
	} else {
		field, ok := goalSortFields[f.SortBy]
		if !ok {
			field = "created_at"
		}
		opts := options.Find().
			SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}).
			SetSkip(int64(f.Skip())).
			SetLimit(int64(f.Limit))
		goals, err = r.find(ctx, filter, opts)
	}
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch filtered goals")
		return nil, 0, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": userID.Hex(),
		"count":   len(goals),
		"total":   total,
	}).Info("Filtered goals fetched successfully")
	return goals, total, nil
}

// GetGoalsByUser fetches every goal of a user regardless of state
func (r *GoalRepository) GetGoalsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Goal, error) {
	return r.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// FindAutoContributeGoals returns active, unfinished goals that opted into
// monthly automatic contributions.
func (r *GoalRepository) FindAutoContributeGoals(ctx context.Context) ([]models.Goal, error) {
	filter := bson.M{
		"auto_contribute": true,
		"is_active":       true,
		"is_completed":    false,
		"monthly_target":  bson.M{"$ne": nil},
	}
	return r.find(ctx, filter, options.Find())
}

// FindGoalsDueBetween returns active, unfinished goals whose target date is in [from, to].
func (r *GoalRepository) FindGoalsDueBetween(ctx context.Context, from, to time.Time) ([]models.Goal, error) {
	filter := bson.M{
		"is_active":    true,
		"is_completed": false,
		"target_date":  bson.M{"$gte": from, "$lte": to},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "target_date", Value: 1}}))
}

func (r *GoalRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Goal, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	goals := []models.Goal{}
	if err := cursor.All(ctx, &goals); err != nil {
		logger.Log.WithError(err).Error("Failed to decode goals")
		return nil, err
	}
	return goals, nil
}

// findByPriority sorts on the priority rank rather than its string value.
func (r *GoalRepository) findByPriority(ctx context.Context, filter bson.M, dir int, p models.Page) ([]models.Goal, error) {
	rank := bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$eq": bson.A{"$priority", models.PriorityLow}}, "then": models.PriorityRank(models.PriorityLow)},
			bson.M{"case": bson.M{"$eq": bson.A{"$priority", models.PriorityMedium}}, "then": models.PriorityRank(models.PriorityMedium)},
			bson.M{"case": bson.M{"$eq": bson.A{"$priority", models.PriorityHigh}}, "then": models.PriorityRank(models.PriorityHigh)},
		},
		"default": 0,
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{"priority_rank": rank}}},
		{{Key: "$sort", Value: bson.D{{Key: "priority_rank", Value: dir}, {Key: "_id", Value: dir}}}},
		{{Key: "$skip", Value: int64(p.Skip())}},
		{{Key: "$limit", Value: int64(p.Limit)}},
		{{Key: "$project", Value: bson.M{"priority_rank": 0}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	goals := []models.Goal{}
	if err := cursor.All(ctx, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func goalFilter(userID primitive.ObjectID, f models.GoalFilter) bson.M {
	filter := bson.M{"user_id": userID}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	} else if !f.IncludeArchived {
		filter["is_active"] = true
	}
	if f.IsCompleted != nil {
		filter["is_completed"] = *f.IsCompleted
	}

	if f.TargetDateFrom != nil || f.TargetDateTo != nil {
		dateRange := bson.M{}
		if f.TargetDateFrom != nil {
			dateRange["$gte"] = *f.TargetDateFrom
		}
		if f.TargetDateTo != nil {
			dateRange["$lte"] = *f.TargetDateTo
		}
		filter["target_date"] = dateRange
	}

	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}
