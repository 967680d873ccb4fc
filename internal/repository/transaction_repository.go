package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TransactionRepository handles database operations related to transactions.
type TransactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("transactions"),
	}
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, tx)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert transaction")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("unexpected inserted transaction id type")
	}
	tx.ID = insertedID

	logrus.WithField("transactionID", tx.ID.Hex()).Info("Transaction inserted successfully")
	return tx, nil
}

func (r *TransactionRepository) GetTransactionByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		logrus.WithError(err).WithField("transactionID", id.Hex()).Error("Failed to find transaction")
		return nil, err
	}
	return &tx, nil
}

// ListTransactions returns one page of a user's transactions, newest first.
func (r *TransactionRepository) ListTransactions(ctx context.Context, userID primitive.ObjectID, q models.TransactionQuery) ([]models.Transaction, int64, error) {
	q.Page = q.Page.Normalize()

	filter := bson.M{"user_id": userID}
	if q.Type != "" {
		filter["type"] = q.Type
	}
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
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	txs, err := r.find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Error("Failed to list transactions")
		return nil, 0, err
	}
	return txs, total, nil
}

// RecentExpenseTransactions returns the user's expenses booked on or after since.
func (r *TransactionRepository) RecentExpenseTransactions(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Transaction, error) {
	filter := bson.M{
		"user_id": userID,
		"type":    models.TransactionExpense,
		"date":    bson.M{"$gte": since},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r *TransactionRepository) DeleteTransaction(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logrus.WithError(err).WithField("transactionID", id.Hex()).Error("Failed to delete transaction")
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Transaction, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	txs := []models.Transaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
