package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContributionType string

const (
	ContributionManual      ContributionType = "MANUAL"
	ContributionAutomatic   ContributionType = "AUTOMATIC"
	ContributionTransaction ContributionType = "TRANSACTION"
	ContributionWithdrawal  ContributionType = "WITHDRAWAL"
)

// GoalContribution is an immutable ledger entry against a goal.
type GoalContribution struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GoalID        primitive.ObjectID  `bson:"goal_id" json:"goal_id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Amount        decimal.Decimal     `bson:"amount" json:"amount"`
	Currency      string              `bson:"currency" json:"currency"`
	Date          time.Time           `bson:"date" json:"date"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	Type          ContributionType    `bson:"type" json:"type"`
	TransactionID *primitive.ObjectID `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
