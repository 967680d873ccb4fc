package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActivityGoalCreated       = "goal_created"
	ActivityGoalUpdated       = "goal_updated"
	ActivityGoalDeleted       = "goal_deleted"
	ActivityGoalArchived      = "goal_archived"
	ActivityGoalRestored      = "goal_restored"
	ActivityGoalCompleted     = "goal_completed"
	ActivityContributionAdded = "contribution_added"
	ActivityWithdrawalMade    = "withdrawal_made"
	ActivityTransactionAdded  = "transaction_added"
)

// ActivityTypes lists every kind the feed can be filtered by.
var ActivityTypes = []string{
	ActivityGoalCreated, ActivityGoalUpdated, ActivityGoalDeleted, ActivityGoalArchived, ActivityGoalRestored,
	ActivityGoalCompleted, ActivityContributionAdded, ActivityWithdrawalMade, ActivityTransactionAdded,
}

// Activity is one line of a user's audit feed.
type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      string             `bson:"type" json:"type"`
	TargetID  primitive.ObjectID `bson:"target_id" json:"target_id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Message   string             `bson:"message" json:"message"`
}
