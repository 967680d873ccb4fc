package services

import (
	"context"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GoalStore persists goals. UpdateGoal must reject a goal whose Version no
// longer matches the stored one with repository.ErrVersionConflict.
type GoalStore interface {
	CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	GetGoalByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error)
	UpdateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	DeleteGoal(ctx context.Context, id primitive.ObjectID) error
	FindGoals(ctx context.Context, userID primitive.ObjectID, f models.GoalFilter) ([]models.Goal, int64, error)
	GetGoalsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Goal, error)
	FindAutoContributeGoals(ctx context.Context) ([]models.Goal, error)
	FindGoalsDueBetween(ctx context.Context, from, to time.Time) ([]models.Goal, error)
}

// ContributionStore is the append-only goal ledger.
type ContributionStore interface {
	CreateContribution(ctx context.Context, c *models.GoalContribution) (*models.GoalContribution, error)
	ListContributions(ctx context.Context, goalID primitive.ObjectID, q models.ContributionQuery) ([]models.GoalContribution, int64, error)
	GetContributionHistory(ctx context.Context, goalID primitive.ObjectID) ([]models.GoalContribution, error)
	DeleteContributionsByGoal(ctx context.Context, goalID primitive.ObjectID) (int64, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID primitive.ObjectID, q models.TransactionQuery) ([]models.Transaction, int64, error)
	RecentExpenseTransactions(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) error
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, now time.Time) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID, id primitive.ObjectID) error
	DeleteNotification(ctx context.Context, userID, id primitive.ObjectID) error
	GetLatestNotificationByType(ctx context.Context, userID primitive.ObjectID, notifType string, targetID primitive.ObjectID) (*models.Notification, error)
	DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error)
}

type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetUserActivities(ctx context.Context, userID primitive.ObjectID, q models.ActivityQuery) ([]models.Activity, error)
}

// Mailer delivers a rendered email.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Clock returns the current time.
type Clock func() time.Time
