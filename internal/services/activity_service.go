package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultActivityLimit is used when the feed is requested without a limit.
const DefaultActivityLimit = 20

// ActivityService records what users did to their goals and transactions.
type ActivityService struct {
	repo ActivityStore
	now  Clock
}

func NewActivityService(repo ActivityStore) *ActivityService {
	return &ActivityService{repo: repo, now: time.Now}
}

// WithClock replaces the time source.
func (s *ActivityService) WithClock(now Clock) *ActivityService {
	s.now = now
	return s
}

// LogActivity appends kind to the user's feed. targetID is the goal or
// transaction the entry refers to.
func (s *ActivityService) LogActivity(ctx context.Context, userID primitive.ObjectID, kind string, targetID primitive.ObjectID, message string) error {
	entry := &models.Activity{
		UserID:    userID,
		Type:      kind,
		TargetID:  targetID,
		Message:   message,
		Timestamp: s.now(),
	}
	if err := s.repo.CreateActivity(ctx, entry); err != nil {
		logger.Log.WithError(err).WithField("type", kind).Warn("Activity not recorded")
		return fmt.Errorf("failed to record activity: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"type":    kind,
	}).Debug("Activity recorded")
	return nil
}

// GetRecentActivities returns the newest feed entries, DefaultActivityLimit
// of them unless q asks for a different count.
func (s *ActivityService) GetRecentActivities(ctx context.Context, userID primitive.ObjectID, q models.ActivityQuery) ([]models.Activity, error) {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultActivityLimit
	case q.Limit > models.MaxLimit:
		q.Limit = models.MaxLimit
	}
	return s.repo.GetUserActivities(ctx, userID, q)
}
