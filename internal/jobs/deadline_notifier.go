package jobs

import (
	"context"
	"fmt"

	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/sirupsen/logrus"
)

type DeadlineNotifier struct {
	GoalService         *services.GoalService
	NotificationService *services.NotificationService
}

// NewDeadlineNotifier creates a new instance of DeadlineNotifier
func NewDeadlineNotifier(goalService *services.GoalService, notifService *services.NotificationService) *DeadlineNotifier {
	return &DeadlineNotifier{
		GoalService:         goalService,
		NotificationService: notifService,
	}
}

// RunDailyScan reminds owners of goals due within services.DueSoonWindow.
func (d *DeadlineNotifier) RunDailyScan(ctx context.Context) (int, error) {
	goals, err := d.GoalService.ListGoalsDueWithin(ctx, services.DueSoonWindow)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch goals: %w", err)
	}

	sent, err := d.NotificationService.CheckGoalDueSoon(ctx, goals)
	if err != nil {
		return sent, err
	}

	logrus.WithFields(logrus.Fields{
		"goals":     len(goals),
		"reminders": sent,
	}).Info("Deadline scan completed")
	return sent, nil
}
