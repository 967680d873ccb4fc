package cron

import (
	"context"
	"time"

	"github.com/Dias221467/finance-goals/internal/jobs"
	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Schedules, in robfig/cron's five-field format.
const (
	AutoContributeSchedule = "0 0 1 * *"
	DeadlineSchedule       = "0 9 * * *"
	PurgeSchedule          = "30 3 * * *"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 5 * time.Minute

// NewNotificationCron registers the background jobs without starting them.
func NewNotificationCron(goalService *services.GoalService, notificationService *services.NotificationService) (*cron.Cron, error) {
	c := cron.New()

	autoContributor := jobs.NewAutoContributor(goalService)
	deadlineNotifier := jobs.NewDeadlineNotifier(goalService, notificationService)

	// Monthly auto-contributions
	if _, err := c.AddFunc(AutoContributeSchedule, run("AutoContribute", func(ctx context.Context) error {
		_, err := autoContributor.RunMonthly(ctx)
		return err
	})); err != nil {
		return nil, err
	}

	// Goal due soon
	if _, err := c.AddFunc(DeadlineSchedule, run("CheckGoalDueSoon", func(ctx context.Context) error {
		_, err := deadlineNotifier.RunDailyScan(ctx)
		return err
	})); err != nil {
		return nil, err
	}

	// Expired notifications
	if _, err := c.AddFunc(PurgeSchedule, run("DeleteExpiredNotifications", func(ctx context.Context) error {
		n, err := notificationService.DeleteExpiredNotifications(ctx)
		if err == nil && n > 0 {
			logrus.WithField("deleted", n).Info("Expired notifications purged")
		}
		return err
	})); err != nil {
		return nil, err
	}

	return c, nil
}

// StartNotificationCronJobs registers and starts the background jobs.
func StartNotificationCronJobs(goalService *services.GoalService, notificationService *services.NotificationService) (*cron.Cron, error) {
	c, err := NewNotificationCron(goalService, notificationService)
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			logrus.WithError(err).Errorf("%s failed", name)
		}
	}
}
