package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/pkg/email"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DueSoonWindow is how far ahead the deadline reminder looks.
const DueSoonWindow = 7 * 24 * time.Hour

type NotificationService struct {
	repo     NotificationStore
	userRepo UserStore
	mailer   Mailer
	now      Clock
}

func NewNotificationService(repo NotificationStore, userRepo UserStore, mailer Mailer) *NotificationService {
	return &NotificationService{
		repo:     repo,
		userRepo: userRepo,
		mailer:   mailer,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *NotificationService) WithClock(now Clock) *NotificationService {
	s.now = now
	return s
}

// CreateNotification logs a new notification for a user
func (s *NotificationService) CreateNotification(ctx context.Context, userID primitive.ObjectID, notifType, title, message string, targetID *primitive.ObjectID) error {
	notif := &models.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Read:      false,
		TargetID:  targetID,
		CreatedAt: s.now(),
	}
	return s.repo.CreateNotification(ctx, notif)
}

// GetUserNotifications returns the unexpired notifications of a user
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.repo.GetUserNotifications(ctx, userID, s.now())
}

// MarkNotificationAsRead sets the "read" status of one of the user's notifications to true
func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, userID, notifID primitive.ObjectID) error {
	return notFoundAs(s.repo.MarkAsRead(ctx, userID, notifID), ErrNotificationNotFound)
}

// DeleteNotification deletes one of the user's notifications
func (s *NotificationService) DeleteNotification(ctx context.Context, userID, notifID primitive.ObjectID) error {
	return notFoundAs(s.repo.DeleteNotification(ctx, userID, notifID), ErrNotificationNotFound)
}

// DeleteExpiredNotifications is run daily by the scheduler.
func (s *NotificationService) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredNotifications(ctx, s.now())
}

// NotifyGoalCompleted stores an in-app notification and emails the owner.
func (s *NotificationService) NotifyGoalCompleted(ctx context.Context, goal *models.Goal) error {
	err := s.CreateNotification(ctx, goal.UserID, models.NotificationGoalCompleted,
		"Goal Completed",
		fmt.Sprintf("You've successfully completed your goal: %q!", goal.Name),
		&goal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to store completion notification: %w", err)
	}

	s.mailOwner(ctx, goal.UserID, "Goal completed: "+goal.Name, email.TemplateGoalCompleted, func(u *models.User) any {
		return map[string]any{
			"Username": u.Username,
			"GoalName": goal.Name,
			"Target":   email.FormatMoney(goal.TargetAmount, goal.Currency),
			"Saved":    email.FormatMoney(goal.CurrentAmount, goal.Currency),
			"Debt":     goal.IsDebt(),
		}
	})
	return nil
}

// CheckGoalDueSoon reminds owners of goals due within DueSoonWindow. A goal
// is reminded about at most once per window.
func (s *NotificationService) CheckGoalDueSoon(ctx context.Context, goals []models.Goal) (int, error) {
	now := s.now()
	sent := 0
	for _, goal := range goals {
		if goal.IsCompleted || !goal.IsActive || goal.TargetDate == nil {
			continue
		}
		left := goal.TargetDate.Sub(now)
		if left < 0 || left > DueSoonWindow {
			continue
		}

		existing, err := s.repo.GetLatestNotificationByType(ctx, goal.UserID, models.NotificationGoalDueSoon, goal.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return sent, fmt.Errorf("failed to look up reminders: %w", err)
		}
		if existing != nil && now.Sub(existing.CreatedAt) < DueSoonWindow {
			continue
		}

		due := goal.TargetDate.Format("Jan 2")
		goalID := goal.ID
		err = s.CreateNotification(ctx, goal.UserID, models.NotificationGoalDueSoon,
			"Goal Due Soon",
			fmt.Sprintf("Your goal %q is due by %s.", goal.Name, due),
			&goalID,
		)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to send goal due soon notification for goal %s", goal.ID.Hex())
			continue
		}
		sent++

		s.mailOwner(ctx, goal.UserID, "Goal due soon: "+goal.Name, email.TemplateGoalDueSoon, func(u *models.User) any {
			return map[string]any{
				"Username":  u.Username,
				"GoalName":  goal.Name,
				"DueDate":   due,
				"Remaining": email.FormatMoney(goal.RemainingAmount(), goal.Currency),
			}
		})
	}
	return sent, nil
}

// mailOwner emails the user best-effort; failures are only logged.
func (s *NotificationService) mailOwner(ctx context.Context, userID primitive.ObjectID, subject, tmpl string, data func(*models.User) any) {
	if s.mailer == nil || s.userRepo == nil {
		return
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Warn("Cannot email user")
		return
	}
	body, err := email.Render(tmpl, data(user))
	if err != nil {
		logrus.WithError(err).Error("Failed to render email")
		return
	}
	if err := s.mailer.SendEmail(user.Email, subject, body); err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Warn("Failed to send email")
	}
}

func notFoundAs(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
