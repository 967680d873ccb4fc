package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/sirupsen/logrus"
)

// AutoContributor books the monthly AUTOMATIC contribution of every goal
// that opted in.
type AutoContributor struct {
	GoalService *services.GoalService
}

func NewAutoContributor(goalService *services.GoalService) *AutoContributor {
	return &AutoContributor{GoalService: goalService}
}

// RunMonthly books monthlyTarget against each auto-contribute goal and
// returns how many contributions were booked. A failing goal is logged and
// skipped so the others still get funded.
func (a *AutoContributor) RunMonthly(ctx context.Context) (int, error) {
	goals, err := a.GoalService.ListAutoContributeGoals(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch auto-contribute goals: %w", err)
	}

	booked := 0
	for _, goal := range goals {
		if goal.MonthlyTarget == nil || !goal.MonthlyTarget.IsPositive() {
			continue
		}

		_, err := a.GoalService.AddContribution(ctx, goal.UserID, goal.ID, models.CreateContributionRequest{
			Amount:      *goal.MonthlyTarget,
			Type:        models.ContributionAutomatic,
			Description: "Monthly auto-contribution",
		})
		switch {
		case err == nil:
			booked++
		case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrGoalNotFound):
			// completed or deleted since the goals were listed
		default:
			logrus.WithError(err).WithField("goal_id", goal.ID.Hex()).Error("Auto-contribution failed")
		}
	}

	logrus.WithFields(logrus.Fields{
		"goals":  len(goals),
		"booked": booked,
	}).Info("Monthly auto-contribution completed")
	return booked, nil
}
