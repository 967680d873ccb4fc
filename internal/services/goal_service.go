package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/pkg/logger"
	"github.com/Dias221467/finance-goals/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxUpdateAttempts bounds the read-modify-write retries on a version conflict.
const maxUpdateAttempts = 3

// GoalService encapsulates the business logic for goals.
type GoalService struct {
	goals               GoalStore
	contributions       ContributionStore
	transactions        TransactionStore
	NotificationService *NotificationService
	now                 Clock
}

// NewGoalService creates a new instance of GoalService. notifications may be nil.
func NewGoalService(goals GoalStore, contributions ContributionStore, transactions TransactionStore, notifications *NotificationService) *GoalService {
	return &GoalService{
		goals:               goals,
		contributions:       contributions,
		transactions:        transactions,
		NotificationService: notifications,
		now:                 time.Now,
	}
}

// WithClock replaces the time source.
func (s *GoalService) WithClock(now Clock) *GoalService {
	s.now = now
	return s
}

// GoalPage is one page of a goal listing.
type GoalPage struct {
	Goals      []models.GoalView `json:"goals"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// ContributionPage is one page of a goal's ledger.
type ContributionPage struct {
	Contributions []models.GoalContribution `json:"contributions"`
	Total         int64                     `json:"total"`
	Page          int                       `json:"page"`
	Limit         int                       `json:"limit"`
	TotalPages    int                       `json:"total_pages"`
}

// ContributionResult is a booked ledger entry and the goal it changed.
type ContributionResult struct {
	Goal         models.GoalView         `json:"goal"`
	Contribution models.GoalContribution `json:"contribution"`
}

// CurrencySummary totals the active goals held in one currency.
type CurrencySummary struct {
	Currency           string          `json:"currency"`
	TotalTarget        decimal.Decimal `json:"total_target"`
	TotalSaved         decimal.Decimal `json:"total_saved"`
	TotalDebtRemaining decimal.Decimal `json:"total_debt_remaining"`
	OverallProgress    decimal.Decimal `json:"overall_progress"`
}

// GoalSummary is the dashboard view over all of a user's goals.
type GoalSummary struct {
	Total      int               `json:"total"`
	Active     int               `json:"active"`
	Completed  int               `json:"completed"`
	Archived   int               `json:"archived"`
	Currencies []CurrencySummary `json:"currencies"`
}

// CreateGoal validates req and stores a new goal for userID.
// Completion is only evaluated when req.IsCompleted is true.
func (s *GoalService) CreateGoal(ctx context.Context, userID primitive.ObjectID, req models.CreateGoalRequest) (*models.Goal, error) {
	if err := validation.Struct(req); err != nil {
		logger.Log.WithError(err).Warn("Goal creation rejected")
		return nil, err
	}
	if req.AutoContribute && req.MonthlyTarget == nil {
		return nil, validation.New("monthly_target", "is required when auto_contribute is set")
	}

	now := s.now()
	goal := &models.Goal{
		UserID:         userID,
		Name:           req.Name,
		Description:    req.Description,
		TargetAmount:   req.TargetAmount,
		Currency:       orDefault(req.Currency, models.DefaultCurrency),
		Category:       orDefault(req.Category, models.CategoryOther),
		Type:           orDefault(req.Type, models.GoalTypeSavings),
		Priority:       orDefault(req.Priority, models.PriorityMedium),
		IsActive:       true,
		AutoContribute: req.AutoContribute,
		MonthlyTarget:  req.MonthlyTarget,
		CreatedAt:      now,
	}
	goal.CurrentAmount = OpeningBalance(goal.Type, goal.TargetAmount, req.CurrentAmount)

	if req.TargetDate != "" {
		d, err := validation.ParseDate(req.TargetDate)
		if err != nil {
			return nil, validation.New("target_date", "must be a date in YYYY-MM-DD format")
		}
		goal.TargetDate = &d
	}

	if req.IsCompleted != nil && *req.IsCompleted {
		applyBalance(goal, policyFor(goal.Type).complete(balanceOf(goal)), now)
	}

	created, err := s.goals.CreateGoal(ctx, goal)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create goal")
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"goal_id": created.ID.Hex(),
		"user_id": userID.Hex(),
		"type":    created.Type,
	}).Info("Goal created in service layer")
	return created, nil
}

// GetGoal returns the goal if userID owns it.
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID primitive.ObjectID) (*models.Goal, error) {
	return s.ownedGoal(ctx, userID, goalID)
}

// ListGoals returns one filtered, sorted page of the user's goals.
func (s *GoalService) ListGoals(ctx context.Context, userID primitive.ObjectID, f models.GoalFilter) (*GoalPage, error) {
	f = f.Normalize()

	goals, total, err := s.goals.FindGoals(ctx, userID, f)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to list goals")
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	views := make([]models.GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, models.NewGoalView(g))
	}
	return &GoalPage{
		Goals:      views,
		Total:      total,
		Page:       f.Page.Page,
		Limit:      f.Limit,
		TotalPages: f.TotalPages(total),
	}, nil
}

// UpdateGoal applies a partial update. is_completed=true wins over edits to
// the amounts. is_completed=false is rejected unless the patched balance falls
// short of completion; otherwise edited amounts re-evaluate completion.
func (s *GoalService) UpdateGoal(ctx context.Context, userID, goalID primitive.ObjectID, req models.UpdateGoalRequest) (*models.Goal, error) {
	if err := validation.Struct(req); err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Warn("Goal update rejected")
		return nil, err
	}

	var targetDate *time.Time
	if req.TargetDate != nil && *req.TargetDate != "" {
		d, err := validation.ParseDate(*req.TargetDate)
		if err != nil {
			return nil, validation.New("target_date", "must be a date in YYYY-MM-DD format")
		}
		targetDate = &d
	}

	goal, completedNow, err := s.modifyGoal(ctx, userID, goalID, func(g *models.Goal, now time.Time) error {
		typeChanged := req.Type != nil && *req.Type != g.Type
		patchGoal(g, req, targetDate)

		if g.AutoContribute && g.MonthlyTarget == nil {
			return validation.New("monthly_target", "is required when auto_contribute is set")
		}

		policy := policyFor(g.Type)
		b := balanceOf(g)
		switch {
		case req.IsCompleted != nil && *req.IsCompleted:
			b = policy.complete(b)
		case req.IsCompleted != nil:
			// Reopening only sticks when the balance no longer meets the target.
			if b = policy.settle(b); b.Completed {
				return validation.New("is_completed", "cannot be false while the balance still meets the target")
			}
		case req.CurrentAmount != nil || req.TargetAmount != nil || typeChanged:
			b = policy.settle(b)
		}
		applyBalance(g, b, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		s.goalCompleted(ctx, goal)
	}
	logger.Log.WithField("goal_id", goalID.Hex()).Info("Goal updated successfully in service layer")
	return goal, nil
}

func patchGoal(g *models.Goal, req models.UpdateGoalRequest, targetDate *time.Time) {
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	if req.TargetAmount != nil {
		g.TargetAmount = *req.TargetAmount
	}
	if req.CurrentAmount != nil {
		g.CurrentAmount = *req.CurrentAmount
	}
	if req.Currency != nil {
		g.Currency = *req.Currency
	}
	if req.TargetDate != nil {
		g.TargetDate = targetDate
	}
	if req.Category != nil {
		g.Category = *req.Category
	}
	if req.Type != nil {
		g.Type = *req.Type
	}
	if req.Priority != nil {
		g.Priority = *req.Priority
	}
	if req.IsActive != nil {
		g.IsActive = *req.IsActive
	}
	if req.AutoContribute != nil {
		g.AutoContribute = *req.AutoContribute
	}
	if req.MonthlyTarget != nil {
		g.MonthlyTarget = req.MonthlyTarget
	}
}

// SetArchived archives (isActive=false) or restores a goal.
func (s *GoalService) SetArchived(ctx context.Context, userID, goalID primitive.ObjectID, archived bool) (*models.Goal, error) {
	goal, _, err := s.modifyGoal(ctx, userID, goalID, func(g *models.Goal, _ time.Time) error {
		g.IsActive = !archived
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(logrus.Fields{
		"goal_id":  goalID.Hex(),
		"archived": archived,
	}).Info("Goal archive state changed")
	return goal, nil
}

// DeleteGoal removes the goal and then its ledger.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID primitive.ObjectID) error {
	if _, err := s.ownedGoal(ctx, userID, goalID); err != nil {
		return err
	}

	if err := s.goals.DeleteGoal(ctx, goalID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGoalNotFound
		}
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to delete goal")
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	removed, err := s.contributions.DeleteContributionsByGoal(ctx, goalID)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Goal deleted but its contributions were not")
		return fmt.Errorf("failed to delete goal contributions: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"goal_id":       goalID.Hex(),
		"contributions": removed,
	}).Info("Goal deleted successfully in service layer")
	return nil
}

// AddContribution books a contribution (or, with type WITHDRAWAL, a
// withdrawal) against the goal and appends it to the ledger.
func (s *GoalService) AddContribution(ctx context.Context, userID, goalID primitive.ObjectID, req models.CreateContributionRequest) (*ContributionResult, error) {
	if err := validation.Struct(req); err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Warn("Contribution rejected")
		return nil, err
	}

	entry := models.GoalContribution{
		GoalID:      goalID,
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
		Type:        orDefault(req.Type, models.ContributionManual),
	}

	if req.TransactionID != "" {
		txID, err := s.linkedTransaction(ctx, userID, req.TransactionID)
		if err != nil {
			return nil, err
		}
		entry.TransactionID = &txID
		if req.Type == "" {
			entry.Type = models.ContributionTransaction
		}
	}

	if req.Date != "" {
		d, err := validation.ParseDate(req.Date)
		if err != nil {
			return nil, validation.New("date", "must be a date in YYYY-MM-DD format")
		}
		entry.Date = d
	}

	goal, completedNow, err := s.modifyGoal(ctx, userID, goalID, func(g *models.Goal, now time.Time) error {
		currency := orDefault(req.Currency, g.Currency)
		if currency != g.Currency {
			return validation.New("currency", "must match the goal currency "+g.Currency)
		}
		entry.Currency = currency

		b, err := Reconcile(g.Type, balanceOf(g), entry.Amount, entry.Type)
		if err != nil {
			return err
		}
		applyBalance(g, b, now)

		entry.CreatedAt = now
		if req.Date == "" {
			entry.Date = now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			logger.Log.WithField("goal_id", goalID.Hex()).Warn("Contribution to a completed goal")
		}
		return nil, err
	}

	created, err := s.contributions.CreateContribution(ctx, &entry)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Goal balance updated but the ledger entry was not stored")
		return nil, fmt.Errorf("failed to record contribution: %w", err)
	}

	if completedNow {
		s.goalCompleted(ctx, goal)
	}

	logger.Log.WithFields(logrus.Fields{
		"goal_id":        goalID.Hex(),
		"type":           created.Type,
		"amount":         created.Amount.String(),
		"current_amount": goal.CurrentAmount.String(),
		"completed":      goal.IsCompleted,
	}).Info("Contribution booked")
	return &ContributionResult{Goal: models.NewGoalView(*goal), Contribution: *created}, nil
}

// Withdraw books a withdrawal against the goal.
func (s *GoalService) Withdraw(ctx context.Context, userID, goalID primitive.ObjectID, req models.CreateContributionRequest) (*ContributionResult, error) {
	req.Type = models.ContributionWithdrawal
	return s.AddContribution(ctx, userID, goalID, req)
}

// ListContributions returns one page of the goal's ledger, newest first.
func (s *GoalService) ListContributions(ctx context.Context, userID, goalID primitive.ObjectID, q models.ContributionQuery) (*ContributionPage, error) {
	if _, err := s.ownedGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	q.Page = q.Page.Normalize()

	entries, total, err := s.contributions.ListContributions(ctx, goalID, q)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to list contributions")
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return &ContributionPage{
		Contributions: entries,
		Total:         total,
		Page:          q.Page.Page,
		Limit:         q.Limit,
		TotalPages:    q.TotalPages(total),
	}, nil
}

// GetAnalytics derives the goal's analytics from its full ledger.
func (s *GoalService) GetAnalytics(ctx context.Context, userID, goalID primitive.ObjectID) (*GoalAnalytics, error) {
	goal, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	ledger, err := s.contributions.GetContributionHistory(ctx, goalID)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to load contribution history")
		return nil, fmt.Errorf("failed to load contribution history: %w", err)
	}

	a := ComputeAnalytics(*goal, ledger, s.now())
	return &a, nil
}

// GetSummary counts the user's goals and totals the active ones per currency.
func (s *GoalService) GetSummary(ctx context.Context, userID primitive.ObjectID) (*GoalSummary, error) {
	goals, err := s.goals.GetGoalsByUser(ctx, userID)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to load goals for summary")
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	return summarize(goals), nil
}

func summarize(goals []models.Goal) *GoalSummary {
	out := &GoalSummary{Total: len(goals), Currencies: []CurrencySummary{}}

	type acc struct {
		CurrencySummary
		progressed decimal.Decimal
	}
	byCurrency := make(map[string]*acc)

	for _, g := range goals {
		if g.IsCompleted {
			out.Completed++
		}
		if !g.IsActive {
			out.Archived++
			continue
		}
		out.Active++

		a, ok := byCurrency[g.Currency]
		if !ok {
			a = &acc{CurrencySummary: CurrencySummary{Currency: g.Currency}}
			byCurrency[g.Currency] = a
		}
		a.TotalTarget = a.TotalTarget.Add(g.TargetAmount)
		if g.IsDebt() {
			a.TotalDebtRemaining = a.TotalDebtRemaining.Add(g.CurrentAmount)
			a.progressed = a.progressed.Add(decimal.Max(decimal.Zero, g.TargetAmount.Sub(g.CurrentAmount)))
		} else {
			a.TotalSaved = a.TotalSaved.Add(g.CurrentAmount)
			a.progressed = a.progressed.Add(decimal.Min(g.TargetAmount, g.CurrentAmount))
		}
	}

	for _, a := range byCurrency {
		if a.TotalTarget.IsPositive() {
			a.OverallProgress = a.progressed.Div(a.TotalTarget).Mul(hundred).Round(2)
		}
		out.Currencies = append(out.Currencies, a.CurrencySummary)
	}
	sort.Slice(out.Currencies, func(i, j int) bool { return out.Currencies[i].Currency < out.Currencies[j].Currency })
	return out
}

// ListAutoContributeGoals returns every goal the monthly job should fund.
func (s *GoalService) ListAutoContributeGoals(ctx context.Context) ([]models.Goal, error) {
	return s.goals.FindAutoContributeGoals(ctx)
}

// ListGoalsDueWithin returns active, unfinished goals due in the next window.
func (s *GoalService) ListGoalsDueWithin(ctx context.Context, window time.Duration) ([]models.Goal, error) {
	now := s.now()
	return s.goals.FindGoalsDueBetween(ctx, now, now.Add(window))
}

// modifyGoal runs fn against a fresh copy of the goal and writes it back,
// retrying when another writer got there first. It reports whether the goal
// became completed.
func (s *GoalService) modifyGoal(ctx context.Context, userID, goalID primitive.ObjectID, fn func(g *models.Goal, now time.Time) error) (*models.Goal, bool, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		goal, err := s.ownedGoal(ctx, userID, goalID)
		if err != nil {
			return nil, false, err
		}
		wasCompleted := goal.IsCompleted

		now := s.now()
		if err := fn(goal, now); err != nil {
			return nil, false, err
		}
		goal.UpdatedAt = now

		updated, err := s.goals.UpdateGoal(ctx, goal)
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			logger.Log.WithFields(logrus.Fields{
				"goal_id": goalID.Hex(),
				"attempt": attempt,
			}).Warn("Goal changed during update, retrying")
			continue
		case errors.Is(err, repository.ErrNotFound):
			return nil, false, ErrGoalNotFound
		case err != nil:
			logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to update goal")
			return nil, false, fmt.Errorf("failed to update goal: %w", err)
		}
		return updated, !wasCompleted && updated.IsCompleted, nil
	}
	return nil, false, ErrConcurrentUpdate
}

func (s *GoalService) ownedGoal(ctx context.Context, userID, goalID primitive.ObjectID) (*models.Goal, error) {
	goal, err := s.goals.GetGoalByID(ctx, goalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", goalID.Hex()).Error("Failed to get goal from repository")
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	if goal.UserID != userID {
		logger.Log.WithFields(logrus.Fields{
			"goal_id": goalID.Hex(),
			"user_id": userID.Hex(),
		}).Warn("Goal requested by a user who does not own it")
		return nil, ErrGoalNotFound
	}
	return goal, nil
}

func (s *GoalService) linkedTransaction(ctx context.Context, userID primitive.ObjectID, rawID string) (primitive.ObjectID, error) {
	invalid := validation.New("transaction_id", "must reference one of your transactions")

	txID, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return primitive.NilObjectID, invalid
	}
	tx, err := s.transactions.GetTransactionByID(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		return primitive.NilObjectID, invalid
	}
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.UserID != userID {
		return primitive.NilObjectID, invalid
	}
	return txID, nil
}

// goalCompleted fires the completion side effects. They never fail the caller.
func (s *GoalService) goalCompleted(ctx context.Context, goal *models.Goal) {
	logger.Log.WithField("goal_id", goal.ID.Hex()).Info("Goal completed")
	if s.NotificationService == nil {
		return
	}
	if err := s.NotificationService.NotifyGoalCompleted(ctx, goal); err != nil {
		logger.Log.WithError(err).WithField("goal_id", goal.ID.Hex()).Warn("Failed to send goal completed notification")
	}
}

func orDefault[T ~string](v, fallback T) T {
	if v == "" {
		return fallback
	}
	return v
}
