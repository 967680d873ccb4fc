package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/pkg/logger"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Suggestion tuning.
const (
	SuggestionLookbackDays = 90
	maxSpendingLimits      = 3
	minCategoryTxCount     = 5
)

var (
	lookbackMonths       = decimal.NewFromInt(3)
	emergencyFundMonths  = decimal.NewFromInt(6)
	emergencyFundHorizon = decimal.NewFromInt(24)
	incomeSavingsShare   = decimal.RequireFromString("0.10")
	spendingLimitFactor  = decimal.RequireFromString("0.8")
	minCategoryMonthly   = decimal.NewFromInt(200)
)

type EmergencyFundSuggestion struct {
	RecommendedAmount   decimal.Decimal `json:"recommended_amount"`
	SuggestedMonthly    decimal.Decimal `json:"suggested_monthly_contribution"`
	MonthsOfExpenses    int64           `json:"months_of_expenses"`
	AverageMonthlySpend decimal.Decimal `json:"average_monthly_expenses"`
}

type SpendingLimitSuggestion struct {
	Category         string          `json:"category"`
	MonthlyAverage   decimal.Decimal `json:"monthly_average"`
	TransactionCount int             `json:"transaction_count"`
	SuggestedAmount  decimal.Decimal `json:"suggested_amount"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
}

type SuggestionContext struct {
	HasEmergencyFund       bool             `json:"has_emergency_fund"`
	MonthlyIncome          *decimal.Decimal `json:"monthly_income,omitempty"`
	AverageMonthlyExpenses decimal.Decimal  `json:"average_monthly_expenses"`
	ActiveGoals            int              `json:"active_goals"`
	SavingsRate            *decimal.Decimal `json:"savings_rate,omitempty"`
}

type GoalSuggestions struct {
	EmergencyFund  *EmergencyFundSuggestion  `json:"emergency_fund,omitempty"`
	SpendingLimits []SpendingLimitSuggestion `json:"spending_limits"`
	Context        SuggestionContext         `json:"context"`
}

// BuildSuggestions derives suggestions from the expenses of the lookback
// window, the declared monthly income (nil when unknown) and the user's goals.
// Spending limits keep the order in which categories first appear in expenses.
func BuildSuggestions(expenses []models.Transaction, income *decimal.Decimal, goals []models.Goal) GoalSuggestions {
	out := GoalSuggestions{SpendingLimits: []SpendingLimitSuggestion{}}

	for _, g := range goals {
		if !g.IsActive {
			continue
		}
		out.Context.ActiveGoals++
		if g.Category == models.CategoryEmergencyFund {
			out.Context.HasEmergencyFund = true
		}
	}

	type bucket struct {
		sum   decimal.Decimal
		count int
	}
	var order []string
	buckets := make(map[string]*bucket)
	total := decimal.Zero

	for _, tx := range expenses {
		if tx.Type != models.TransactionExpense {
			continue
		}
		total = total.Add(tx.Amount)
		b, ok := buckets[tx.Category]
		if !ok {
			b = &bucket{}
			buckets[tx.Category] = b
			order = append(order, tx.Category)
		}
		b.sum = b.sum.Add(tx.Amount)
		b.count++
	}

	avgExpenses := total.Div(lookbackMonths)
	out.Context.AverageMonthlyExpenses = avgExpenses.Round(2)
	out.Context.MonthlyIncome = income

	if income != nil && income.IsPositive() {
		rate := income.Sub(avgExpenses).Div(*income).Mul(hundred).Round(2)
		out.Context.SavingsRate = &rate
	}

	if !out.Context.HasEmergencyFund {
		recommended := avgExpenses.Mul(emergencyFundMonths)
		monthly := recommended.Div(emergencyFundHorizon)
		if income != nil {
			monthly = decimal.Min(income.Mul(incomeSavingsShare), monthly)
		}
		out.EmergencyFund = &EmergencyFundSuggestion{
			RecommendedAmount:   recommended.Round(2),
			SuggestedMonthly:    monthly.Round(2),
			MonthsOfExpenses:    emergencyFundMonths.IntPart(),
			AverageMonthlySpend: avgExpenses.Round(2),
		}
	}

	for _, category := range order {
		if len(out.SpendingLimits) == maxSpendingLimits {
			break
		}
		b := buckets[category]
		monthly := b.sum.Div(lookbackMonths)
		if !monthly.GreaterThan(minCategoryMonthly) || b.count <= minCategoryTxCount {
			continue
		}
		limit := monthly.Mul(spendingLimitFactor)
		out.SpendingLimits = append(out.SpendingLimits, SpendingLimitSuggestion{
			Category:         category,
			MonthlyAverage:   monthly.Round(2),
			TransactionCount: b.count,
			SuggestedAmount:  limit.Round(2),
			PotentialSavings: monthly.Sub(limit).Round(2),
		})
	}
	return out
}

// SuggestionService gathers the inputs of BuildSuggestions for a user.
type SuggestionService struct {
	goals        GoalStore
	transactions TransactionStore
	users        UserStore
	now          Clock
}

func NewSuggestionService(goals GoalStore, transactions TransactionStore, users UserStore) *SuggestionService {
	return &SuggestionService{goals: goals, transactions: transactions, users: users, now: time.Now}
}

// WithClock replaces the time source.
func (s *SuggestionService) WithClock(now Clock) *SuggestionService {
	s.now = now
	return s
}

func (s *SuggestionService) GetSuggestions(ctx context.Context, userID primitive.ObjectID) (*GoalSuggestions, error) {
	since := s.now().AddDate(0, 0, -SuggestionLookbackDays)
	expenses, err := s.transactions.RecentExpenseTransactions(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent expenses: %w", err)
	}

	goals, err := s.goals.GetGoalsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	var income *decimal.Decimal
	user, err := s.users.GetUserByID(ctx, userID)
	switch {
	case err == nil:
		income = user.MonthlyIncome
	case errors.Is(err, repository.ErrNotFound):
		// suggestions still work without a profile
	default:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	out := BuildSuggestions(expenses, income, goals)
	logger.Log.WithFields(map[string]interface{}{
		"user_id":         userID.Hex(),
		"expenses":        len(expenses),
		"spending_limits": len(out.SpendingLimits),
		"emergency_fund":  out.EmergencyFund != nil,
	}).Info("Goal suggestions generated")
	return &out, nil
}
