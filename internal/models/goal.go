package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GoalCategory string

const (
	CategoryEmergencyFund GoalCategory = "EMERGENCY_FUND"
	CategoryVacation      GoalCategory = "VACATION"
	CategoryHome          GoalCategory = "HOME"
	CategoryCar           GoalCategory = "CAR"
	CategoryEducation     GoalCategory = "EDUCATION"
	CategoryRetirement    GoalCategory = "RETIREMENT"
	CategoryDebt          GoalCategory = "DEBT"
	CategoryInvestment    GoalCategory = "INVESTMENT"
	CategoryOther         GoalCategory = "OTHER"
)

type GoalType string

const (
	GoalTypeSavings       GoalType = "SAVINGS"
	GoalTypeDebtPayoff    GoalType = "DEBT_PAYOFF"
	GoalTypeSpendingLimit GoalType = "SPENDING_LIMIT"
	GoalTypeInvestment    GoalType = "INVESTMENT"
)

type GoalPriority string

const (
	PriorityLow    GoalPriority = "LOW"
	PriorityMedium GoalPriority = "MEDIUM"
	PriorityHigh   GoalPriority = "HIGH"
)

// PriorityRank orders priorities LOW < MEDIUM < HIGH. Unknown values rank lowest.
func PriorityRank(p GoalPriority) int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	}
	return 0
}

// DefaultCurrency is used when a goal or contribution names no currency.
const DefaultCurrency = "USD"

// Goal is a savings or debt target owned by one user.
//
// For DEBT_PAYOFF goals CurrentAmount is the debt still owed; for every other
// type it is the amount accumulated so far.
type Goal struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	TargetAmount   decimal.Decimal    `bson:"target_amount" json:"target_amount"`
	CurrentAmount  decimal.Decimal    `bson:"current_amount" json:"current_amount"`
	Currency       string             `bson:"currency" json:"currency"`
	TargetDate     *time.Time         `bson:"target_date,omitempty" json:"target_date,omitempty"`
	Category       GoalCategory       `bson:"category" json:"category"`
	Type           GoalType           `bson:"type" json:"type"`
	Priority       GoalPriority       `bson:"priority" json:"priority"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
	IsCompleted    bool               `bson:"is_completed" json:"is_completed"`
	CompletedAt    *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	AutoContribute bool               `bson:"auto_contribute" json:"auto_contribute"`
	MonthlyTarget  *decimal.Decimal   `bson:"monthly_target,omitempty" json:"monthly_target,omitempty"`
	Version        int64              `bson:"version" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsDebt reports whether the goal pays a balance down instead of building one up.
func (g *Goal) IsDebt() bool {
	return g.Type == GoalTypeDebtPayoff
}

// RemainingAmount is what is left to save, or the debt still owed.
func (g *Goal) RemainingAmount() decimal.Decimal {
	if g.IsDebt() {
		return decimal.Max(decimal.Zero, g.CurrentAmount)
	}
	return decimal.Max(decimal.Zero, g.TargetAmount.Sub(g.CurrentAmount))
}

// ProgressPercentage is capped to [0, 100] and rounded to two places.
func (g *Goal) ProgressPercentage() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	done := g.CurrentAmount
	if g.IsDebt() {
		done = g.TargetAmount.Sub(g.CurrentAmount)
	}
	pct := done.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	pct = decimal.Min(decimal.NewFromInt(100), decimal.Max(decimal.Zero, pct))
	return pct.Round(2)
}

// GoalView is a goal as returned by the read endpoints.
type GoalView struct {
	Goal
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
}

// NewGoalView decorates g with its derived progress fields.
func NewGoalView(g Goal) GoalView {
	return GoalView{
		Goal:               g,
		ProgressPercentage: g.ProgressPercentage(),
		RemainingAmount:    g.RemainingAmount(),
	}
}
