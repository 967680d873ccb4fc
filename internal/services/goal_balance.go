package services

import (
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/shopspring/decimal"
)

// Balance is the part of a goal that ledger events change.
type Balance struct {
	Current   decimal.Decimal
	Target    decimal.Decimal
	Completed bool
}

// balancePolicy is the accounting polarity of a goal type.
type balancePolicy interface {
	// applyEvent books one contribution or withdrawal.
	applyEvent(b Balance, amount decimal.Decimal, withdrawal bool) Balance
	// settle re-evaluates completion after Current or Target was edited directly.
	settle(b Balance) Balance
	// complete forces the balance into its completed state.
	complete(b Balance) Balance
	// opening is the balance a new goal starts from.
	opening(target decimal.Decimal, current *decimal.Decimal) decimal.Decimal
}

// accumulatePolicy builds Current up towards Target.
type accumulatePolicy struct{}

func (accumulatePolicy) applyEvent(b Balance, amount decimal.Decimal, withdrawal bool) Balance {
	if withdrawal {
		b.Current = decimal.Max(decimal.Zero, b.Current.Sub(amount))
		b.Completed = false
		return b
	}
	b.Current = b.Current.Add(amount)
	b.Completed = b.Current.GreaterThanOrEqual(b.Target)
	return b
}

func (accumulatePolicy) settle(b Balance) Balance {
	b.Current = decimal.Max(decimal.Zero, b.Current)
	b.Completed = b.Current.GreaterThanOrEqual(b.Target)
	return b
}

func (accumulatePolicy) complete(b Balance) Balance {
	b.Current = b.Target
	b.Completed = true
	return b
}

func (accumulatePolicy) opening(_ decimal.Decimal, current *decimal.Decimal) decimal.Decimal {
	if current != nil {
		return *current
	}
	return decimal.Zero
}

// payDownPolicy treats Current as the debt still owed. Every event is a
// payment, including ones booked as withdrawals.
type payDownPolicy struct{}

func (payDownPolicy) applyEvent(b Balance, amount decimal.Decimal, _ bool) Balance {
	remaining := b.Current.Sub(amount)
	b.Current = decimal.Max(decimal.Zero, remaining)
	b.Completed = !remaining.IsPositive()
	return b
}

func (payDownPolicy) settle(b Balance) Balance {
	b.Completed = !b.Current.IsPositive()
	b.Current = decimal.Max(decimal.Zero, b.Current)
	return b
}

func (payDownPolicy) complete(b Balance) Balance {
	b.Current = decimal.Zero
	b.Completed = true
	return b
}

func (payDownPolicy) opening(target decimal.Decimal, current *decimal.Decimal) decimal.Decimal {
	if current != nil {
		return *current
	}
	return target
}

func policyFor(t models.GoalType) balancePolicy {
	if t == models.GoalTypeDebtPayoff {
		return payDownPolicy{}
	}
	return accumulatePolicy{}
}

// Reconcile books one ledger event against a balance. It fails with
// ErrInvalidState when the balance is already completed.
func Reconcile(t models.GoalType, b Balance, amount decimal.Decimal, kind models.ContributionType) (Balance, error) {
	if b.Completed {
		return b, ErrInvalidState
	}
	return policyFor(t).applyEvent(b, amount, kind == models.ContributionWithdrawal), nil
}

// OpeningBalance is the Current a new goal of type t starts with.
func OpeningBalance(t models.GoalType, target decimal.Decimal, current *decimal.Decimal) decimal.Decimal {
	return policyFor(t).opening(target, current)
}

func balanceOf(g *models.Goal) Balance {
	return Balance{Current: g.CurrentAmount, Target: g.TargetAmount, Completed: g.IsCompleted}
}

// applyBalance stores b on g and keeps CompletedAt in step with IsCompleted.
func applyBalance(g *models.Goal, b Balance, now time.Time) {
	wasCompleted := g.IsCompleted
	g.CurrentAmount = b.Current
	g.IsCompleted = b.Completed

	switch {
	case b.Completed && (!wasCompleted || g.CompletedAt == nil):
		at := now
		g.CompletedAt = &at
	case !b.Completed:
		g.CompletedAt = nil
	}
}
