package models

import (
	"github.com/shopspring/decimal"
)

// CreateGoalRequest is the payload of POST /goals.
type CreateGoalRequest struct {
	Name           string           `json:"name" validate:"required,max=100"`
	Description    string           `json:"description" validate:"max=500"`
	TargetAmount   decimal.Decimal  `json:"target_amount" validate:"gt=0"`
	CurrentAmount  *decimal.Decimal `json:"current_amount" validate:"omitempty,gte=0"`
	Currency       string           `json:"currency" validate:"omitempty,iso4217"`
	TargetDate     string           `json:"target_date" validate:"omitempty,isodate"`
	Category       GoalCategory     `json:"category" validate:"omitempty,oneof=EMERGENCY_FUND VACATION HOME CAR EDUCATION RETIREMENT DEBT INVESTMENT OTHER"`
	Type           GoalType         `json:"type" validate:"omitempty,oneof=SAVINGS DEBT_PAYOFF SPENDING_LIMIT INVESTMENT"`
	Priority       GoalPriority     `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	IsCompleted    *bool            `json:"is_completed"`
	AutoContribute bool             `json:"auto_contribute"`
	MonthlyTarget  *decimal.Decimal `json:"monthly_target" validate:"omitempty,gt=0"`
}

// UpdateGoalRequest is the payload of PUT /goals/{id}. Nil fields are left
// unchanged; an empty target_date clears the deadline.
type UpdateGoalRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description    *string          `json:"description" validate:"omitempty,max=500"`
	TargetAmount   *decimal.Decimal `json:"target_amount" validate:"omitempty,gt=0"`
	CurrentAmount  *decimal.Decimal `json:"current_amount" validate:"omitempty,gte=0"`
	Currency       *string          `json:"currency" validate:"omitempty,iso4217"`
	TargetDate     *string          `json:"target_date" validate:"omitempty,isodate"`
	Category       *GoalCategory    `json:"category" validate:"omitempty,oneof=EMERGENCY_FUND VACATION HOME CAR EDUCATION RETIREMENT DEBT INVESTMENT OTHER"`
	Type           *GoalType        `json:"type" validate:"omitempty,oneof=SAVINGS DEBT_PAYOFF SPENDING_LIMIT INVESTMENT"`
	Priority       *GoalPriority    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	IsActive       *bool            `json:"is_active"`
	IsCompleted    *bool            `json:"is_completed"`
	AutoContribute *bool            `json:"auto_contribute"`
	MonthlyTarget  *decimal.Decimal `json:"monthly_target" validate:"omitempty,gt=0"`
}

// CreateContributionRequest is the payload of POST /goals/{id}/contributions
// and POST /goals/{id}/withdraw.
type CreateContributionRequest struct {
	Amount        decimal.Decimal  `json:"amount" validate:"gt=0"`
	Currency      string           `json:"currency" validate:"omitempty,iso4217"`
	Date          string           `json:"date" validate:"omitempty,isodate"`
	Description   string           `json:"description" validate:"max=255"`
	Type          ContributionType `json:"type" validate:"omitempty,oneof=MANUAL AUTOMATIC TRANSACTION WITHDRAWAL"`
	TransactionID string           `json:"transaction_id" validate:"omitempty,len=24,hexadecimal"`
}

// CreateTransactionRequest is the payload of POST /transactions.
type CreateTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency    string          `json:"currency" validate:"omitempty,iso4217"`
	Type        TransactionType `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    string          `json:"category" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=255"`
	Date        string          `json:"date" validate:"omitempty,isodate"`
}

// RegisterRequest is the payload of POST /users/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload of POST /users/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the payload of PATCH /users/me.
type UpdateProfileRequest struct {
	Username      *string          `json:"username" validate:"omitempty,min=3,max=50"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income" validate:"omitempty,gte=0"`
	Currency      *string          `json:"currency" validate:"omitempty,iso4217"`
}
