package services

import "errors"

var (
	ErrGoalNotFound         = errors.New("goal not found")
	ErrInvalidState         = errors.New("goal is already completed")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email already in use")
	ErrEmailNotVerified     = errors.New("email not verified, please check your inbox")
	ErrInvalidToken         = errors.New("invalid or expired verification token")

	// ErrConcurrentUpdate is returned when a goal kept changing under a write.
	ErrConcurrentUpdate = errors.New("goal is being modified concurrently, try again")
)
