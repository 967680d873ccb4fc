package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pagination defaults and bounds shared by every list endpoint.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Goal sort keys.
const (
	SortByName         = "name"
	SortByTargetAmount = "targetAmount"
	SortByTargetDate   = "targetDate"
	SortByPriority     = "priority"
	SortByCreatedAt    = "createdAt"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Page selects a window of a sorted result set.
type Page struct {
	Page  int
	Limit int
}

// Normalize fills zero values with the defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Skip is the number of records before the page.
func (p Page) Skip() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages is the number of pages needed to hold total records.
func (p Page) TotalPages(total int64) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// GoalFilter narrows a user's goal listing.
type GoalFilter struct {
	Category        GoalCategory
	Type            GoalType
	Priority        GoalPriority
	IsActive        *bool
	IsCompleted     *bool
	TargetDateFrom  *time.Time
	TargetDateTo    *time.Time
	Search          string
	IncludeArchived bool
	SortBy          string
	SortOrder       string
	Page
}

// Normalize applies the default sort and pagination.
func (f GoalFilter) Normalize() GoalFilter {
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	f.Page = f.Page.Normalize()
	return f
}

// ContributionQuery narrows a goal's ledger listing.
type ContributionQuery struct {
	From *time.Time
	To   *time.Time
	Page
}

// TransactionQuery narrows a user's transaction listing.
type TransactionQuery struct {
	Type TransactionType
	From *time.Time
	To   *time.Time
	Page
}

// ActivityQuery narrows a user's activity feed. Limit is capped at MaxLimit.
type ActivityQuery struct {
	TargetID *primitive.ObjectID
	Type     string
	Limit    int
}
