package services

import (
	"iter"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MilestonePercentages are the checkpoints reported for every goal.
var MilestonePercentages = []int64{25, 50, 75, 90, 100}

var hundred = decimal.NewFromInt(100)

// MonthlyProgress is one calendar month of the ledger with the running total.
type MonthlyProgress struct {
	Month      string          `json:"month"` // YYYY-MM
	Amount     decimal.Decimal `json:"amount"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// ContributionBreakdown sums the ledger entries of one contribution type.
type ContributionBreakdown struct {
	Type       models.ContributionType `json:"type"`
	Amount     decimal.Decimal         `json:"amount"`
	Count      int                     `json:"count"`
	Percentage decimal.Decimal         `json:"percentage"`
}

// Milestone is a fixed percentage checkpoint of the target amount.
type Milestone struct {
	Percentage    int64           `json:"percentage"`
	Amount        decimal.Decimal `json:"amount"`
	Achieved      bool            `json:"achieved"`
	AchievedAt    *time.Time      `json:"achieved_at,omitempty"`
	ProjectedDate *time.Time      `json:"projected_date,omitempty"`
}

// GoalAnalytics is derived on every read and never stored.
type GoalAnalytics struct {
	GoalID                      primitive.ObjectID      `json:"goal_id"`
	ProgressPercentage          decimal.Decimal         `json:"progress_percentage"`
	RemainingAmount             decimal.Decimal         `json:"remaining_amount"`
	TotalContributed            decimal.Decimal         `json:"total_contributed"`
	ContributionCount           int                     `json:"contribution_count"`
	MonthlyProgress             []MonthlyProgress       `json:"monthly_progress"`
	AverageMonthlyContribution  decimal.Decimal         `json:"average_monthly_contribution"`
	RequiredMonthlyContribution *decimal.Decimal        `json:"required_monthly_contribution,omitempty"`
	ProjectedCompletionDate     *time.Time              `json:"projected_completion_date,omitempty"`
	IsOnTrack                   bool                    `json:"is_on_track"`
	ContributionBreakdown       []ContributionBreakdown `json:"contribution_breakdown"`
	Milestones                  []Milestone             `json:"milestones"`
}

// ComputeAnalytics derives every metric from the goal and its ledger. It does
// not modify either argument.
func ComputeAnalytics(goal models.Goal, ledger []models.GoalContribution, now time.Time) GoalAnalytics {
	entries := slices.Clone(ledger)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })

	total := decimal.Zero
	for _, c := range entries {
		total = total.Add(c.Amount)
	}

	avg := averageMonthly(entries, total)
	required := requiredMonthly(goal, now)

	a := GoalAnalytics{
		GoalID:                     goal.ID,
		ProgressPercentage:         goal.ProgressPercentage(),
		RemainingAmount:            goal.RemainingAmount(),
		TotalContributed:           total,
		ContributionCount:          len(entries),
		MonthlyProgress:            slices.Collect(MonthlyProgressSeries(entries)),
		AverageMonthlyContribution: avg.Round(2),
		ProjectedCompletionDate:    project(goal.RemainingAmount(), avg, now),
		IsOnTrack:                  required == nil || avg.GreaterThanOrEqual(*required),
		ContributionBreakdown:      breakdown(entries, total),
		Milestones:                 milestones(goal, entries, avg, now),
	}
	if required != nil {
		r := required.Round(2)
		a.RequiredMonthlyContribution = &r
	}
	if a.MonthlyProgress == nil {
		a.MonthlyProgress = []MonthlyProgress{}
	}
	return a
}

// MonthlyProgressSeries yields one entry per calendar month that has ledger
// activity, oldest first, with a running total. The grouping is redone every
// time the sequence is ranged over.
func MonthlyProgressSeries(ledger []models.GoalContribution) iter.Seq[MonthlyProgress] {
	return func(yield func(MonthlyProgress) bool) {
		sums := make(map[string]decimal.Decimal)
		for _, c := range ledger {
			key := c.Date.UTC().Format("2006-01")
			sums[key] = sums[key].Add(c.Amount)
		}

		running := decimal.Zero
		for _, month := range slices.Sorted(maps.Keys(sums)) {
			running = running.Add(sums[month])
			if !yield(MonthlyProgress{Month: month, Amount: sums[month], Cumulative: running}) {
				return
			}
		}
	}
}

// monthsBetween counts the whole calendar months from a to b. It is negative
// when b is before a.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return -monthsBetween(b, a)
	}
	a, b = a.UTC(), b.UTC()
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	// The last month only counts once b reaches a's day and time of day.
	if months > 0 && a.AddDate(0, months, 0).After(b) {
		months--
	}
	return months
}

func averageMonthly(entries []models.GoalContribution, total decimal.Decimal) decimal.Decimal {
	if len(entries) == 0 {
		return decimal.Zero
	}
	span := monthsBetween(entries[0].Date, entries[len(entries)-1].Date) + 1
	return total.Div(decimal.NewFromInt(int64(max(1, span))))
}

func requiredMonthly(goal models.Goal, now time.Time) *decimal.Decimal {
	if goal.TargetDate == nil {
		return nil
	}
	months := max(1, monthsBetween(now, *goal.TargetDate))
	r := decimal.Max(decimal.Zero, goal.RemainingAmount().Div(decimal.NewFromInt(int64(months))))
	return &r
}

// project returns when remaining is covered at avg per month, or nil when
// nothing is being put aside.
func project(remaining, avg decimal.Decimal, now time.Time) *time.Time {
	if !avg.IsPositive() {
		return nil
	}
	months := decimal.Max(decimal.Zero, remaining).Div(avg).Ceil().IntPart()
	at := now.AddDate(0, int(months), 0)
	return &at
}

func breakdown(entries []models.GoalContribution, total decimal.Decimal) []ContributionBreakdown {
	byType := make(map[models.ContributionType]*ContributionBreakdown)
	for _, c := range entries {
		b, ok := byType[c.Type]
		if !ok {
			b = &ContributionBreakdown{Type: c.Type, Amount: decimal.Zero}
			byType[c.Type] = b
		}
		b.Amount = b.Amount.Add(c.Amount)
		b.Count++
	}

	out := make([]ContributionBreakdown, 0, len(byType))
	for _, typ := range slices.Sorted(maps.Keys(byType)) {
		b := *byType[typ]
		b.Percentage = decimal.Zero
		if !total.IsZero() {
			b.Percentage = b.Amount.Div(total).Mul(hundred).Round(2)
		}
		out = append(out, b)
	}
	return out
}

// milestones marks a checkpoint achieved on the first single entry at least as
// large as the checkpoint amount. Progress accumulated over several smaller
// entries does not count.
func milestones(goal models.Goal, entries []models.GoalContribution, avg decimal.Decimal, now time.Time) []Milestone {
	progressed := goal.CurrentAmount
	if goal.IsDebt() {
		progressed = goal.TargetAmount.Sub(goal.CurrentAmount)
	}

	out := make([]Milestone, 0, len(MilestonePercentages))
	for _, pct := range MilestonePercentages {
		m := Milestone{
			Percentage: pct,
			Amount:     goal.TargetAmount.Mul(decimal.NewFromInt(pct)).Div(hundred).Round(2),
		}
		for _, c := range entries {
			if c.Amount.GreaterThanOrEqual(m.Amount) {
				at := c.Date
				m.Achieved = true
				m.AchievedAt = &at
				break
			}
		}
		if progressed.LessThan(m.Amount) {
			m.ProjectedDate = project(m.Amount.Sub(progressed), avg, now)
		}
		out = append(out, m)
	}
	return out
}
