package handlers

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/pkg/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	goalCategories = []models.GoalCategory{
		models.CategoryEmergencyFund, models.CategoryVacation, models.CategoryHome, models.CategoryCar,
		models.CategoryEducation, models.CategoryRetirement, models.CategoryDebt, models.CategoryInvestment,
		models.CategoryOther,
	}
	goalTypes      = []models.GoalType{models.GoalTypeSavings, models.GoalTypeDebtPayoff, models.GoalTypeSpendingLimit, models.GoalTypeInvestment}
	goalPriorities = []models.GoalPriority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}
	goalSortKeys   = []string{models.SortByName, models.SortByTargetAmount, models.SortByTargetDate, models.SortByPriority, models.SortByCreatedAt}
	sortOrders     = []string{models.SortAsc, models.SortDesc}
	txTypes        = []models.TransactionType{models.TransactionIncome, models.TransactionExpense}
)

// queryParser collects every malformed parameter instead of stopping at the first.
type queryParser struct {
	q      url.Values
	fields map[string]string
}

func newQueryParser(q url.Values) *queryParser {
	return &queryParser{q: q, fields: map[string]string{}}
}

func (p *queryParser) fail(key, msg string) {
	p.fields[key] = msg
}

func (p *queryParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &validation.Error{Fields: p.fields}
}

func (p *queryParser) boolParam(key string) *bool {
	raw := p.q.Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, "must be true or false")
		return nil
	}
	return &v
}

func (p *queryParser) dateParam(key string) *time.Time {
	raw := p.q.Get(key)
	if raw == "" {
		return nil
	}
	d, err := validation.ParseDate(raw)
	if err != nil {
		p.fail(key, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

// untilParam reads an inclusive upper bound. A bare date covers that whole day.
func (p *queryParser) untilParam(key string) *time.Time {
	d := p.dateParam(key)
	if d == nil {
		return nil
	}
	if _, err := time.Parse(validation.DateLayout, p.q.Get(key)); err != nil {
		return d
	}
	end := d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end
}

func (p *queryParser) intParam(key string, least int) int {
	raw := p.q.Get(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < least {
		p.fail(key, "must be an integer of at least "+strconv.Itoa(least))
		return 0
	}
	return v
}

func (p *queryParser) page() models.Page {
	return models.Page{Page: p.intParam("page", 1), Limit: p.intParam("limit", 1)}
}

// oneOf returns the parameter if it is one of allowed, matched case-insensitively.
func oneOf[T ~string](p *queryParser, key string, allowed []T) T {
	raw := p.q.Get(key)
	if raw == "" {
		return ""
	}
	i := slices.IndexFunc(allowed, func(a T) bool { return strings.EqualFold(string(a), raw) })
	if i < 0 {
		names := make([]string, len(allowed))
		for j, a := range allowed {
			names[j] = string(a)
		}
		p.fail(key, "must be one of: "+strings.Join(names, ", "))
		return ""
	}
	return allowed[i]
}

// parseGoalFilter reads the goal listing parameters. Unknown values are a
// validation error; a limit above the maximum is clamped.
func parseGoalFilter(q url.Values) (models.GoalFilter, error) {
	p := newQueryParser(q)
	f := models.GoalFilter{
		Category:       oneOf(p, "category", goalCategories),
		Type:           oneOf(p, "type", goalTypes),
		Priority:       oneOf(p, "priority", goalPriorities),
		IsActive:       p.boolParam("isActive"),
		IsCompleted:    p.boolParam("isCompleted"),
		TargetDateFrom: p.dateParam("targetDateFrom"),
		TargetDateTo:   p.untilParam("targetDateTo"),
		Search:         strings.TrimSpace(q.Get("search")),
		SortBy:         oneOf(p, "sortBy", goalSortKeys),
		SortOrder:      oneOf(p, "sortOrder", sortOrders),
		Page:           p.page(),
	}
	if archived := p.boolParam("includeArchived"); archived != nil {
		f.IncludeArchived = *archived
	}
	return f, p.err()
}

func parseContributionQuery(q url.Values) (models.ContributionQuery, error) {
	p := newQueryParser(q)
	out := models.ContributionQuery{
		From: p.dateParam("from"),
		To:   p.untilParam("to"),
		Page: p.page(),
	}
	return out, p.err()
}

func parseTransactionQuery(q url.Values) (models.TransactionQuery, error) {
	p := newQueryParser(q)
	out := models.TransactionQuery{
		Type: oneOf(p, "type", txTypes),
		From: p.dateParam("from"),
		To:   p.untilParam("to"),
		Page: p.page(),
	}
	return out, p.err()
}

func parseActivityQuery(q url.Values) (models.ActivityQuery, error) {
	p := newQueryParser(q)
	out := models.ActivityQuery{
		Type:  oneOf(p, "type", models.ActivityTypes),
		Limit: p.intParam("limit", 1),
	}
	if raw := q.Get("goalId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			p.fail("goalId", "must be a valid id")
		} else {
			out.TargetID = &id
		}
	}
	return out, p.err()
}
