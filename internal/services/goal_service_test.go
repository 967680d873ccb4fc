package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/internal/repository/inmemory"
	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ services.GoalStore         = (*inmemory.Store)(nil)
	_ services.ContributionStore = (*inmemory.Store)(nil)
	_ services.TransactionStore  = (*inmemory.Store)(nil)
	_ services.UserStore         = (*inmemory.Store)(nil)
	_ services.NotificationStore = (*inmemory.Store)(nil)
	_ services.ActivityStore     = (*inmemory.Store)(nil)

	_ services.GoalStore         = (*repository.GoalRepository)(nil)
	_ services.ContributionStore = (*repository.ContributionRepository)(nil)
	_ services.TransactionStore  = (*repository.TransactionRepository)(nil)
	_ services.UserStore         = (*repository.UserRepository)(nil)
	_ services.NotificationStore = (*repository.NotificationRepository)(nil)
	_ services.ActivityStore     = (*repository.ActivityRepository)(nil)
)

// fakeClock hands out a fixed time that tests can move forward.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fixture struct {
	store         *inmemory.Store
	clock         *fakeClock
	mailer        *fakeMailer
	goals         *services.GoalService
	notifications *services.NotificationService
	user          *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: inmemory.NewStore(), clock: newClock(), mailer: &fakeMailer{}}
	f.notifications = services.NewNotificationService(f.store, f.store, f.mailer).WithClock(f.clock.Now)
	f.goals = services.NewGoalService(f.store, f.store, f.store, f.notifications).WithClock(f.clock.Now)

	user, err := f.store.CreateUser(context.Background(), &models.User{Username: "ann", Email: "ann@example.com", IsVerified: true})
	require.NoError(t, err)
	f.user = user
	return f
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amountPtr(s string) *decimal.Decimal {
	d := amount(s)
	return &d
}

func boolPtr(b bool) *bool { return &b }

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, amount(want).Equal(got), "want %s, got %s", want, got)
}

func (f *fixture) createGoal(t *testing.T, req models.CreateGoalRequest) *models.Goal {
	t.Helper()
	g, err := f.goals.CreateGoal(context.Background(), f.user.ID, req)
	require.NoError(t, err)
	return g
}

func (f *fixture) contribute(t *testing.T, goalID primitive.ObjectID, amt string) *services.ContributionResult {
	t.Helper()
	res, err := f.goals.AddContribution(context.Background(), f.user.ID, goalID, models.CreateContributionRequest{Amount: amount(amt)})
	require.NoError(t, err)
	return res
}

func TestCreateGoalDefaults(t *testing.T) {
	f := newFixture(t)

	g := f.createGoal(t, models.CreateGoalRequest{Name: "Rainy day", TargetAmount: amount("1000"), TargetDate: "2026-12-31"})
	assert.Equal(t, models.DefaultCurrency, g.Currency)
	assert.Equal(t, models.CategoryOther, g.Category)
	assert.Equal(t, models.GoalTypeSavings, g.Type)
	assert.Equal(t, models.PriorityMedium, g.Priority)
	assert.True(t, g.IsActive)
	assert.False(t, g.IsCompleted)
	assertAmount(t, "0", g.CurrentAmount)
	require.NotNil(t, g.TargetDate)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), *g.TargetDate)

	debt := f.createGoal(t, models.CreateGoalRequest{Name: "Card", TargetAmount: amount("500"), Type: models.GoalTypeDebtPayoff})
	assertAmount(t, "500", debt.CurrentAmount)
}

func TestCreateGoalDoesNotEvaluateCompletion(t *testing.T) {
	f := newFixture(t)
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Done already", TargetAmount: amount("100"), CurrentAmount: amountPtr("150")})
	assert.False(t, g.IsCompleted)
	assert.Nil(t, g.CompletedAt)

	done := f.createGoal(t, models.CreateGoalRequest{Name: "Flagged", TargetAmount: amount("100"), IsCompleted: boolPtr(true)})
	assert.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)
	assertAmount(t, "100", done.CurrentAmount)
}

func TestCreateGoalValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.goals.CreateGoal(context.Background(), f.user.ID, models.CreateGoalRequest{
		TargetAmount: amount("-1"),
		Currency:     "usd",
		TargetDate:   "31/12/2026",
		Category:     "PETS",
	})

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "target_amount")
	assert.Contains(t, verr.Fields, "currency")
	assert.Contains(t, verr.Fields, "target_date")
	assert.Contains(t, verr.Fields, "category")

	_, err = f.goals.CreateGoal(context.Background(), f.user.ID, models.CreateGoalRequest{Name: "Auto", TargetAmount: amount("10"), AutoContribute: true})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "monthly_target")
}

func TestSavingsScenario(t *testing.T) {
	f := newFixture(t)
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Laptop", TargetAmount: amount("1000"), CurrentAmount: amountPtr("0")})

	res := f.contribute(t, g.ID, "400")
	assertAmount(t, "400", res.Goal.CurrentAmount)
	assert.False(t, res.Goal.IsCompleted)
	assert.Nil(t, res.Goal.CompletedAt)

	f.clock.Advance(29 * 24 * time.Hour)
	res = f.contribute(t, g.ID, "600")
	assertAmount(t, "1000", res.Goal.CurrentAmount)
	assert.True(t, res.Goal.IsCompleted)
	require.NotNil(t, res.Goal.CompletedAt)
	assert.Equal(t, f.clock.Now(), *res.Goal.CompletedAt)
	assertAmount(t, "100", res.Goal.ProgressPercentage)

	_, err := f.goals.AddContribution(context.Background(), f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("1")})
	assert.ErrorIs(t, err, services.ErrInvalidState)

	history, err := f.store.GetContributionHistory(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, models.ContributionManual, history[0].Type)
	assert.Equal(t, models.DefaultCurrency, history[0].Currency)
}

func TestDebtScenario(t *testing.T) {
	f := newFixture(t)
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Loan", TargetAmount: amount("500"), Type: models.GoalTypeDebtPayoff})

	res := f.contribute(t, g.ID, "500")
	assertAmount(t, "0", res.Goal.CurrentAmount)
	assert.True(t, res.Goal.IsCompleted)
	require.NotNil(t, res.Goal.CompletedAt)
}

func TestWithdrawalScenario(t *testing.T) {
	f := newFixture(t)
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Jar", TargetAmount: amount("100"), CurrentAmount: amountPtr("30")})

	res, err := f.goals.Withdraw(context.Background(), f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("50")})
	require.NoError(t, err)
	assertAmount(t, "0", res.Goal.CurrentAmount)
	assert.False(t, res.Goal.IsCompleted)
	assert.Equal(t, models.ContributionWithdrawal, res.Contribution.Type)
}

func TestContributionDateAndCurrency(t *testing.T) {
	f := newFixture(t)
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Trip", TargetAmount: amount("100"), Currency: "EUR"})

	res, err := f.goals.AddContribution(context.Background(), f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("10"), Date: "2025-11-03"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), res.Contribution.Date)
	assert.Equal(t, "EUR", res.Contribution.Currency)

	_, err = f.goals.AddContribution(context.Background(), f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("10"), Currency: "USD"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "currency")

	_, err = f.goals.AddContribution(context.Background(), f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("0")})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")
}

func TestContributionLinksOwnTransactionOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Fund", TargetAmount: amount("100")})

	own, err := f.store.CreateTransaction(ctx, &models.Transaction{UserID: f.user.ID, Type: models.TransactionIncome, Amount: amount("20")})
	require.NoError(t, err)
	foreign, err := f.store.CreateTransaction(ctx, &models.Transaction{UserID: primitive.NewObjectID(), Type: models.TransactionIncome, Amount: amount("20")})
	require.NoError(t, err)

	res, err := f.goals.AddContribution(ctx, f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("20"), TransactionID: own.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, models.ContributionTransaction, res.Contribution.Type)
	require.NotNil(t, res.Contribution.TransactionID)
	assert.Equal(t, own.ID, *res.Contribution.TransactionID)

	for _, id := range []string{foreign.ID.Hex(), primitive.NewObjectID().Hex()} {
		_, err = f.goals.AddContribution(ctx, f.user.ID, g.ID, models.CreateContributionRequest{Amount: amount("1"), TransactionID: id})
		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "transaction_id")
	}
}

func TestGoalsAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Private", TargetAmount: amount("100")})
	stranger := primitive.NewObjectID()

	_, err := f.goals.GetGoal(ctx, stranger, g.ID)
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
	_, err = f.goals.UpdateGoal(ctx, stranger, g.ID, models.UpdateGoalRequest{Name: stringPtr("mine")})
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
	_, err = f.goals.AddContribution(ctx, stranger, g.ID, models.CreateContributionRequest{Amount: amount("1")})
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
	assert.ErrorIs(t, f.goals.DeleteGoal(ctx, stranger, g.ID), services.ErrGoalNotFound)
	_, err = f.goals.GetGoal(ctx, f.user.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
}

func stringPtr(s string) *string { return &s }

func TestUpdateGoalCompletionToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.createGoal(t, models.CreateGoalRequest{Name: "Bike", TargetAmount: amount("300"), CurrentAmount: amountPtr("40")})
	updated, err := f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(true), CurrentAmount: amountPtr("10")})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	assertAmount(t, "300", updated.CurrentAmount)
	require.NotNil(t, updated.CompletedAt)

	// The balance still meets the target, so the goal cannot be reopened as is.
	_, err = f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(false)})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "is_completed")

	_, err = f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(false), CurrentAmount: amountPtr("5000")})
	require.ErrorAs(t, err, &verr)

	stored, err := f.goals.GetGoal(ctx, f.user.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
	assertAmount(t, "300", stored.CurrentAmount)

	reopened, err := f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(false), CurrentAmount: amountPtr("120")})
	require.NoError(t, err)
	assert.False(t, reopened.IsCompleted)
	assert.Nil(t, reopened.CompletedAt)
	assertAmount(t, "120", reopened.CurrentAmount)

	// Re-completing with a short balance still forces the target amount.
	again, err := f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(true), CurrentAmount: amountPtr("50")})
	require.NoError(t, err)
	assert.True(t, again.IsCompleted)
	assertAmount(t, "300", again.CurrentAmount)

	debt := f.createGoal(t, models.CreateGoalRequest{Name: "Loan", TargetAmount: amount("800"), Type: models.GoalTypeDebtPayoff})
	settled, err := f.goals.UpdateGoal(ctx, f.user.ID, debt.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(true)})
	require.NoError(t, err)
	assertAmount(t, "0", settled.CurrentAmount)

	_, err = f.goals.UpdateGoal(ctx, f.user.ID, debt.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(false)})
	require.ErrorAs(t, err, &verr)

	owing, err := f.goals.UpdateGoal(ctx, f.user.ID, debt.ID, models.UpdateGoalRequest{IsCompleted: boolPtr(false), CurrentAmount: amountPtr("200")})
	require.NoError(t, err)
	assert.False(t, owing.IsCompleted)
	assertAmount(t, "200", owing.CurrentAmount)
}

func TestUpdateGoalAmountEditsReevaluateCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Camera", TargetAmount: amount("500")})

	done, err := f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{CurrentAmount: amountPtr("500")})
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)

	raised, err := f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{TargetAmount: amountPtr("900")})
	require.NoError(t, err)
	assert.False(t, raised.IsCompleted)
	assert.Nil(t, raised.CompletedAt)

	debt := f.createGoal(t, models.CreateGoalRequest{Name: "Loan", TargetAmount: amount("800"), Type: models.GoalTypeDebtPayoff})
	paid, err := f.goals.UpdateGoal(ctx, f.user.ID, debt.ID, models.UpdateGoalRequest{CurrentAmount: amountPtr("0")})
	require.NoError(t, err)
	assert.True(t, paid.IsCompleted)
}

func TestUpdateGoalPatchesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "House", TargetAmount: amount("50000"), TargetDate: "2030-01-01"})

	cleared := ""
	updated, err := f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{
		Name:           stringPtr("Flat"),
		Priority:       ptr(models.PriorityHigh),
		TargetDate:     &cleared,
		AutoContribute: boolPtr(true),
		MonthlyTarget:  amountPtr("250"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Flat", updated.Name)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Nil(t, updated.TargetDate)
	assert.True(t, updated.AutoContribute)
	assertAmount(t, "50000", updated.TargetAmount)

	var verr *validation.Error
	_, err = f.goals.UpdateGoal(ctx, f.user.ID, g.ID, models.UpdateGoalRequest{Type: ptr(models.GoalType("LOTTERY"))})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "type")
}

func ptr[T any](v T) *T { return &v }

func TestArchiveAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Boat", TargetAmount: amount("100")})

	archived, err := f.goals.SetArchived(ctx, f.user.ID, g.ID, true)
	require.NoError(t, err)
	assert.False(t, archived.IsActive)

	page, err := f.goals.ListGoals(ctx, f.user.ID, models.GoalFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)

	page, err = f.goals.ListGoals(ctx, f.user.ID, models.GoalFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	restored, err := f.goals.SetArchived(ctx, f.user.ID, g.ID, false)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
}

func TestDeleteGoalRemovesContributions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Temp", TargetAmount: amount("100")})
	f.contribute(t, g.ID, "10")
	f.contribute(t, g.ID, "20")

	require.NoError(t, f.goals.DeleteGoal(ctx, f.user.ID, g.ID))

	_, err := f.goals.GetGoal(ctx, f.user.ID, g.ID)
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
	history, err := f.store.GetContributionHistory(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListGoalsPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		f.createGoal(t, models.CreateGoalRequest{Name: name, TargetAmount: amount("10")})
		f.clock.Advance(time.Minute)
	}

	page, err := f.goals.ListGoals(ctx, f.user.ID, models.GoalFilter{Page: models.Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Goals, 2)
	// Newest first by default.
	assert.Equal(t, "c", page.Goals[0].Name)
	assert.Equal(t, "b", page.Goals[1].Name)

	sorted, err := f.goals.ListGoals(ctx, f.user.ID, models.GoalFilter{SortBy: models.SortByName, SortOrder: models.SortAsc, Page: models.Page{Limit: 1000}})
	require.NoError(t, err)
	assert.Equal(t, models.MaxLimit, sorted.Limit)
	assert.Equal(t, "a", sorted.Goals[0].Name)
}

func TestListContributionsAndAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Piano", TargetAmount: amount("1000")})

	f.contribute(t, g.ID, "100")
	f.clock.Advance(31 * 24 * time.Hour)
	f.contribute(t, g.ID, "300")

	page, err := f.goals.ListContributions(ctx, f.user.ID, g.ID, models.ContributionQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assertAmount(t, "300", page.Contributions[0].Amount)

	a, err := f.goals.GetAnalytics(ctx, f.user.ID, g.ID)
	require.NoError(t, err)
	assertAmount(t, "400", a.TotalContributed)
	assertAmount(t, "200", a.AverageMonthlyContribution)
	require.Len(t, a.MonthlyProgress, 2)
	assert.Equal(t, "2026-01", a.MonthlyProgress[0].Month)
	assert.Equal(t, "2026-02", a.MonthlyProgress[1].Month)
}

func TestGetSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createGoal(t, models.CreateGoalRequest{Name: "Save", TargetAmount: amount("1000"), CurrentAmount: amountPtr("250")})
	f.createGoal(t, models.CreateGoalRequest{Name: "Debt", TargetAmount: amount("1000"), CurrentAmount: amountPtr("250"), Type: models.GoalTypeDebtPayoff})
	f.createGoal(t, models.CreateGoalRequest{Name: "Euro", TargetAmount: amount("100"), Currency: "EUR", IsCompleted: boolPtr(true)})
	old := f.createGoal(t, models.CreateGoalRequest{Name: "Old", TargetAmount: amount("100")})
	_, err := f.goals.SetArchived(ctx, f.user.ID, old.ID, true)
	require.NoError(t, err)

	s, err := f.goals.GetSummary(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Archived)

	require.Len(t, s.Currencies, 2)
	assert.Equal(t, "EUR", s.Currencies[0].Currency)
	assertAmount(t, "100", s.Currencies[0].OverallProgress)

	usd := s.Currencies[1]
	assertAmount(t, "2000", usd.TotalTarget)
	assertAmount(t, "250", usd.TotalSaved)
	assertAmount(t, "250", usd.TotalDebtRemaining)
	// 250 saved plus 750 paid off out of 2000.
	assertAmount(t, "50", usd.OverallProgress)
}

func TestCompletionNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGoal(t, models.CreateGoalRequest{Name: "Watch", TargetAmount: amount("50")})

	f.contribute(t, g.ID, "50")

	list, err := f.notifications.GetUserNotifications(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationGoalCompleted, list[0].Type)
	require.NotNil(t, list[0].TargetID)
	assert.Equal(t, g.ID, *list[0].TargetID)

	mails := f.mailer.Sent()
	require.Len(t, mails, 1)
	assert.Equal(t, "ann@example.com", mails[0].to)
	assert.Contains(t, mails[0].body, "$50.00")
}

// racingGoalStore lets another writer slip in between the first read and write.
type racingGoalStore struct {
	services.GoalStore
	once  sync.Once
	race  func()
	calls int
}

func (r *racingGoalStore) UpdateGoal(ctx context.Context, g *models.Goal) (*models.Goal, error) {
	r.calls++
	r.once.Do(r.race)
	return r.GoalStore.UpdateGoal(ctx, g)
}

func TestConcurrentContributionsAreNotLost(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	plain := services.NewGoalService(store, store, store, nil)
	g, err := plain.CreateGoal(ctx, userID, models.CreateGoalRequest{Name: "Shared", TargetAmount: amount("1000")})
	require.NoError(t, err)

	racing := &racingGoalStore{GoalStore: store}
	racing.race = func() {
		_, err := plain.AddContribution(ctx, userID, g.ID, models.CreateContributionRequest{Amount: amount("50")})
		require.NoError(t, err)
	}
	svc := services.NewGoalService(racing, store, store, nil)

	res, err := svc.AddContribution(ctx, userID, g.ID, models.CreateContributionRequest{Amount: amount("100")})
	require.NoError(t, err)
	assert.Equal(t, 2, racing.calls)
	assertAmount(t, "150", res.Goal.CurrentAmount)

	history, err := store.GetContributionHistory(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// conflictingGoalStore never accepts a write.
type conflictingGoalStore struct {
	services.GoalStore
}

func (conflictingGoalStore) UpdateGoal(context.Context, *models.Goal) (*models.Goal, error) {
	return nil, repository.ErrVersionConflict
}

func TestPersistentConflictGivesUp(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	g, err := services.NewGoalService(store, store, store, nil).CreateGoal(ctx, userID, models.CreateGoalRequest{Name: "Busy", TargetAmount: amount("10")})
	require.NoError(t, err)

	svc := services.NewGoalService(conflictingGoalStore{store}, store, store, nil)
	_, err = svc.AddContribution(ctx, userID, g.ID, models.CreateContributionRequest{Amount: amount("1")})
	assert.ErrorIs(t, err, services.ErrConcurrentUpdate)

	history, err := store.GetContributionHistory(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestParallelContributionsSumUp(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	svc := services.NewGoalService(store, store, store, nil)

	g, err := svc.CreateGoal(ctx, userID, models.CreateGoalRequest{Name: "Pool", TargetAmount: amount("1000000")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	booked := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddContribution(ctx, userID, g.ID, models.CreateContributionRequest{Amount: amount("1")}); err == nil {
				mu.Lock()
				booked++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, services.ErrConcurrentUpdate)
			}
		}()
	}
	wg.Wait()

	stored, err := store.GetGoalByID(ctx, g.ID)
	require.NoError(t, err)
	history, err := store.GetContributionHistory(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, history, booked)
	assertAmount(t, decimal.NewFromInt(int64(booked)).String(), stored.CurrentAmount)
}
