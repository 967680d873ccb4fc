// Package inmemory keeps every record the server persists in process memory.
// It mirrors the MongoDB repositories, including version checks on goals, and
// backs STORAGE_DRIVER=memory and the test suites. Data is lost on restart.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is safe for concurrent use. Records are copied on the way in and out
// so callers never share memory with the store.
type Store struct {
	mu            sync.RWMutex
	goals         map[primitive.ObjectID]*models.Goal
	contributions []models.GoalContribution
	transactions  map[primitive.ObjectID]*models.Transaction
	users         map[primitive.ObjectID]*models.User
	notifications []models.Notification
	activities    []models.Activity
	now           func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		goals:        make(map[primitive.ObjectID]*models.Goal),
		transactions: make(map[primitive.ObjectID]*models.Transaction),
		users:        make(map[primitive.ObjectID]*models.User),
		now:          time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// --- goals ---

func (s *Store) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if goal.ID.IsZero() {
		goal.ID = primitive.NewObjectID()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = s.now()
	}
	goal.UpdatedAt = goal.CreatedAt
	goal.Version = 1

	stored := cloneGoal(*goal)
	s.goals[goal.ID] = &stored
	return goal, nil
}

func (s *Store) GetGoalByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	goal, ok := s.goals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneGoal(*goal)
	return &out, nil
}

// UpdateGoal replaces the goal only if its stored version equals goal.Version.
func (s *Store) UpdateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.goals[goal.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != goal.Version {
		return nil, repository.ErrVersionConflict
	}

	goal.Version++
	if goal.UpdatedAt.IsZero() {
		goal.UpdatedAt = s.now()
	}
	stored := cloneGoal(*goal)
	s.goals[goal.ID] = &stored
	return goal, nil
}

func (s *Store) DeleteGoal(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.goals[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) FindGoals(ctx context.Context, userID primitive.ObjectID, f models.GoalFilter) ([]models.Goal, int64, error) {
	f = f.Normalize()

	s.mu.RLock()
	var matched []models.Goal
	for _, g := range s.goals {
		if g.UserID == userID && matchGoal(g, f) {
			matched = append(matched, cloneGoal(*g))
		}
	}
	s.mu.RUnlock()

	sortGoals(matched, f.SortBy, f.SortOrder == models.SortAsc)

	total := int64(len(matched))
	return paginate(matched, f.Page), total, nil
}

func (s *Store) GetGoalsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Goal, error) {
	return s.selectGoals(func(g *models.Goal) bool { return g.UserID == userID }, models.SortByCreatedAt), nil
}

func (s *Store) FindAutoContributeGoals(ctx context.Context) ([]models.Goal, error) {
	return s.selectGoals(func(g *models.Goal) bool {
		return g.AutoContribute && g.IsActive && !g.IsCompleted && g.MonthlyTarget != nil
	}, models.SortByCreatedAt), nil
}

func (s *Store) FindGoalsDueBetween(ctx context.Context, from, to time.Time) ([]models.Goal, error) {
	return s.selectGoals(func(g *models.Goal) bool {
		return g.IsActive && !g.IsCompleted && g.TargetDate != nil &&
			!g.TargetDate.Before(from) && !g.TargetDate.After(to)
	}, models.SortByTargetDate), nil
}

func (s *Store) selectGoals(keep func(*models.Goal) bool, sortBy string) []models.Goal {
	s.mu.RLock()
	out := []models.Goal{}
	for _, g := range s.goals {
		if keep(g) {
			out = append(out, cloneGoal(*g))
		}
	}
	s.mu.RUnlock()

	sortGoals(out, sortBy, true)
	return out
}

func matchGoal(g *models.Goal, f models.GoalFilter) bool {
	if f.Category != "" && g.Category != f.Category {
		return false
	}
	if f.Type != "" && g.Type != f.Type {
		return false
	}
	if f.Priority != "" && g.Priority != f.Priority {
		return false
	}
	if f.IsActive != nil {
		if g.IsActive != *f.IsActive {
			return false
		}
	} else if !f.IncludeArchived && !g.IsActive {
		return false
	}
	if f.IsCompleted != nil && g.IsCompleted != *f.IsCompleted {
		return false
	}
	if f.TargetDateFrom != nil || f.TargetDateTo != nil {
		if g.TargetDate == nil {
			return false
		}
		if f.TargetDateFrom != nil && g.TargetDate.Before(*f.TargetDateFrom) {
			return false
		}
		if f.TargetDateTo != nil && g.TargetDate.After(*f.TargetDateTo) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(g.Name), needle) &&
			!strings.Contains(strings.ToLower(g.Description), needle) {
			return false
		}
	}
	return true
}

// sortGoals orders by the sort key and then by id, both in the same direction.
// Goals without a target date come first in ascending order.
func sortGoals(goals []models.Goal, sortBy string, asc bool) {
	sort.SliceStable(goals, func(i, j int) bool {
		c := compareGoals(&goals[i], &goals[j], sortBy)
		if c == 0 {
			c = strings.Compare(goals[i].ID.Hex(), goals[j].ID.Hex())
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compareGoals(a, b *models.Goal, sortBy string) int {
	switch sortBy {
	case models.SortByName:
		return strings.Compare(a.Name, b.Name)
	case models.SortByTargetAmount:
		return a.TargetAmount.Cmp(b.TargetAmount)
	case models.SortByTargetDate:
		switch {
		case a.TargetDate == nil && b.TargetDate == nil:
			return 0
		case a.TargetDate == nil:
			return -1
		case b.TargetDate == nil:
			return 1
		}
		return a.TargetDate.Compare(*b.TargetDate)
	case models.SortByPriority:
		return models.PriorityRank(a.Priority) - models.PriorityRank(b.Priority)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cloneGoal(g models.Goal) models.Goal {
	if g.TargetDate != nil {
		t := *g.TargetDate
		g.TargetDate = &t
	}
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		g.CompletedAt = &t
	}
	if g.MonthlyTarget != nil {
		m := *g.MonthlyTarget
		g.MonthlyTarget = &m
	}
	return g
}

func paginate[T any](items []T, p models.Page) []T {
	start := p.Skip()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- contributions ---

func (s *Store) CreateContribution(ctx context.Context, c *models.GoalContribution) (*models.GoalContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.contributions = append(s.contributions, cloneContribution(*c))
	return c, nil
}

func (s *Store) ListContributions(ctx context.Context, goalID primitive.ObjectID, q models.ContributionQuery) ([]models.GoalContribution, int64, error) {
	q.Page = q.Page.Normalize()

	s.mu.RLock()
	var matched []models.GoalContribution
	for _, c := range s.contributions {
		if c.GoalID != goalID || !inRange(c.Date, q.From, q.To) {
			continue
		}
		matched = append(matched, cloneContribution(c))
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return paginate(matched, q.Page), total, nil
}

func (s *Store) GetContributionHistory(ctx context.Context, goalID primitive.ObjectID) ([]models.GoalContribution, error) {
	s.mu.RLock()
	out := []models.GoalContribution{}
	for _, c := range s.contributions {
		if c.GoalID == goalID {
			out = append(out, cloneContribution(c))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteContributionsByGoal(ctx context.Context, goalID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.contributions[:0]
	var deleted int64
	for _, c := range s.contributions {
		if c.GoalID == goalID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	s.contributions = kept
	return deleted, nil
}

func cloneContribution(c models.GoalContribution) models.GoalContribution {
	if c.TransactionID != nil {
		id := *c.TransactionID
		c.TransactionID = &id
	}
	return c
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// --- transactions ---

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	stored := *tx
	s.transactions[tx.ID] = &stored
	return tx, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *tx
	return &out, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID primitive.ObjectID, q models.TransactionQuery) ([]models.Transaction, int64, error) {
	q.Page = q.Page.Normalize()

	matched := s.selectTransactions(func(tx *models.Transaction) bool {
		return tx.UserID == userID && (q.Type == "" || tx.Type == q.Type) && inRange(tx.Date, q.From, q.To)
	}, false)

	total := int64(len(matched))
	return paginate(matched, q.Page), total, nil
}

func (s *Store) RecentExpenseTransactions(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Transaction, error) {
	return s.selectTransactions(func(tx *models.Transaction) bool {
		return tx.UserID == userID && tx.Type == models.TransactionExpense && !tx.Date.Before(since)
	}, true), nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) selectTransactions(keep func(*models.Transaction) bool, asc bool) []models.Transaction {
	s.mu.RLock()
	out := []models.Transaction{}
	for _, tx := range s.transactions {
		if keep(tx) {
			out = append(out, *tx)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		c := out[i].Date.Compare(out[j].Date)
		if c == 0 {
			c = strings.Compare(out[i].ID.Hex(), out[j].ID.Hex())
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
	return out
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.UpdatedAt = user.CreatedAt

	stored := cloneUser(*user)
	s.users[user.ID] = &stored
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.ID == id })
}

func (s *Store) GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return s.findUser(func(u *models.User) bool { return u.VerifyToken == token })
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = s.now()
	}
	stored := cloneUser(*user)
	s.users[user.ID] = &stored
	return user, nil
}

func (s *Store) UpdateLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.LastActiveAt = at
	}
	return nil
}

func (s *Store) findUser(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			out := cloneUser(*u)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func cloneUser(u models.User) models.User {
	if u.MonthlyIncome != nil {
		m := *u.MonthlyIncome
		u.MonthlyIncome = &m
	}
	return u
}

// --- notifications ---

func (s *Store) CreateNotification(ctx context.Context, notif *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.ID.IsZero() {
		notif.ID = primitive.NewObjectID()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = s.now()
	}
	notif.ExpiresAt = notif.CreatedAt.Add(repository.NotificationTTL)
	s.notifications = append(s.notifications, *notif)
	return nil
}

func (s *Store) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, now time.Time) ([]models.Notification, error) {
	s.mu.RLock()
	out := []models.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID && n.ExpiresAt.After(now) {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkAsRead(ctx context.Context, userID, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeleteNotification(ctx context.Context, userID, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) GetLatestNotificationByType(ctx context.Context, userID primitive.ObjectID, notifType string, targetID primitive.ObjectID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Notification
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.UserID != userID || n.Type != notifType || n.TargetID == nil || *n.TargetID != targetID {
			continue
		}
		if latest == nil || n.CreatedAt.After(latest.CreatedAt) {
			latest = n
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (s *Store) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	var deleted int64
	for _, n := range s.notifications {
		if !n.ExpiresAt.After(now) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return deleted, nil
}

// --- activities ---

func (s *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	s.activities = append(s.activities, *activity)
	return nil
}

func (s *Store) GetUserActivities(ctx context.Context, userID primitive.ObjectID, q models.ActivityQuery) ([]models.Activity, error) {
	s.mu.RLock()
	out := []models.Activity{}
	// Walk backwards so later inserts win ties.
	for i := len(s.activities) - 1; i >= 0; i-- {
		a := s.activities[i]
		if a.UserID != userID || (q.TargetID != nil && a.TargetID != *q.TargetID) || (q.Type != "" && a.Type != q.Type) {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
