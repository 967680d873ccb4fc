package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dias221467/finance-goals/internal/handlers"
	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository/inmemory"
	"github.com/Dias221467/finance-goals/internal/services"
	jwtutil "github.com/Dias221467/finance-goals/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "handler-test-secret"

type outbox struct {
	mu     sync.Mutex
	bodies []string
}

func (o *outbox) SendEmail(_, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies = append(o.bodies, body)
	return nil
}

func (o *outbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bodies[len(o.bodies)-1]
}

type api struct {
	t      *testing.T
	server http.Handler
	store  *inmemory.Store
	mail   *outbox
	token  string
	userID primitive.ObjectID
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := inmemory.NewStore()
	mail := &outbox{}

	notifications := services.NewNotificationService(store, store, mail)
	goals := services.NewGoalService(store, store, store, notifications)
	users := services.NewUserService(store, mail, "http://api.test")
	activities := services.NewActivityService(store)

	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret:     secret,
		Store:         store,
		LastActive:    users,
		Goals:         handlers.NewGoalHandler(goals, services.NewSuggestionService(store, store, store), activities),
		Users:         handlers.NewUserHandler(users, secret, time.Hour),
		Transactions:  handlers.NewTransactionHandler(services.NewTransactionService(store), activities),
		Notifications: handlers.NewNotificationHandler(notifications),
		Activities:    handlers.NewActivityHandler(activities),
	})

	user, err := store.CreateUser(context.Background(), &models.User{Username: "ann", Email: "ann@example.com", Role: "user", IsVerified: true})
	require.NoError(t, err)
	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Email, user.Role, secret, time.Hour)
	require.NoError(t, err)

	return &api{t: t, server: router, store: store, mail: mail, token: token, userID: user.ID}
}

func (a *api) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func (a *api) createGoal(body string) map[string]any {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/goals", body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](a.t, rec)
}

func TestGoalContributionFlow(t *testing.T) {
	a := newAPI(t)

	goal := a.createGoal(`{"name":"Laptop","target_amount":"1000","current_amount":"0","target_date":"2030-01-01"}`)
	id := goal["id"].(string)
	assert.Equal(t, "SAVINGS", goal["type"])
	assert.Equal(t, "0", goal["progress_percentage"])

	rec := a.do(http.MethodPost, "/goals/"+id+"/contributions", `{"amount":"400"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/goals/"+id+"/contributions", `{"amount":600}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, true, res["goal"]["is_completed"])
	assert.Equal(t, "1000", res["goal"]["current_amount"])
	assert.NotEmpty(t, res["goal"]["completed_at"])

	rec = a.do(http.MethodPost, "/goals/"+id+"/contributions", `{"amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already completed")

	rec = a.do(http.MethodGet, "/goals/"+id+"/contributions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, page["total"])

	rec = a.do(http.MethodGet, "/goals/"+id+"/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	analytics := decode[map[string]any](t, rec)
	assert.Equal(t, "1000", analytics["total_contributed"])
	assert.Len(t, analytics["milestones"], 5)

	rec = a.do(http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]map[string]any](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "goal_completed", notes[0]["type"])

	rec = a.do(http.MethodGet, "/activities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[[]map[string]any](t, rec)
	var kinds []string
	for _, f := range feed {
		kinds = append(kinds, f["type"].(string))
	}
	assert.Contains(t, kinds, models.ActivityGoalCompleted)
	assert.Contains(t, kinds, models.ActivityGoalCreated)

	rec = a.do(http.MethodGet, "/activities?goalId="+id+"&type=CONTRIBUTION_ADDED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = a.do(http.MethodGet, "/activities?goalId=nope&type=party", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[map[string]any](t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "goalId")
	assert.Contains(t, fields, "type")
}

func TestWithdrawClampsAtZero(t *testing.T) {
	a := newAPI(t)
	goal := a.createGoal(`{"name":"Jar","target_amount":"100","current_amount":"30"}`)

	rec := a.do(http.MethodPost, "/goals/"+goal["id"].(string)+"/withdraw", `{"amount":"50"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "0", res["goal"]["current_amount"])
	assert.Equal(t, "WITHDRAWAL", res["contribution"]["type"])
}

func TestGoalValidationErrors(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/goals", `{"name":"","target_amount":"-5","currency":"usd"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "target_amount")
	assert.Contains(t, fields, "currency")

	rec = a.do(http.MethodPost, "/goals", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/goals?sortBy=color&page=0&isActive=maybe", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields = decode[map[string]any](t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "sortBy")
	assert.Contains(t, fields, "page")
	assert.Contains(t, fields, "isActive")
}

func TestContributionsBookedTodayMatchSameDayRange(t *testing.T) {
	a := newAPI(t)
	goal := a.createGoal(`{"name":"Fund","target_amount":"1000"}`)
	id := goal["id"].(string)

	rec := a.do(http.MethodPost, "/goals/"+id+"/contributions", `{"amount":"25"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	today := time.Now().UTC().Format("2006-01-02")
	rec = a.do(http.MethodGet, "/goals/"+id+"/contributions?from="+today+"&to="+today, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])

	rec = a.do(http.MethodPost, "/transactions", `{"amount":"12","type":"EXPENSE","category":"Coffee"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(http.MethodGet, "/transactions?to="+today, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])
}

func TestAdminPurgeRequiresAdminRole(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	stale := &models.Notification{UserID: a.userID, Type: models.NotificationGoalDueSoon, Title: "Old", CreatedAt: time.Now().AddDate(0, 0, -30)}
	require.NoError(t, a.store.CreateNotification(ctx, stale))

	rec := a.do(http.MethodPost, "/admin/notifications/purge", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := jwtutil.GenerateToken(primitive.NewObjectID().Hex(), "ops@example.com", handlers.AdminRole, secret, time.Hour)
	require.NoError(t, err)
	a.token = admin
	rec = a.do(http.MethodPost, "/admin/notifications/purge", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["deleted"])

	a.token = ""
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/admin/notifications/purge", "").Code)
}

func TestGoalListingFiltersAndPages(t *testing.T) {
	a := newAPI(t)
	a.createGoal(`{"name":"Car","target_amount":"9000","priority":"LOW","category":"CAR"}`)
	a.createGoal(`{"name":"Rainy day","target_amount":"3000","priority":"HIGH","category":"EMERGENCY_FUND"}`)
	a.createGoal(`{"name":"Trip","target_amount":"1500","priority":"MEDIUM","category":"VACATION","description":"Beach trip"}`)

	rec := a.do(http.MethodGet, "/goals?sortBy=priority&sortOrder=desc&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3, page["total"])
	assert.EqualValues(t, 2, page["total_pages"])
	goals := page["goals"].([]any)
	require.Len(t, goals, 2)
	assert.Equal(t, "Rainy day", goals[0].(map[string]any)["name"])
	assert.Equal(t, "Trip", goals[1].(map[string]any)["name"])

	rec = a.do(http.MethodGet, "/goals?search=beach", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])

	rec = a.do(http.MethodGet, "/goals?category=car", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])
}

func TestSummaryAndSuggestionsAreNotGoalIDs(t *testing.T) {
	a := newAPI(t)
	a.createGoal(`{"name":"Save","target_amount":"1000","current_amount":"250"}`)

	rec := a.do(http.MethodGet, "/goals/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, summary["total"])
	currencies := summary["currencies"].([]any)
	require.Len(t, currencies, 1)
	assert.Equal(t, "25", currencies[0].(map[string]any)["overall_progress"])

	rec = a.do(http.MethodGet, "/goals/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	suggestions := decode[map[string]any](t, rec)
	assert.Contains(t, suggestions, "spending_limits")
}

func TestGoalOwnershipAndRouting(t *testing.T) {
	a := newAPI(t)
	goal := a.createGoal(`{"name":"Mine","target_amount":"10"}`)
	id := goal["id"].(string)

	other, err := jwtutil.GenerateToken(primitive.NewObjectID().Hex(), "bob@example.com", "user", secret, time.Hour)
	require.NoError(t, err)
	a.token = other
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/goals/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/goals/"+id, "").Code)

	a.token = ""
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/goals/"+id, "").Code)

	a.token = "not-a-token"
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/goals", "").Code)
}

func TestArchiveRestoreDelete(t *testing.T) {
	a := newAPI(t)
	id := a.createGoal(`{"name":"Boat","target_amount":"10"}`)["id"].(string)

	rec := a.do(http.MethodPost, "/goals/"+id+"/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["is_active"])

	assert.EqualValues(t, 0, decode[map[string]any](t, a.do(http.MethodGet, "/goals", ""))["total"])
	assert.EqualValues(t, 1, decode[map[string]any](t, a.do(http.MethodGet, "/goals?includeArchived=true", ""))["total"])

	rec = a.do(http.MethodPost, "/goals/"+id+"/restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["is_active"])

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/goals/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/goals/"+id, "").Code)
}

func TestUpdateGoal(t *testing.T) {
	a := newAPI(t)
	id := a.createGoal(`{"name":"Loan","target_amount":"800","type":"DEBT_PAYOFF"}`)["id"].(string)

	rec := a.do(http.MethodPut, "/goals/"+id, `{"is_completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	goal := decode[map[string]any](t, rec)
	assert.Equal(t, "0", goal["current_amount"])
	assert.Equal(t, "100", goal["progress_percentage"])

	rec = a.do(http.MethodPut, "/goals/"+id, `{"priority":"URGENT"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsAndLinkedContribution(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/transactions", `{"amount":"250","type":"INCOME","category":"Salary","date":"2026-01-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	txID := decode[map[string]any](t, rec)["id"].(string)

	rec = a.do(http.MethodGet, "/transactions?type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])

	goalID := a.createGoal(`{"name":"Fund","target_amount":"1000"}`)["id"].(string)
	rec = a.do(http.MethodPost, "/goals/"+goalID+"/contributions", `{"amount":"250","transaction_id":"`+txID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "TRANSACTION", decode[map[string]map[string]any](t, rec)["contribution"]["type"])

	rec = a.do(http.MethodPost, "/goals/"+goalID+"/contributions", `{"amount":"1","transaction_id":"`+primitive.NewObjectID().Hex()+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "transaction_id")

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/transactions/"+txID, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/transactions/"+txID, "").Code)
}

func TestUserRegistrationFlow(t *testing.T) {
	a := newAPI(t)
	a.token = ""

	rec := a.do(http.MethodPost, "/users/register", `{"username":"bob","email":"bob@example.com","password":"hunter22!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hashed_password")

	rec = a.do(http.MethodPost, "/users/register", `{"username":"bob2","email":"bob@example.com","password":"hunter22!"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/users/login", `{"email":"bob@example.com","password":"hunter22!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, token, ok := strings.Cut(a.mail.last(), "token=")
	require.True(t, ok)
	rec = a.do(http.MethodGet, "/users/verify?token="+strings.TrimSpace(token), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/users/login", `{"email":"bob@example.com","password":"hunter22!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	a.token = decode[map[string]any](t, rec)["token"].(string)

	rec = a.do(http.MethodPatch, "/users/me", `{"monthly_income":"4000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4000", decode[map[string]any](t, rec)["monthly_income"])

	rec = a.do(http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "bob", me["username"])
	assert.NotEmpty(t, me["last_active_at"])
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	a.token = ""
	rec := a.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
