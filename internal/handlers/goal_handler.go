package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GoalHandler handles HTTP requests related to goals.
type GoalHandler struct {
	Service           *services.GoalService
	SuggestionService *services.SuggestionService
	ActivityService   *services.ActivityService
}

// NewGoalHandler creates a new instance of GoalHandler.
func NewGoalHandler(goalService *services.GoalService, suggestionService *services.SuggestionService, activityService *services.ActivityService) *GoalHandler {
	return &GoalHandler{
		Service:           goalService,
		SuggestionService: suggestionService,
		ActivityService:   activityService,
	}
}

// CreateGoalHandler handles POST /goals.
func (h *GoalHandler) CreateGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := h.Service.CreateGoal(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to create goal")
		return
	}

	h.logActivity(r.Context(), userID, models.ActivityGoalCreated, goal.ID, fmt.Sprintf("Created goal: %s", goal.Name))

	logrus.WithFields(logrus.Fields{
		"userID": userID.Hex(),
		"goalID": goal.ID.Hex(),
	}).Info("Goal successfully created")
	middleware.WriteJSON(w, http.StatusCreated, models.NewGoalView(*goal))
}

// GetGoalsHandler handles GET /goals with filtering, sorting and pagination.
func (h *GoalHandler) GetGoalsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, err := parseGoalFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, err, "Invalid goal filter")
		return
	}

	page, err := h.Service.ListGoals(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list goals")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, page)
}

// GetGoalHandler handles GET /goals/{id}.
func (h *GoalHandler) GetGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	goal, err := h.Service.GetGoal(r.Context(), userID, goalID)
	if err != nil {
		writeServiceError(w, err, "Failed to get goal")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, models.NewGoalView(*goal))
}

// UpdateGoalHandler handles PUT /goals/{id}.
func (h *GoalHandler) UpdateGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := h.Service.UpdateGoal(r.Context(), userID, goalID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to update goal")
		return
	}

	h.logActivity(r.Context(), userID, models.ActivityGoalUpdated, goal.ID, fmt.Sprintf("Updated goal: %s", goal.Name))
	middleware.WriteJSON(w, http.StatusOK, models.NewGoalView(*goal))
}

// DeleteGoalHandler handles DELETE /goals/{id}.
func (h *GoalHandler) DeleteGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteGoal(r.Context(), userID, goalID); err != nil {
		writeServiceError(w, err, "Failed to delete goal")
		return
	}

	h.logActivity(r.Context(), userID, models.ActivityGoalDeleted, goalID, "Deleted a goal")
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveGoalHandler handles POST /goals/{id}/archive.
func (h *GoalHandler) ArchiveGoalHandler(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// RestoreGoalHandler handles POST /goals/{id}/restore.
func (h *GoalHandler) RestoreGoalHandler(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *GoalHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	goal, err := h.Service.SetArchived(r.Context(), userID, goalID, archived)
	if err != nil {
		writeServiceError(w, err, "Failed to change goal archive state")
		return
	}

	if archived {
		h.logActivity(r.Context(), userID, models.ActivityGoalArchived, goal.ID, fmt.Sprintf("Archived goal: %s", goal.Name))
	} else {
		h.logActivity(r.Context(), userID, models.ActivityGoalRestored, goal.ID, fmt.Sprintf("Restored goal: %s", goal.Name))
	}
	middleware.WriteJSON(w, http.StatusOK, models.NewGoalView(*goal))
}

// AddContributionHandler handles POST /goals/{id}/contributions.
func (h *GoalHandler) AddContributionHandler(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, false)
}

// WithdrawHandler handles POST /goals/{id}/withdraw.
func (h *GoalHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, true)
}

func (h *GoalHandler) book(w http.ResponseWriter, r *http.Request, withdrawal bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateContributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		res *services.ContributionResult
		err error
	)
	if withdrawal {
		res, err = h.Service.Withdraw(r.Context(), userID, goalID, req)
	} else {
		res, err = h.Service.AddContribution(r.Context(), userID, goalID, req)
	}
	if err != nil {
		writeServiceError(w, err, "Failed to record contribution")
		return
	}

	kind := models.ActivityContributionAdded
	if res.Contribution.Type == models.ContributionWithdrawal {
		kind = models.ActivityWithdrawalMade
	}
	h.logActivity(r.Context(), userID, kind, goalID,
		fmt.Sprintf("%s of %s %s on goal: %s", res.Contribution.Type, res.Contribution.Amount, res.Contribution.Currency, res.Goal.Name))

	// Booking is refused on completed goals, so a completed result just crossed the line.
	if res.Goal.IsCompleted {
		h.logActivity(r.Context(), userID, models.ActivityGoalCompleted, goalID, fmt.Sprintf("Completed goal: %s", res.Goal.Name))
	}

	middleware.WriteJSON(w, http.StatusCreated, res)
}

// GetContributionsHandler handles GET /goals/{id}/contributions.
func (h *GoalHandler) GetContributionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	q, err := parseContributionQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, err, "Invalid contribution query")
		return
	}

	page, err := h.Service.ListContributions(r.Context(), userID, goalID, q)
	if err != nil {
		writeServiceError(w, err, "Failed to list contributions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, page)
}

// GetAnalyticsHandler handles GET /goals/{id}/analytics.
func (h *GoalHandler) GetAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	analytics, err := h.Service.GetAnalytics(r.Context(), userID, goalID)
	if err != nil {
		writeServiceError(w, err, "Failed to compute goal analytics")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, analytics)
}

// GetSummaryHandler handles GET /goals/summary.
func (h *GoalHandler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.GetSummary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to summarize goals")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// GetSuggestionsHandler handles GET /goals/suggestions.
func (h *GoalHandler) GetSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	suggestions, err := h.SuggestionService.GetSuggestions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to generate suggestions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, suggestions)
}

func (h *GoalHandler) logActivity(ctx context.Context, userID primitive.ObjectID, kind string, targetID primitive.ObjectID, message string) {
	if h.ActivityService == nil {
		return
	}
	_ = h.ActivityService.LogActivity(ctx, userID, kind, targetID, message)
}
