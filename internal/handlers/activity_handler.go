package handlers

import (
	"net/http"

	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/middleware"
)

type ActivityHandler struct {
	Service *services.ActivityService
}

func NewActivityHandler(service *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{Service: service}
}

// GetRecentActivitiesHandler handles GET /activities?limit&goalId&type.
func (h *ActivityHandler) GetRecentActivitiesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	q, err := parseActivityQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, err, "Invalid activity query")
		return
	}

	activities, err := h.Service.GetRecentActivities(r.Context(), userID, q)
	if err != nil {
		writeServiceError(w, err, "Failed to get activities")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, activities)
}
