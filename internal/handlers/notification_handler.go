package handlers

import (
	"net/http"

	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/middleware"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GET /notifications
func (h *NotificationHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	notifications, err := h.Service.GetUserNotifications(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to get notifications")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, notifications)
}

// POST /notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	notifID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.MarkNotificationAsRead(r.Context(), userID, notifID); err != nil {
		writeServiceError(w, err, "Failed to mark as read")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// DELETE /notifications/{id}
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	notifID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteNotification(r.Context(), userID, notifID); err != nil {
		writeServiceError(w, err, "Failed to delete notification")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// PurgeExpiredHandler handles POST /admin/notifications/purge. It runs the
// daily expiry purge on demand.
func (h *NotificationHandler) PurgeExpiredHandler(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Service.DeleteExpiredNotifications(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to purge notifications")
		return
	}

	logrus.WithField("deleted", deleted).Info("Expired notifications purged on request")
	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
