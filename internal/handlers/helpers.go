package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/middleware"
	"github.com/Dias221467/finance-goals/pkg/validation"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUser returns the authenticated user's id, or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		logrus.WithField("path", r.URL.Path).Warn("Unauthorized access attempt")
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		logrus.WithError(err).Warn("Token carries an invalid user ID")
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return primitive.NilObjectID, false
	}
	return userID, true
}

// pathID parses the {name} route variable as an ObjectID, or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// decodeJSON reads the request body into dst, or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logrus.WithError(err).WithField("path", r.URL.Path).Warn("Invalid request payload")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// writeServiceError maps err onto a status code. Unknown errors are logged
// and reported as a 500 with the generic message.
func writeServiceError(w http.ResponseWriter, err error, message string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		middleware.WriteFieldErrors(w, verr.Fields)
	case errors.Is(err, services.ErrGoalNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrUserNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInvalidToken):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrEmailNotVerified):
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrConcurrentUpdate):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		logrus.WithError(err).Error(message)
		middleware.WriteError(w, http.StatusInternalServerError, message)
	}
}
