package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LastActiveUpdater records that a user made a request.
type LastActiveUpdater interface {
	UpdateLastActive(ctx context.Context, id primitive.ObjectID) error
}

// UpdateLastActiveMiddleware stamps the authenticated user's last activity.
// It must run after AuthMiddleware.
func UpdateLastActiveMiddleware(users LastActiveUpdater) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims != nil {
				userID, err := primitive.ObjectIDFromHex(claims.UserID)
				if err == nil {
					if err := users.UpdateLastActive(r.Context(), userID); err != nil {
						logrus.WithError(err).WithField("userID", claims.UserID).Warn("Failed to update last active time")
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
