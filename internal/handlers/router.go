package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dias221467/finance-goals/pkg/logger"
	"github.com/Dias221467/finance-goals/pkg/middleware"
	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries everything the router needs to mount the API.
type RouterConfig struct {
	JWTSecret     string
	Store         Pinger
	LastActive    middleware.LastActiveUpdater
	Goals         *GoalHandler
	Users         *UserHandler
	Transactions  *TransactionHandler
	Notifications *NotificationHandler
	Activities    *ActivityHandler
}

const objectID = "{id:[0-9a-fA-F]{24}}"

// AdminRole is the token role allowed on /admin routes.
const AdminRole = "admin"

// NewRouter mounts every route of the API.
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Recovery, middleware.LoggingMiddleware)

	router.HandleFunc("/healthz", healthHandler(cfg.Store)).Methods(http.MethodGet)

	// Public user routes
	router.HandleFunc("/users/register", cfg.Users.RegisterUserHandler).Methods(http.MethodPost)
	router.HandleFunc("/users/login", cfg.Users.LoginUserHandler).Methods(http.MethodPost)
	router.HandleFunc("/users/verify", cfg.Users.VerifyEmailHandler).Methods(http.MethodGet)

	protected := func(prefix string) *mux.Router {
		sub := router.PathPrefix(prefix).Subrouter()
		sub.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		if cfg.LastActive != nil {
			sub.Use(middleware.UpdateLastActiveMiddleware(cfg.LastActive))
		}
		return sub
	}

	users := protected("/users")
	users.HandleFunc("/me", cfg.Users.GetMeHandler).Methods(http.MethodGet)
	users.HandleFunc("/me", cfg.Users.UpdateMeHandler).Methods(http.MethodPatch)

	// Fixed goal paths are registered before the {id} routes.
	goals := protected("/goals")
	goals.HandleFunc("", cfg.Goals.CreateGoalHandler).Methods(http.MethodPost)
	goals.HandleFunc("", cfg.Goals.GetGoalsHandler).Methods(http.MethodGet)
	goals.HandleFunc("/summary", cfg.Goals.GetSummaryHandler).Methods(http.MethodGet)
	goals.HandleFunc("/suggestions", cfg.Goals.GetSuggestionsHandler).Methods(http.MethodGet)
	goals.HandleFunc("/"+objectID, cfg.Goals.GetGoalHandler).Methods(http.MethodGet)
	goals.HandleFunc("/"+objectID, cfg.Goals.UpdateGoalHandler).Methods(http.MethodPut)
	goals.HandleFunc("/"+objectID, cfg.Goals.DeleteGoalHandler).Methods(http.MethodDelete)
	goals.HandleFunc("/"+objectID+"/archive", cfg.Goals.ArchiveGoalHandler).Methods(http.MethodPost)
	goals.HandleFunc("/"+objectID+"/restore", cfg.Goals.RestoreGoalHandler).Methods(http.MethodPost)
	goals.HandleFunc("/"+objectID+"/contributions", cfg.Goals.AddContributionHandler).Methods(http.MethodPost)
	goals.HandleFunc("/"+objectID+"/contributions", cfg.Goals.GetContributionsHandler).Methods(http.MethodGet)
	goals.HandleFunc("/"+objectID+"/withdraw", cfg.Goals.WithdrawHandler).Methods(http.MethodPost)
	goals.HandleFunc("/"+objectID+"/analytics", cfg.Goals.GetAnalyticsHandler).Methods(http.MethodGet)

	transactions := protected("/transactions")
	transactions.HandleFunc("", cfg.Transactions.CreateTransactionHandler).Methods(http.MethodPost)
	transactions.HandleFunc("", cfg.Transactions.GetTransactionsHandler).Methods(http.MethodGet)
	transactions.HandleFunc("/"+objectID, cfg.Transactions.DeleteTransactionHandler).Methods(http.MethodDelete)

	notifications := protected("/notifications")
	notifications.HandleFunc("", cfg.Notifications.GetUserNotificationsHandler).Methods(http.MethodGet)
	notifications.HandleFunc("/"+objectID+"/read", cfg.Notifications.MarkAsReadHandler).Methods(http.MethodPost)
	notifications.HandleFunc("/"+objectID, cfg.Notifications.DeleteNotificationHandler).Methods(http.MethodDelete)

	activities := protected("/activities")
	activities.HandleFunc("", cfg.Activities.GetRecentActivitiesHandler).Methods(http.MethodGet)

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.RequireRole(AdminRole))
	admin.HandleFunc("/notifications/purge", cfg.Notifications.PurgeExpiredHandler).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	return router
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if store != nil {
			if err := store.Ping(ctx); err != nil {
				logger.Log.WithError(err).Error("Health check failed")
				middleware.WriteError(w, http.StatusServiceUnavailable, "Store unavailable")
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
