package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/finance-goals/internal/config"
	"github.com/Dias221467/finance-goals/internal/database"
	"github.com/Dias221467/finance-goals/internal/handlers"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/internal/repository/inmemory"
	cron "github.com/Dias221467/finance-goals/internal/scheduler"
	"github.com/Dias221467/finance-goals/internal/services"
	"github.com/Dias221467/finance-goals/pkg/email"
	"github.com/Dias221467/finance-goals/pkg/logger"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// stores groups the persistence layer the services run on.
type stores struct {
	goals         services.GoalStore
	contributions services.ContributionStore
	transactions  services.TransactionStore
	users         services.UserStore
	notifications services.NotificationStore
	activities    services.ActivityStore
	health        handlers.Pinger
	close         func(context.Context) error
}

func main() {
	// Load configuration from .env file and the environment
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Storage error: %v", err)
	}

	var mailer services.Mailer = email.LogSender{}
	if cfg.MailEnabled() {
		mailer = &email.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPSender,
			Password: cfg.SMTPPassword,
		}
	}

	// --- Services ---
	notificationService := services.NewNotificationService(st.notifications, st.users, mailer)
	goalService := services.NewGoalService(st.goals, st.contributions, st.transactions, notificationService)
	transactionService := services.NewTransactionService(st.transactions)
	suggestionService := services.NewSuggestionService(st.goals, st.transactions, st.users)
	userService := services.NewUserService(st.users, mailer, cfg.AppBaseURL)
	activityService := services.NewActivityService(st.activities)

	// --- Handlers ---
	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret:     cfg.JWTSecret,
		Store:         st.health,
		LastActive:    userService,
		Goals:         handlers.NewGoalHandler(goalService, suggestionService, activityService),
		Users:         handlers.NewUserHandler(userService, cfg.JWTSecret, cfg.TokenExpiry),
		Transactions:  handlers.NewTransactionHandler(transactionService, activityService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Activities:    handlers.NewActivityHandler(activityService),
	})

	if cfg.EnableCron {
		scheduler, err := cron.StartNotificationCronJobs(goalService, notificationService)
		if err != nil {
			logger.Log.Fatalf("Scheduler error: %v", err)
		}
		defer func() { <-scheduler.Stop().Done() }()
		logger.Log.Info("Background jobs scheduled")
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"storage": cfg.StorageDriver,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
	if err := st.close(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Failed to close storage")
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Log.Warn("Using in-memory storage, data is lost on restart")
		mem := inmemory.NewStore()
		return &stores{
			goals:         mem,
			contributions: mem,
			transactions:  mem,
			users:         mem,
			notifications: mem,
			activities:    mem,
			health:        mem,
			close:         func(context.Context) error { return nil },
		}, nil
	}

	// Connect to MongoDB
	db, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	return &stores{
		goals:         repository.NewGoalRepository(db),
		contributions: repository.NewContributionRepository(db),
		transactions:  repository.NewTransactionRepository(db),
		users:         repository.NewUserRepository(db),
		notifications: repository.NewNotificationRepository(db),
		activities:    repository.NewActivityRepository(db),
		health:        database.NewHealth(db),
		close:         db.Client().Disconnect,
	}, nil
}
