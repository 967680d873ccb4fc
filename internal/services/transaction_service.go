package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/pkg/validation"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionService books and lists a user's income and expenses.
type TransactionService struct {
	repo TransactionStore
	now  Clock
}

func NewTransactionService(repo TransactionStore) *TransactionService {
	return &TransactionService{repo: repo, now: time.Now}
}

// WithClock replaces the time source.
func (s *TransactionService) WithClock(now Clock) *TransactionService {
	s.now = now
	return s
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
	TotalPages   int                  `json:"total_pages"`
}

func (s *TransactionService) CreateTransaction(ctx context.Context, userID primitive.ObjectID, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if err := validation.Struct(req); err != nil {
		logrus.WithError(err).Warn("Transaction rejected")
		return nil, err
	}

	now := s.now()
	tx := &models.Transaction{
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    orDefault(req.Currency, models.DefaultCurrency),
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		Date:        now,
		CreatedAt:   now,
	}
	if req.Date != "" {
		d, err := validation.ParseDate(req.Date)
		if err != nil {
			return nil, validation.New("date", "must be a date in YYYY-MM-DD format")
		}
		tx.Date = d
	}

	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"transactionID": created.ID.Hex(),
		"type":          created.Type,
	}).Info("Transaction created")
	return created, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, userID primitive.ObjectID, q models.TransactionQuery) (*TransactionPage, error) {
	q.Page = q.Page.Normalize()
	txs, total, err := s.repo.ListTransactions(ctx, userID, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &TransactionPage{
		Transactions: txs,
		Total:        total,
		Page:         q.Page.Page,
		Limit:        q.Limit,
		TotalPages:   q.TotalPages(total),
	}, nil
}

// DeleteTransaction removes one of the user's transactions. Contributions that
// link it keep the reference.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id primitive.ObjectID) error {
	tx, err := s.repo.GetTransactionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.UserID != userID {
		return ErrTransactionNotFound
	}
	return notFoundAs(s.repo.DeleteTransaction(ctx, id), ErrTransactionNotFound)
}
