package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finvault/transaction-service/internal/config"
	"github.com/finvault/transaction-service/internal/models"
)

// maxAmount is the largest value NUMERIC(10,2) can hold.
var maxAmount = decimal.New(1, 8) // 10^8

// TransactionStore is the persistence surface the transaction service
// depends on.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransaction(ctx context.Context, id, userID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter, offset, limit int) ([]models.Transaction, int64, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id, userID string) error
	SummarizeTransactions(ctx context.Context, userID string) (credits, debits decimal.Decimal, count int64, err error)
}

// EventPublisher broadcasts transaction lifecycle events.
type EventPublisher interface {
	TransactionCreated(tx *models.Transaction)
	TransactionDeleted(userID, txID string)
}

// TransactionService handles transaction business logic.
type TransactionService struct {
	store  TransactionStore
	log    *logrus.Logger
	cfg    *config.Config
	events EventPublisher
}

// NewTransactionService initializes a new transaction service. events may
// be nil when no broker is configured.
func NewTransactionService(store TransactionStore, log *logrus.Logger, cfg *config.Config, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, log: log, cfg: cfg, events: events}
}

// Create validates and stores a new transaction for the user
func (s *TransactionService) Create(ctx context.Context, userID string, req models.TransactionCreateRequest) (*models.Transaction, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := validateType(req.Type); err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	tx := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      req.Amount,
		Type:        req.Type,
		Description: req.Description,
		Timestamp:   timestamp,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.TransactionCreated(tx)
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "transaction_id": tx.ID}).
		Info("Transaction created")
	return tx, nil
}

// Get returns a single transaction owned by the user
func (s *TransactionService) Get(ctx context.Context, userID, txID string) (*models.Transaction, error) {
	return s.store.FindTransaction(ctx, txID, userID)
}

// List returns a page of the user's transactions matching the filter.
// page is 1-indexed; limit falls back to the configured default and is
// capped at the configured maximum.
func (s *TransactionService) List(ctx context.Context, userID string, filter models.TransactionFilter, page, limit int) (*models.TransactionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	offset := (page - 1) * limit
	items, total, err := s.store.ListTransactions(ctx, userID, filter, offset, limit)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &models.TransactionListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  limit,
		Pages: pages,
	}, nil
}

// Update applies a partial patch to a transaction owned by the user
func (s *TransactionService) Update(ctx context.Context, userID, txID string, patch models.TransactionUpdateRequest) (*models.Transaction, error) {
	tx, err := s.store.FindTransaction(ctx, txID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
		tx.Amount = *patch.Amount
	}
	if patch.Type != nil {
		if err := validateType(*patch.Type); err != nil {
			return nil, err
		}
		tx.Type = *patch.Type
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		tx.Description = *patch.Description
	}
	if patch.Timestamp != nil {
		tx.Timestamp = *patch.Timestamp
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "transaction_id": txID}).
		Info("Transaction updated")
	return tx, nil
}

// Delete removes a transaction owned by the user
func (s *TransactionService) Delete(ctx context.Context, userID, txID string) error {
	if err := s.store.DeleteTransaction(ctx, txID, userID); err != nil {
		return err
	}
	if s.events != nil {
		s.events.TransactionDeleted(userID, txID)
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "transaction_id": txID}).
		Info("Transaction deleted")
	return nil
}

// Summary aggregates all of the user's transactions. Balance is
// credits minus debits; the average is balance divided by the
// transaction count, rounded to two decimal places, and zero for an
// empty history.
func (s *TransactionService) Summary(ctx context.Context, userID string) (*models.Summary, error) {
	credits, debits, count, err := s.store.SummarizeTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance := credits.Sub(debits)
	avg := decimal.Zero
	if count > 0 {
		avg = balance.Div(decimal.NewFromInt(count)).Round(2)
	}
	return &models.Summary{
		TotalCredits:     credits,
		TotalDebits:      debits,
		CurrentBalance:   balance,
		TransactionCount: count,
		AvgTransaction:   avg,
	}, nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.NewValidationError("amount", "must be greater than 0")
	}
	if amount.Exponent() < -2 {
		return models.NewValidationError("amount", "must have at most 2 decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return models.NewValidationError("amount", "exceeds the maximum allowed value")
	}
	return nil
}

func validateType(txType string) error {
	if txType != models.TypeCredit && txType != models.TypeDebit {
		return models.NewValidationError("type", "must be either credit or debit")
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) == 0 {
		return models.NewValidationError("description", "must not be empty")
	}
	if len(description) > 500 {
		return models.NewValidationError("description", "must be at most 500 characters")
	}
	return nil
}
