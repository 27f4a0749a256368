package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Transaction represents a financial transaction
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionFilter holds optional listing predicates. Nil fields are
// skipped; the rest are combined with AND. Date bounds are inclusive
// on both ends.
type TransactionFilter struct {
	Type      string
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// Summary represents aggregate financial statistics for a user
type Summary struct {
	TotalCredits     decimal.Decimal `json:"total_credits"`
	TotalDebits      decimal.Decimal `json:"total_debits"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	TransactionCount int64           `json:"transaction_count"`
	AvgTransaction   decimal.Decimal `json:"avg_transaction"`
}
