package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finvault/transaction-service/internal/models"
)

const transactionColumns = "id, user_id, amount, type, description, timestamp, created_at"

// CreateTransaction inserts a new transaction
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Description, tx.Timestamp, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindTransaction retrieves a transaction by id, scoped to its owner.
// Returns ErrNotFound when the transaction is absent or owned by a
// different user.
func (r *Repository) FindTransaction(ctx context.Context, id, userID string) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2`
	tx := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &tx.Timestamp, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns one page of a user's transactions matching the
// filter, newest first, along with the total number of matching rows.
func (r *Repository) ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter, offset, limit int) ([]models.Transaction, int64, error) {
	where, args := buildFilter(userID, filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM transactions WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT "+transactionColumns+" FROM transactions WHERE %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	items := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &tx.Timestamp, &tx.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// buildFilter assembles the WHERE clause for a user's transactions. Date
// bounds are inclusive at both ends.
func buildFilter(userID string, filter models.TransactionFilter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	next := func() int { return len(args) + 1 }

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", next()))
		args = append(args, filter.Type)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", next()))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", next()))
		args = append(args, *filter.EndDate)
	}
	if filter.MinAmount != nil {
		conditions = append(conditions, fmt.Sprintf("amount >= $%d", next()))
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		conditions = append(conditions, fmt.Sprintf("amount <= $%d", next()))
		args = append(args, *filter.MaxAmount)
	}
	return strings.Join(conditions, " AND "), args
}

// UpdateTransaction persists changes to an existing transaction. Returns
// ErrNotFound when the transaction is absent or owned by another user.
func (r *Repository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $1, type = $2, description = $3, timestamp = $4
		WHERE id = $5 AND user_id = $6`
	res, err := r.db.ExecContext(ctx, query,
		tx.Amount, tx.Type, tx.Description, tx.Timestamp, tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes a transaction. Returns ErrNotFound when the
// transaction is absent or owned by another user.
func (r *Repository) DeleteTransaction(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SummarizeTransactions aggregates all of a user's transactions into
// credit/debit totals. Balance and average are derived by the service
// layer.
func (r *Repository) SummarizeTransactions(ctx context.Context, userID string) (credits, debits decimal.Decimal, count int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'debit' THEN amount ELSE 0 END), 0),
			COUNT(*)
		FROM transactions
		WHERE user_id = $1`
	err = r.db.QueryRowContext(ctx, query, userID).Scan(&credits, &debits, &count)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return credits, debits, count, nil
}
