package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/finvault/transaction-service/internal/models"
)

// RepositoryTestSuite runs repository operations against an in-memory
// SQLite database with migrations applied.
type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := Open(":memory:")
	require.NoError(s.T(), err, "failed to open test database")
	require.NoError(s.T(), repo.Migrate(context.Background()), "failed to migrate")
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) newUser(email string) *models.User {
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(s.T(), s.repo.CreateUser(s.ctx, user))
	return user
}

func (s *RepositoryTestSuite) newTransaction(userID, txType, amount string, ts time.Time) *models.Transaction {
	tx := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		Type:        txType,
		Description: "test transaction",
		Timestamp:   ts,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(s.T(), s.repo.CreateTransaction(s.ctx, tx))
	return tx
}

func (s *RepositoryTestSuite) TestCreateUserAndFind() {
	user := s.newUser("alice@example.com")

	byEmail, err := s.repo.FindUserByEmail(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, byEmail.ID)

	byID, err := s.repo.FindUserByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@example.com", byID.Email)
}

func (s *RepositoryTestSuite) TestCreateUserDuplicateEmail() {
	s.newUser("alice@example.com")

	dup := &models.User{
		ID:           uuid.NewString(),
		Email:        "alice@example.com",
		PasswordHash: "other",
		CreatedAt:    time.Now().UTC(),
	}
	err := s.repo.CreateUser(s.ctx, dup)
	assert.ErrorIs(s.T(), err, ErrDuplicate)
}

func (s *RepositoryTestSuite) TestFindUserNotFound() {
	_, err := s.repo.FindUserByEmail(s.ctx, "nobody@example.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.repo.FindUserByID(s.ctx, uuid.NewString())
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestEmailExists() {
	exists, err := s.repo.EmailExists(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.False(s.T(), exists)

	s.newUser("alice@example.com")
	exists, err = s.repo.EmailExists(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)
}

func (s *RepositoryTestSuite) TestTransactionRoundTrip() {
	user := s.newUser("alice@example.com")
	created := s.newTransaction(user.ID, models.TypeCredit, "250.50", time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	found, err := s.repo.FindTransaction(s.ctx, created.ID, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, found.ID)
	assert.True(s.T(), found.Amount.Equal(decimal.RequireFromString("250.50")),
		"expected 250.50, got %s", found.Amount)
	assert.Equal(s.T(), models.TypeCredit, found.Type)
}

func (s *RepositoryTestSuite) TestFindTransactionOwnership() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")
	tx := s.newTransaction(alice.ID, models.TypeCredit, "10.00", time.Now().UTC())

	_, err := s.repo.FindTransaction(s.ctx, tx.ID, bob.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestListTransactionsOrderAndIsolation() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	oldest := s.newTransaction(alice.ID, models.TypeCredit, "1.00", base)
	middle := s.newTransaction(alice.ID, models.TypeDebit, "2.00", base.Add(time.Hour))
	newest := s.newTransaction(alice.ID, models.TypeCredit, "3.00", base.Add(2*time.Hour))
	s.newTransaction(bob.ID, models.TypeCredit, "99.00", base.Add(time.Minute))

	items, total, err := s.repo.ListTransactions(s.ctx, alice.ID, models.TransactionFilter{}, 0, 10)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 3, total)
	require.Len(s.T(), items, 3)
	assert.Equal(s.T(), newest.ID, items[0].ID, "expected newest first")
	assert.Equal(s.T(), middle.ID, items[1].ID)
	assert.Equal(s.T(), oldest.ID, items[2].ID)
}

func (s *RepositoryTestSuite) TestListTransactionsFilters() {
	alice := s.newUser("alice@example.com")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.newTransaction(alice.ID, models.TypeCredit, "100.00", base)
	s.newTransaction(alice.ID, models.TypeDebit, "50.00", base.Add(24*time.Hour))
	s.newTransaction(alice.ID, models.TypeCredit, "25.00", base.Add(48*time.Hour))

	byType := models.TransactionFilter{Type: models.TypeCredit}
	_, total, err := s.repo.ListTransactions(s.ctx, alice.ID, byType, 0, 10)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, total)

	// Both date bounds are inclusive
	start := base.Add(24 * time.Hour)
	end := base.Add(48 * time.Hour)
	byDate := models.TransactionFilter{StartDate: &start, EndDate: &end}
	items, total, err := s.repo.ListTransactions(s.ctx, alice.ID, byDate, 0, 10)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, total)
	require.Len(s.T(), items, 2)

	minAmt := decimal.RequireFromString("50.00")
	maxAmt := decimal.RequireFromString("100.00")
	byAmount := models.TransactionFilter{MinAmount: &minAmt, MaxAmount: &maxAmt}
	_, total, err = s.repo.ListTransactions(s.ctx, alice.ID, byAmount, 0, 10)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, total)

	conj := models.TransactionFilter{Type: models.TypeCredit, MinAmount: &minAmt}
	_, total, err = s.repo.ListTransactions(s.ctx, alice.ID, conj, 0, 10)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, total)
}

func (s *RepositoryTestSuite) TestListTransactionsTotalIndependentOfPage() {
	alice := s.newUser("alice@example.com")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.newTransaction(alice.ID, models.TypeCredit, "1.00", base.Add(time.Duration(i)*time.Hour))
	}

	items, total, err := s.repo.ListTransactions(s.ctx, alice.ID, models.TransactionFilter{}, 0, 2)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 5, total)
	assert.Len(s.T(), items, 2)

	items, total, err = s.repo.ListTransactions(s.ctx, alice.ID, models.TransactionFilter{}, 4, 2)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 5, total)
	assert.Len(s.T(), items, 1)

	items, total, err = s.repo.ListTransactions(s.ctx, alice.ID, models.TransactionFilter{}, 6, 2)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 5, total)
	assert.Len(s.T(), items, 0)
}

func (s *RepositoryTestSuite) TestUpdateTransaction() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")
	tx := s.newTransaction(alice.ID, models.TypeCredit, "10.00", time.Now().UTC())

	tx.Amount = decimal.RequireFromString("20.00")
	tx.Description = "updated"
	require.NoError(s.T(), s.repo.UpdateTransaction(s.ctx, tx))

	found, err := s.repo.FindTransaction(s.ctx, tx.ID, alice.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), found.Amount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(s.T(), "updated", found.Description)

	// Not owned by bob
	stolen := *tx
	stolen.UserID = bob.ID
	assert.ErrorIs(s.T(), s.repo.UpdateTransaction(s.ctx, &stolen), ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteTransaction() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")
	tx := s.newTransaction(alice.ID, models.TypeCredit, "10.00", time.Now().UTC())

	assert.ErrorIs(s.T(), s.repo.DeleteTransaction(s.ctx, tx.ID, bob.ID), ErrNotFound)

	require.NoError(s.T(), s.repo.DeleteTransaction(s.ctx, tx.ID, alice.ID))
	_, err := s.repo.FindTransaction(s.ctx, tx.ID, alice.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	assert.ErrorIs(s.T(), s.repo.DeleteTransaction(s.ctx, tx.ID, alice.ID), ErrNotFound)
}

func (s *RepositoryTestSuite) TestSummarizeTransactions() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")
	now := time.Now().UTC()
	s.newTransaction(alice.ID, models.TypeCredit, "250.50", now)
	s.newTransaction(alice.ID, models.TypeDebit, "100.00", now.Add(time.Minute))
	s.newTransaction(bob.ID, models.TypeCredit, "999.00", now)

	credits, debits, count, err := s.repo.SummarizeTransactions(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), credits.Equal(decimal.RequireFromString("250.50")), "credits = %s", credits)
	assert.True(s.T(), debits.Equal(decimal.RequireFromString("100.00")), "debits = %s", debits)
	assert.EqualValues(s.T(), 2, count)
}

func (s *RepositoryTestSuite) TestSummarizeEmpty() {
	alice := s.newUser("alice@example.com")
	credits, debits, count, err := s.repo.SummarizeTransactions(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), credits.IsZero())
	assert.True(s.T(), debits.IsZero())
	assert.Zero(s.T(), count)
}

func (s *RepositoryTestSuite) TestCounts() {
	alice := s.newUser("alice@example.com")
	s.newTransaction(alice.ID, models.TypeCredit, "1.00", time.Now().UTC())
	s.newTransaction(alice.ID, models.TypeDebit, "2.00", time.Now().UTC())

	users, err := s.repo.CountUsers(s.ctx)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, users)

	txs, err := s.repo.CountTransactions(s.ctx)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, txs)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
