package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/finvault/transaction-service/internal/models"
)

// Subjects for transaction lifecycle events.
const (
	SubjectTransactionCreated = "transactions.created"
	SubjectTransactionDeleted = "transactions.deleted"
)

// Publisher broadcasts transaction events over NATS. Publishing is
// fire-and-forget: failures are logged and never fail the request.
type Publisher struct {
	conn *nats.Conn
	log  *logrus.Logger
}

// NewPublisher connects to the NATS server at url
func NewPublisher(url string, log *logrus.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, log: log}, nil
}

// TransactionCreated publishes a created event
func (p *Publisher) TransactionCreated(tx *models.Transaction) {
	p.publish(SubjectTransactionCreated, map[string]any{
		"transaction_id": tx.ID,
		"user_id":        tx.UserID,
		"amount":         tx.Amount,
		"type":           tx.Type,
		"timestamp":      tx.Timestamp,
	})
}

// TransactionDeleted publishes a deleted event
func (p *Publisher) TransactionDeleted(userID, txID string) {
	p.publish(SubjectTransactionDeleted, map[string]any{
		"transaction_id": txID,
		"user_id":        userID,
		"deleted_at":     time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Errorf("Failed to marshal %s event: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Errorf("Failed to publish %s event: %v", subject, err)
	}
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
