package amqp

import (
	"encoding/json"
	"time"
)

// RecurringProcessMessage asks a worker to process one due recurring
// transaction. It carries only identifiers; the worker re-reads the row and
// re-validates due-ness, so redelivery is safe.
type RecurringProcessMessage struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRecurringProcessMessage creates a processing request for one template row.
func NewRecurringProcessMessage(transactionID, userID string) *RecurringProcessMessage {
	return &RecurringProcessMessage{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecurringProcessMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecurringProcessMessageFromJSON creates a message from JSON bytes
func RecurringProcessMessageFromJSON(data []byte) (*RecurringProcessMessage, error) {
	var msg RecurringProcessMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
