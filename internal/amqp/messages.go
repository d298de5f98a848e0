package amqp

import (
	"encoding/json"
	"time"
)

// TransactionRecordedMessage announces a freshly recorded transaction. It is
// deliberately lightweight: only ids, the alert worker re-reads the full
// record from the database before evaluating alerts.
type TransactionRecordedMessage struct {
	OwnerID       string    `json:"ownerId"`
	TransactionID int64     `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionRecordedMessage creates an event for a recorded transaction
func NewTransactionRecordedMessage(ownerID string, transactionID int64) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON creates a message from JSON bytes
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
