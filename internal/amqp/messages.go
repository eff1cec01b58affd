package amqp

import (
	"encoding/json"
	"time"
)

// MatchRequestMessage asks the reconciler to link one transaction to one
// expense. It carries ids only; the reconciler loads the rows itself.
type MatchRequestMessage struct {
	PartnershipID string    `json:"partnership_id"`
	TransactionID string    `json:"transaction_id"`
	ExpenseID     string    `json:"expense_id"`
	Actor         string    `json:"actor,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewMatchRequestMessage creates a match request stamped with the current time.
func NewMatchRequestMessage(partnershipID, transactionID, expenseID, actor string, confidence float64) *MatchRequestMessage {
	return &MatchRequestMessage{
		PartnershipID: partnershipID,
		TransactionID: transactionID,
		ExpenseID:     expenseID,
		Actor:         actor,
		Confidence:    confidence,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MatchRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MatchRequestMessageFromJSON decodes a message from JSON bytes.
func MatchRequestMessageFromJSON(data []byte) (*MatchRequestMessage, error) {
	var msg MatchRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
