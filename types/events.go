package types

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/errors"
)

type EventType string

const CategoryLedger = "LEDGER"

const (
	EventTypeExpenseCreated      EventType = CategoryLedger + "_EXPENSE_CREATED"
	EventTypeSettlementRecorded  EventType = CategoryLedger + "_SETTLEMENT_RECORDED"
	EventTypeSettlementConfirmed EventType = CategoryLedger + "_SETTLEMENT_CONFIRMED"
	EventTypeSettlementRejected  EventType = CategoryLedger + "_SETTLEMENT_REJECTED"
)

// Event announces a ledger change to collaborators outside this service, such
// as notification senders. Consumers re-read balances rather than replaying
// payloads.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	GroupID   string          `json:"groupId"`
	UserID    string          `json:"userId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
	Payload   json.RawMessage `json:"payload"`
}

func (e Event) Validate() error {
	if e.Type == "" {
		return errors.ValidationFailed("invalid event", "event type is required")
	}
	if e.GroupID == "" {
		return errors.ValidationFailed("invalid event", "group ID is required")
	}
	return nil
}

type EventPublisher interface {
	Publish(ctx context.Context, groupID string, event Event) error
}
