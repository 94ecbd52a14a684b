package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/google/uuid"
)

// PublishLedgerEvent marshals data into a versioned event and publishes it on
// the group's channel.
func PublishLedgerEvent(ctx context.Context, publisher types.EventPublisher, eventType types.EventType, groupID, userID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	event := types.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		GroupID:   groupID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Version:   1,
		Payload:   payload,
	}
	return publisher.Publish(ctx, groupID, event)
}
