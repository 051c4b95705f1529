package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

const msgIDHeader = "Nats-Msg-Id"

type claimSubmittedEvent struct {
	ClaimID     string    `json:"claim_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func encodeClaimSubmitted(claimID string, now time.Time) ([]byte, error) {
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode claim event", fmt.Errorf("claim id is required"))
	}
	return json.Marshal(claimSubmittedEvent{ClaimID: claimID, SubmittedAt: now.UTC()})
}

// decodeClaimSubmitted accepts the JSON event and also a bare claim id, which
// is what producers wrote before events carried a timestamp.
func decodeClaimSubmitted(data []byte) (claimSubmittedEvent, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return claimSubmittedEvent{}, fmt.Errorf("empty claim event")
	}
	if !strings.HasPrefix(raw, "{") {
		return claimSubmittedEvent{ClaimID: raw}, nil
	}

	var event claimSubmittedEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return claimSubmittedEvent{}, fmt.Errorf("decode claim event: %w", err)
	}
	event.ClaimID = strings.TrimSpace(event.ClaimID)
	if event.ClaimID == "" {
		return claimSubmittedEvent{}, fmt.Errorf("claim event without claim_id")
	}
	return event, nil
}
