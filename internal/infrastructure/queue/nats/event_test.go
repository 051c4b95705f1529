package nats

import (
	"testing"
	"time"

	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimSubmittedEventRoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.FixedZone("MSK", 3*3600))

	payload, err := encodeClaimSubmitted(" claim-1 ", now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"claim_id":"claim-1","submitted_at":"2026-10-16T06:30:00Z"}`, string(payload))

	event, err := decodeClaimSubmitted(payload)
	require.NoError(t, err)
	assert.Equal(t, "claim-1", event.ClaimID)
	assert.True(t, event.SubmittedAt.Equal(now))
}

func TestEncodeClaimSubmittedRejectsEmptyID(t *testing.T) {
	_, err := encodeClaimSubmitted("  ", time.Now())
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestDecodeClaimSubmitted(t *testing.T) {
	event, err := decodeClaimSubmitted([]byte("legacy-claim-id\n"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-claim-id", event.ClaimID)
	assert.True(t, event.SubmittedAt.IsZero())

	for _, bad := range []string{"", "   ", `{"claim_id":""}`, `{"claim_id":`} {
		_, err := decodeClaimSubmitted([]byte(bad))
		assert.Error(t, err, "payload %q", bad)
	}
}
