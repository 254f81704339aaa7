package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/coursepass-api/pkg/payment"
)

// CompletedEvent builds the payload of a completed checkout for studentID.
func CompletedEvent(id, studentID string) []byte {
	raw, _ := json.Marshal(payment.Event{
		ID:        id,
		Type:      payment.EventCheckoutCompleted,
		SessionID: "cs_" + id,
		StudentID: studentID,
	})
	return raw
}

// DecodeEvent parses a payload built by CompletedEvent.
func DecodeEvent(payload []byte) (*payment.Event, error) {
	var evt payment.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", errEventPayload, err)
	}
	return &evt, nil
}
