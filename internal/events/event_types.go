package events

import (
	"time"

	"github.com/spec-kit/backoffice-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAuthDecision EventType = "auth_decision"
	EventTokenIssued  EventType = "token_issued"
)

// Event represents an occurrence emitted by the authentication pipeline.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AuthDecisionPayload describes how a single request was authenticated or rejected.
type AuthDecisionPayload struct {
	Decision domain.Decision `json:"decision"`
	Reason   string          `json:"reason,omitempty"`
}

// TokenIssuedPayload describes a freshly issued signed token.
type TokenIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
	Via       string    `json:"via"`
}
