package webhook

import "time"

// Delivery carries everything extracted from one inbound HTTP request
// before any validation has happened. RawBody is the exact byte sequence
// received on the wire; signatures are always computed over it, never over
// a re-serialized parse.
type Delivery struct {
	Source           string
	EventType        string
	ProviderEventID  string
	RequestID        string
	SignatureHeader  string
	NonceHeader      string
	TimestampHeader  string
	WebhookTimestamp *time.Time
	RemoteIP         string
	RawBody          []byte
}

// ContactInfo identifies the person an event belongs to. Email is the
// primary match key; ExternalID is the provider-side identity stored on the
// contact for future lookups.
type ContactInfo struct {
	Email      string
	FirstName  string
	LastName   string
	ExternalID string
}

// TransactionInfo is the financial payload of an event. A nil
// TransactionInfo on a NormalizedEvent marks the event as informational.
type TransactionInfo struct {
	ExternalTransactionID string
	ExternalOrderID       string
	AmountCents           int64
	Currency              string
	Date                  time.Time
	Type                  string
	Status                string
}

// SideEffects are the idempotent derived writes an event requests.
type SideEffects struct {
	Tags  []string
	Roles []string
}

// NormalizedEvent is the provider-agnostic shape a registered handler
// produces from a raw payload.
type NormalizedEvent struct {
	Contact     ContactInfo
	Transaction *TransactionInfo
	Effects     SideEffects
}
