package models

import "time"

const (
	SourceCourseHub = "coursehub"
	SourcePayflow   = "payflow"
	SourceTixbee    = "tixbee"

	EventStatusReceived  = "received"
	EventStatusSuccess   = "success"
	EventStatusFailed    = "failed"
	EventStatusDuplicate = "duplicate"
)

// KnownSources lists every provider the ingestion service accepts.
var KnownSources = []string{SourceCourseHub, SourcePayflow, SourceTixbee}

// IsKnownSource reports whether the given source identifier belongs to a
// configured provider.
func IsKnownSource(source string) bool {
	for _, s := range KnownSources {
		if s == source {
			return true
		}
	}
	return false
}

// InboundEvent is the ledger row for one webhook delivery attempt. The
// (source, dedup_key) unique index is the at-most-once guarantee: DedupKey
// carries the provider event id when the provider sends one and a
// "req:<request_id>" fallback otherwise (MySQL has no partial unique
// indexes). Rows move from received to exactly one terminal status and are
// never otherwise mutated.
type InboundEvent struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	RequestID            string     `gorm:"type:varchar(64);not null;index" json:"request_id"`
	ProviderEventID      string     `gorm:"type:varchar(191);not null;default:''" json:"provider_event_id"`
	DedupKey             string     `gorm:"type:varchar(191);not null;index:ux_inbound_events_source_dedup,unique,priority:2" json:"dedup_key"`
	Source               string     `gorm:"type:varchar(20);not null;index:ux_inbound_events_source_dedup,unique,priority:1;index" json:"source"`
	EventType            string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	SignatureValid       bool       `gorm:"default:false;index" json:"signature_valid"`
	Status               string     `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`
	ErrorCode            string     `gorm:"type:varchar(50)" json:"error_code"`
	ErrorMessage         string     `gorm:"type:text" json:"error_message"`
	ReceivedAt           time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	WebhookTimestamp     *time.Time `gorm:"type:timestamp;default:null" json:"webhook_timestamp,omitempty"`
	ProcessingDurationMs int64      `gorm:"default:0" json:"processing_duration_ms"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// WebhookPayload keeps a size-bounded, PII-scrubbed copy of the raw request
// body for debugging, separate from the ledger row so the ledger stays free
// of payload data. One row per InboundEvent.
type WebhookPayload struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InboundEventID uint      `gorm:"not null;uniqueIndex" json:"inbound_event_id"`
	Body           string    `gorm:"type:mediumtext;not null" json:"body"`
	Truncated      bool      `gorm:"default:false" json:"truncated"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsTerminalStatus reports whether a ledger status is final.
func IsTerminalStatus(status string) bool {
	switch status {
	case EventStatusSuccess, EventStatusFailed, EventStatusDuplicate:
		return true
	default:
		return false
	}
}
