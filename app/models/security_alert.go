package models

import "time"

const (
	AlertReplayedNonce    = "replayed_nonce"
	AlertTimestampSkew    = "timestamp_skew"
	AlertInvalidSignature = "invalid_signature"
	AlertRateLimited      = "rate_limited"
)

// SecurityAlert records a suspected forgery or replay, kept separate from
// ordinary processing failures so the monitoring surface can report on them
// independently.
type SecurityAlert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Source    string    `gorm:"type:varchar(20);not null;index" json:"source"`
	AlertType string    `gorm:"type:varchar(30);not null;index" json:"alert_type"`
	RequestID string    `gorm:"type:varchar(64);not null;index" json:"request_id"`
	RemoteIP  string    `gorm:"type:varchar(45)" json:"remote_ip"`
	Detail    string    `gorm:"type:varchar(255)" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
