package models

import "time"

// Nonce records a consumed replay token. Uniqueness on (source, nonce) makes
// CheckAndRecord a single atomic insert; rows older than the trust window are
// purged by the background sweeper and never mutated in between.
type Nonce struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Source    string    `gorm:"type:varchar(20);not null;index:ux_nonces_source_nonce,unique,priority:1" json:"source"`
	Nonce     string    `gorm:"type:varchar(128);not null;index:ux_nonces_source_nonce,unique,priority:2" json:"nonce"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
