package models

import "time"

const (
	DuplicateClassConstraintBreach = "constraint_breach"
	DuplicateClassIntraSource      = "intra_source"
	DuplicateClassCrossSource      = "cross_source"
	DuplicateClassManualReview     = "manual_review"

	DuplicateFlagOpen      = "open"
	DuplicateFlagConfirmed = "confirmed"
	DuplicateFlagDismissed = "dismissed"
)

// DuplicateFlag is one reconciler worklist entry: a pair of transactions
// that likely represent the same real purchase. The reconciler only writes
// these rows; resolution (merge, dismiss) is a human decision recorded by
// the CRM, never automatic. TransactionID < OtherTransactionID by
// convention so rescans hit the unique pair index instead of inserting the
// mirrored pair.
type DuplicateFlag struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	TransactionID      uint      `gorm:"not null;index:ux_duplicate_flags_pair,unique,priority:1" json:"transaction_id"`
	OtherTransactionID uint      `gorm:"not null;index:ux_duplicate_flags_pair,unique,priority:2" json:"other_transaction_id"`
	ContactID          uint      `gorm:"not null;index" json:"contact_id"`
	Classification     string    `gorm:"type:varchar(30);not null;index" json:"classification"`
	Status             string    `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	AmountCents        int64     `gorm:"not null" json:"amount_cents"`
	Currency           string    `gorm:"type:varchar(3);not null" json:"currency"`
	SecondsApart       int64     `gorm:"not null" json:"seconds_apart"`
	DetectedAt         time.Time `gorm:"autoCreateTime;index" json:"detected_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
