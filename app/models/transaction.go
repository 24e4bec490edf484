package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
	TransactionStatusRefunded  = "refunded"
	TransactionStatusVoided    = "voided"

	TransactionTypePurchase   = "purchase"
	TransactionTypeDonation   = "donation"
	TransactionTypeMembership = "membership"
	TransactionTypeTicket     = "ticket"
	TransactionTypeRefund     = "refund"
)

// Transaction is one financial or membership event attributed to a contact.
// SourceSystem is required with no default so every write declares its
// provenance. The unique (source_system, external_transaction_id) index is
// the idempotency key for financial writes; ExternalTransactionID is a
// pointer because rows imported before provider ids existed carry NULL,
// which MySQL excludes from the unique index. Refunds and voids are recorded
// as new rows, never as edits of a completed row.
type Transaction struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ContactID             uint      `gorm:"not null;index" json:"contact_id" validate:"required"`
	Contact               *Contact  `gorm:"foreignKey:ContactID" json:"-"`
	SourceSystem          string    `gorm:"type:varchar(20);not null;index:ux_transactions_source_external,unique,priority:1;index" json:"source_system" validate:"required,oneof=coursehub payflow tixbee"`
	ExternalTransactionID *string   `gorm:"type:varchar(191);default:null;index:ux_transactions_source_external,unique,priority:2" json:"external_transaction_id,omitempty"`
	ExternalOrderID       string    `gorm:"type:varchar(191);default:null;index" json:"external_order_id,omitempty"`
	AmountCents           int64     `gorm:"not null" json:"amount_cents" validate:"gte=0"`
	Currency              string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency" validate:"required,len=3"`
	TransactionDate       time.Time `gorm:"type:timestamp;not null;index" json:"transaction_date"`
	Status                string    `gorm:"type:varchar(20);not null;default:'completed'" json:"status" validate:"oneof=completed pending refunded voided"`
	TransactionType       string    `gorm:"type:varchar(20);not null" json:"transaction_type" validate:"oneof=purchase donation membership ticket refund"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
