package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ContactStatusActive      = "active"
	ContactStatusPlaceholder = "placeholder"
)

// Contact is the CRM person record the ingestion core resolves events
// against. The full contact lifecycle (tagging UX, notes, scoring) lives in
// the CRM; the core only creates minimal placeholder rows on first sight and
// links provider identities to them.
type Contact struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Email              string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	FirstName          string         `gorm:"type:varchar(100)" json:"first_name" validate:"max=100"`
	LastName           string         `gorm:"type:varchar(100)" json:"last_name" validate:"max=100"`
	Status             string         `gorm:"type:varchar(20);default:'active'" json:"status" validate:"oneof=active placeholder"`
	CourseHubUserID    string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	PayflowCustomerID  string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	TixbeeAttendeeID   string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Contact) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// NewPlaceholderContact builds the minimal contact created when a webhook
// references an email the CRM has never seen.
func NewPlaceholderContact(email, firstName, lastName string) *Contact {
	return &Contact{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Status:    ContactStatusPlaceholder,
	}
}
