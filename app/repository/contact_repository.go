package repository

import (
	"errors"
	"strings"

	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
)

// contactRepository implements the ContactRepository interface
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository instance
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// GetByEmail retrieves a contact by its (case-insensitive) email
func (r *contactRepository) GetByEmail(email string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Create creates a new contact in the database
func (r *contactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

// UpdateProviderRef stores the provider-side identity on the contact so
// later events can resolve without an email match.
func (r *contactRepository) UpdateProviderRef(contactID uint, source, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil
	}

	var column string
	switch source {
	case models.SourceCourseHub:
		column = "course_hub_user_id"
	case models.SourcePayflow:
		column = "payflow_customer_id"
	case models.SourceTixbee:
		column = "tixbee_attendee_id"
	default:
		return errors.New("unknown source system")
	}

	return r.db.Model(&models.Contact{}).
		Where("id = ?", contactID).
		Update(column, externalID).Error
}
