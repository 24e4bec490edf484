package repository

import (
	"github.com/causekit/CauseLedger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tagRepository implements the TagRepository interface
type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository instance
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// AttachTag attaches a tag to a contact, creating the tag on first use.
// Attaching a tag the contact already has collides on the join table's
// primary key and is a no-op.
func (r *tagRepository) AttachTag(contactID uint, tagName string) error {
	tag := &models.Tag{Name: tagName}
	if err := tag.FindOrCreate(r.db); err != nil {
		return err
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "contact_id"},
			{Name: "tag_id"},
		},
		DoNothing: true,
	}).Create(&models.ContactTag{ContactID: contactID, TagID: tag.ID}).Error
}

// GrantRole grants a membership role to a contact; repeated grants hit the
// unique pair index and are no-ops.
func (r *tagRepository) GrantRole(contactID uint, role, grantedBy string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "contact_id"},
			{Name: "role"},
		},
		DoNothing: true,
	}).Create(&models.MembershipRole{
		ContactID: contactID,
		Role:      role,
		GrantedBy: grantedBy,
	}).Error
}
