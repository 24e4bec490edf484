package models

import "time"

// ContactTag is the join row between contacts and tags. The composite
// primary key means attaching a tag the contact already has collides at the
// storage layer and is handled as a no-op by the writer.
type ContactTag struct {
	ContactID uint      `gorm:"primaryKey;autoIncrement:false" json:"contact_id"`
	TagID     uint      `gorm:"primaryKey;autoIncrement:false" json:"tag_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
