package models

import "time"

const (
	RoleMember    = "member"
	RoleStudent   = "student"
	RoleSupporter = "supporter"
)

// MembershipRole is a role grant derived from a provider event (course
// enrollment, active subscription, ticket purchase). Uniqueness on the
// (contact_id, role) pair makes repeated grants idempotent.
type MembershipRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContactID uint      `gorm:"not null;index:ux_membership_roles_pair,unique,priority:1" json:"contact_id"`
	Role      string    `gorm:"type:varchar(50);not null;index:ux_membership_roles_pair,unique,priority:2" json:"role"`
	GrantedBy string    `gorm:"type:varchar(20);not null" json:"granted_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
