package models

import (
	"time"

	"gorm.io/gorm"
)

// InviteStatus represents the lifecycle state of a partner invitation.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
)

// Invite defaults.
const (
	InviteValidity           = 7 * 24 * time.Hour
	InviteDefaultMaxReminder = 3
)

// PartnerInvite is an outstanding invitation from a primary user to a partner.
// At most one pending invite exists per primary at a time. The invite carries a
// snapshot of the primary's shared settings at creation time; if the primary
// later changes groups the snapshot goes stale, which the invite-orphan check
// surfaces before an invitee can link into the wrong group.
type PartnerInvite struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Token         string       `gorm:"type:varchar(64);uniqueIndex" json:"token"`
	PrimaryUserID uint         `gorm:"index" json:"primary_user_id"`
	PartnerEmail  string       `gorm:"type:varchar(255)" json:"partner_email"`
	PartnerName   string       `gorm:"type:varchar(255)" json:"partner_name"`
	Status        InviteStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	ExpiresAt     time.Time    `json:"expires_at"`

	EmailSentAt        *time.Time `json:"email_sent_at"`
	EmailReminderCount int        `gorm:"default:0" json:"email_reminder_count"`
	MaxReminders       int        `gorm:"default:3" json:"max_reminders"`

	// Advertised settings snapshot, copied from the primary at creation.
	GroupID      *string `gorm:"type:varchar(64)" json:"group_id"`
	GroupName    *string `gorm:"type:varchar(255)" json:"group_name"`
	CurrencyCode *string `gorm:"type:varchar(3)" json:"currency_code"`
	SplitRatio   *string `gorm:"type:varchar(20)" json:"split_ratio"`

	// Relationships
	PrimaryUser User `gorm:"foreignKey:PrimaryUserID" json:"primary_user,omitempty"`
}

// Expired reports whether the invite's validity window has passed.
func (i PartnerInvite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// RemindersLeft reports whether another reminder email may still be sent.
func (i PartnerInvite) RemindersLeft() bool {
	return i.EmailReminderCount < i.MaxReminders
}
