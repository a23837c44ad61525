package models

import (
	"time"

	"gorm.io/gorm"
)

// Payee naming preferences for synced transactions.
const (
	PayeeNameFormatFull    = "full"
	PayeeNameFormatInitial = "initial"
)

// SharedSettings holds a user's household configuration, one row per user. The
// shared subset (group, currency, split ratio) must stay equal between linked
// partners; the personal fields (emoji, payee format) never propagate.
//
// The composite unique index on (group_id, emoji) is the commit-time backstop
// for two users racing to claim the same sync marker within a group: the second
// commit fails instead of leaving an ambiguous pair. Rows with a NULL group_id
// never collide.
type SharedSettings struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"uniqueIndex" json:"user_id"`

	// Shared fields, nullable until the user completes group selection.
	GroupID           *string `gorm:"type:varchar(64);uniqueIndex:idx_shared_settings_group_emoji" json:"group_id"`
	GroupName         *string `gorm:"type:varchar(255)" json:"group_name"`
	CurrencyCode      *string `gorm:"type:varchar(3)" json:"currency_code"`
	DefaultSplitRatio *string `gorm:"type:varchar(20)" json:"default_split_ratio"` // "my share:their share"

	// Personal fields, never copied to a partner.
	Emoji           string `gorm:"type:varchar(16);uniqueIndex:idx_shared_settings_group_emoji" json:"emoji"`
	PayeeNameFormat string `gorm:"type:varchar(20);default:'full'" json:"payee_name_format"`

	// Set on the receiving side when a partner's change was propagated here, so
	// the UI can surface "changed by your partner" for a bounded recency window.
	CurrencySyncedAt *time.Time `json:"currency_synced_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// RecentlySyncedWindow bounds how long a propagated change counts as "recent".
const RecentlySyncedWindow = 24 * time.Hour

// RecentlySynced reports whether a partner propagated a change here within the
// recency window.
func (s SharedSettings) RecentlySynced(now time.Time) bool {
	return s.CurrencySyncedAt != nil && now.Sub(*s.CurrencySyncedAt) < RecentlySyncedWindow
}
