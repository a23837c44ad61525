package models

import (
	"time"
)

// PartnerLink records an established partnership as an explicit row, looked up
// from either side, instead of a nullable pointer on User whose other direction
// would have to be inferred. The unique indexes enforce "at most one secondary
// per primary" and "at most one primary per secondary" by construction.
//
// Link rows are hard-deleted on unlink so the unique indexes stay truthful.
type PartnerLink struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PrimaryUserID   uint `gorm:"uniqueIndex" json:"primary_user_id"`
	SecondaryUserID uint `gorm:"uniqueIndex" json:"secondary_user_id"`

	// Relationships
	PrimaryUser   User `gorm:"foreignKey:PrimaryUserID" json:"primary_user,omitempty"`
	SecondaryUser User `gorm:"foreignKey:SecondaryUserID" json:"secondary_user,omitempty"`
}
