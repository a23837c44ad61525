package models

import (
	"time"

	"gorm.io/gorm"
)

// Persona represents a user's declared mode: operating alone or linked to a partner.
type Persona string

const (
	PersonaSolo Persona = "solo"
	PersonaDual Persona = "dual"
)

// Onboarding steps, in order. A demoted secondary is rewound to the
// group-selection step because its shared group is wiped on unlink.
const (
	OnboardingStepWelcome     = "welcome"
	OnboardingStepGroupSelect = "group_select"
	OnboardingStepSplitRatio  = "split_ratio"
	OnboardingStepDone        = "done"
)

// User represents a user account. Partnership roles (primary/secondary) are not
// stored here; they are derived from the PartnerLink row referencing this user.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string  `gorm:"type:varchar(255)" json:"name"`
	Email       string  `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	FirebaseUID string  `gorm:"type:varchar(128);uniqueIndex" json:"firebase_uid"`
	Persona     Persona `gorm:"type:varchar(10)" json:"persona"`

	OnboardingStep     string `gorm:"type:varchar(50);default:'welcome'" json:"onboarding_step"`
	OnboardingComplete bool   `gorm:"default:false" json:"onboarding_complete"`

	// Subscription state is written by the billing integration and only read here.
	SubscriptionStatus string     `gorm:"type:varchar(20);default:'trial'" json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at"`

	// Relationships
	Settings *SharedSettings `gorm:"foreignKey:UserID" json:"settings,omitempty"`
}
