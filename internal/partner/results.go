package partner

import (
	"errors"

	"duolink_app/internal/models"
)

// ConfirmationKind identifies which destructive transition needs an explicit
// user confirmation before it commits.
type ConfirmationKind string

const (
	ConfirmationPrimaryHasPartner ConfirmationKind = "primary_has_partner"
	ConfirmationSecondaryLeaving  ConfirmationKind = "secondary_leaving"
)

// PersonaResult is the closed set of outcomes of a persona change. Call sites
// switch over the concrete types; a new variant breaks every switch instead of
// being silently ignored.
type PersonaResult interface {
	personaResult()
}

// Committed means the change was applied in full.
type Committed struct{}

// ConfirmationRequired means the change is valid but destructive, and nothing
// was applied; the caller should retry with confirmed=true. It is a
// success-shaped outcome, not an error.
type ConfirmationRequired struct {
	Kind        ConfirmationKind `json:"kind"`
	PartnerName string           `json:"partner_name"`
	GroupName   string           `json:"group_name,omitempty"`
}

// Rejected means the request was invalid and nothing was applied.
type Rejected struct {
	Reason string `json:"reason"`
}

func (Committed) personaResult()            {}
func (ConfirmationRequired) personaResult() {}
func (Rejected) personaResult()             {}

// SaveResult is the closed set of outcomes of a shared-settings save.
type SaveResult interface {
	saveResult()
}

// Saved means the settings were written and propagated. Warnings carry the
// advisory orphan-risk findings; they never block the save.
type Saved struct {
	PropagatedTo []string `json:"propagated_to"`
	Warnings     []string `json:"warnings,omitempty"`
}

// SaveEmojiConflict reports that another user in the same group already uses
// the candidate emoji, with a safe replacement suggestion.
type SaveEmojiConflict struct {
	Owner      string `json:"owner"`
	Suggestion string `json:"suggestion"`
}

// SaveGroupConflict reports that the candidate group is already claimed by a
// user who is not the caller's partner.
type SaveGroupConflict struct {
	Owner           string         `json:"owner"`
	OwnerPersona    models.Persona `json:"owner_persona"`
	OwnerHasPartner bool           `json:"owner_has_partner"`
}

func (Saved) saveResult()             {}
func (SaveEmojiConflict) saveResult() {}
func (SaveGroupConflict) saveResult() {}

// Sentinel errors for the single-failure-mode operations.
var (
	// ErrInvalidOrExpiredToken is returned when an invite token does not match
	// a pending invite, or its validity window has passed.
	ErrInvalidOrExpiredToken = errors.New("invite token is invalid or expired")

	// ErrMaxRemindersExceeded is returned when a resend would exceed the
	// invite's reminder budget. The counter is left unchanged.
	ErrMaxRemindersExceeded = errors.New("maximum invite reminders exceeded")

	// ErrNoPendingInvite is returned by resend when the caller has no
	// outstanding invite to remind about.
	ErrNoPendingInvite = errors.New("no pending invite")

	// ErrNotASecondary is returned by unlink when the caller has no primary.
	ErrNotASecondary = errors.New("user is not a secondary")

	// ErrAlreadyLinked is returned when an invite is accepted by a user who is
	// already part of a partnership.
	ErrAlreadyLinked = errors.New("user is already linked to a partner")

	// ErrOwnInvite is returned when a primary tries to accept their own invite.
	ErrOwnInvite = errors.New("cannot accept your own invite")

	// ErrSettingsCollision is returned when the commit lost a race against a
	// concurrent change (unique-constraint violation). The caller should
	// re-read and retry; nothing was applied.
	ErrSettingsCollision = errors.New("settings collided with a concurrent change, retry with fresh data")

	// ErrCurrencyRequired is returned when a group is selected without a
	// currency. Rejected before any state is touched.
	ErrCurrencyRequired = errors.New("currency code is required when selecting a group")

	// ErrInvalidEmail is returned for an email not shaped like local@domain.
	ErrInvalidEmail = errors.New("invalid email address")
)
