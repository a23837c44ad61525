package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"duolink_app/internal/models"
)

// RequestValidator adapts go-playground/validator to echo's Validator hook.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator builds the shared request validator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// SetPersonaRequest is the payload for POST /api/partner/persona.
type SetPersonaRequest struct {
	Persona   string `json:"persona" validate:"required,oneof=solo dual"`
	Confirmed bool   `json:"confirmed"`
}

// CreateInviteRequest is the payload for POST /api/partner/invite.
type CreateInviteRequest struct {
	PartnerEmail string `json:"partner_email" validate:"required,email"`
	PartnerName  string `json:"partner_name"`

	// Optional settings snapshot when the primary has picked a group in the
	// onboarding flow but not saved it yet.
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	CurrencyCode string `json:"currency_code"`
	SplitRatio   string `json:"split_ratio"`
}

// ResendInviteRequest is the payload for POST /api/partner/invite/resend.
type ResendInviteRequest struct {
	NewEmail string `json:"new_email" validate:"omitempty,email"`
}

// AcceptInviteRequest is the payload for POST /api/partner/invite/accept.
type AcceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// SettingsResponse is the body of GET /api/settings: the stored row plus
// whether a partner propagated a change here within the recency window, so
// the client can surface "just changed by your partner".
type SettingsResponse struct {
	models.SharedSettings
	RecentlySynced bool `json:"recently_synced"`
}

// SaveSettingsRequest is the payload for POST /api/settings. Empty fields are
// left unchanged.
type SaveSettingsRequest struct {
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	CurrencyCode string `json:"currency_code" validate:"omitempty,len=3"`
	SplitRatio   string `json:"split_ratio"`
	Emoji        string `json:"emoji"`
}
