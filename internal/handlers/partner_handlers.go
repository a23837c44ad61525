package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"duolink_app/internal/models"
	"duolink_app/internal/partner"
)

// PartnerHandler exposes the partnership operations as JSON endpoints. All
// engine outcomes that a client can act on (confirmation required, conflicts)
// come back as 200 responses with a discriminating status field; only
// malformed requests and stale references map to error codes.
type PartnerHandler struct {
	db     *gorm.DB
	engine *partner.Service
}

func NewPartnerHandler(db *gorm.DB, engine *partner.Service) *PartnerHandler {
	return &PartnerHandler{db: db, engine: engine}
}

// SetPersona handles POST /api/partner/persona.
func (h *PartnerHandler) SetPersona(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var req SetPersonaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.engine.ChangePersona(c.Request().Context(), user, models.Persona(req.Persona), req.Confirmed)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to change persona")
	}

	switch r := result.(type) {
	case partner.Committed:
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "committed"})
	case partner.ConfirmationRequired:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":       "confirmation_required",
			"kind":         r.Kind,
			"partner_name": r.PartnerName,
			"group_name":   r.GroupName,
		})
	case partner.Rejected:
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": "rejected",
			"reason": r.Reason,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "unhandled persona result")
	}
}

// CreateInvite handles POST /api/partner/invite.
func (h *PartnerHandler) CreateInvite(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var req CreateInviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var pending *partner.PendingSettings
	if req.GroupID != "" {
		pending = &partner.PendingSettings{
			GroupID:      req.GroupID,
			GroupName:    req.GroupName,
			CurrencyCode: req.CurrencyCode,
			SplitRatio:   req.SplitRatio,
		}
	}

	invite, err := h.engine.CreateOrGetInvite(c.Request().Context(), user, req.PartnerEmail, req.PartnerName, pending)
	if err != nil {
		if errors.Is(err, partner.ErrInvalidEmail) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid partner email")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create invite")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":      invite.Token,
		"expires_at": invite.ExpiresAt,
	})
}

// ResendInvite handles POST /api/partner/invite/resend.
func (h *PartnerHandler) ResendInvite(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var req ResendInviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	_, err = h.engine.ResendInvite(c.Request().Context(), user, req.NewEmail)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]interface{}{"sent": true})
	case errors.Is(err, partner.ErrMaxRemindersExceeded):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"sent":  false,
			"error": "maximum reminders exceeded",
		})
	case errors.Is(err, partner.ErrNoPendingInvite):
		return echo.NewHTTPError(http.StatusNotFound, "no pending invite")
	case errors.Is(err, partner.ErrInvalidEmail):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resend invite")
	}
}

// AcceptInvite handles POST /api/partner/invite/accept.
func (h *PartnerHandler) AcceptInvite(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var req AcceptInviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.engine.AcceptInvite(c.Request().Context(), req.Token, user)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "committed"})
	case errors.Is(err, partner.ErrInvalidOrExpiredToken):
		return echo.NewHTTPError(http.StatusGone, "invite token is invalid or expired")
	case errors.Is(err, partner.ErrAlreadyLinked):
		return echo.NewHTTPError(http.StatusConflict, "you are already linked to a partner")
	case errors.Is(err, partner.ErrOwnInvite):
		return echo.NewHTTPError(http.StatusConflict, "cannot accept your own invite")
	case errors.Is(err, partner.ErrSettingsCollision):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "settings changed concurrently",
			"retry": true,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to accept invite")
	}
}

// Unlink handles POST /api/partner/unlink, the secondary-side recovery path.
func (h *PartnerHandler) Unlink(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	err = h.engine.UnlinkFromPrimary(c.Request().Context(), user)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "committed"})
	case errors.Is(err, partner.ErrNotASecondary):
		return echo.NewHTTPError(http.StatusConflict, "you are not linked to a primary")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to unlink")
	}
}

// Status handles GET /api/partner/status.
func (h *PartnerHandler) Status(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	status, err := h.engine.Status(c.Request().Context(), user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve partnership status")
	}
	return c.JSON(http.StatusOK, status)
}
