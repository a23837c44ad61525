package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"duolink_app/internal/models"
	"duolink_app/internal/partner"
)

// SettingsHandler exposes the shared-settings save and read endpoints.
type SettingsHandler struct {
	db     *gorm.DB
	engine *partner.Service
}

func NewSettingsHandler(db *gorm.DB, engine *partner.Service) *SettingsHandler {
	return &SettingsHandler{db: db, engine: engine}
}

// GetSettings handles GET /api/settings.
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var settings models.SharedSettings
	err = h.db.Where("user_id = ?", user.ID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusOK, SettingsResponse{
			SharedSettings: models.SharedSettings{UserID: user.ID, Emoji: partner.DefaultEmoji},
		})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch settings")
	}
	return c.JSON(http.StatusOK, SettingsResponse{
		SharedSettings: settings,
		RecentlySynced: settings.RecentlySynced(time.Now()),
	})
}

// SaveSettings handles POST /api/settings. Conflicts come back as 200
// responses with a status the client can resolve (suggest another emoji, show
// the group owner); a commit-time race is a 409 asking for a retry.
func (h *SettingsHandler) SaveSettings(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var req SaveSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.engine.SaveSharedSettings(c.Request().Context(), user, partner.SaveParams{
		GroupID:      req.GroupID,
		GroupName:    req.GroupName,
		CurrencyCode: req.CurrencyCode,
		SplitRatio:   req.SplitRatio,
		Emoji:        req.Emoji,
	})
	switch {
	case err == nil:
	case errors.Is(err, partner.ErrCurrencyRequired):
		return echo.NewHTTPError(http.StatusBadRequest, "currency code is required when selecting a group")
	case errors.Is(err, partner.ErrInvalidSplitRatio):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid split ratio, expected \"A:B\"")
	case errors.Is(err, partner.ErrSettingsCollision):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "settings changed concurrently",
			"retry": true,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save settings")
	}

	switch r := result.(type) {
	case partner.Saved:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":        "saved",
			"propagated_to": r.PropagatedTo,
			"warnings":      r.Warnings,
		})
	case partner.SaveEmojiConflict:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "emoji_conflict",
			"owner":      r.Owner,
			"suggestion": r.Suggestion,
		})
	case partner.SaveGroupConflict:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":            "group_conflict",
			"owner":             r.Owner,
			"owner_persona":     r.OwnerPersona,
			"owner_has_partner": r.OwnerHasPartner,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "unhandled save result")
	}
}
