package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"duolink_app/internal/models"
)

// trialPeriod is granted to every newly provisioned account.
const trialPeriod = 14 * 24 * time.Hour

// Helper to safely get string from context
func getStringFromContext(c echo.Context, key string) string {
	val := c.Get(key)
	if val == nil {
		return ""
	}
	strVal, ok := val.(string)
	if !ok {
		return ""
	}
	return strVal
}

// currentUser resolves the authenticated caller to a User row, provisioning
// one on first sign-in. The resolved user is what gets passed into the engine;
// nothing below the handlers reads session state.
func currentUser(c echo.Context, db *gorm.DB) (models.User, error) {
	uid := getStringFromContext(c, "userUID")
	if uid == "" {
		return models.User{}, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	var user models.User
	err := db.Preload("Settings").Where("firebase_uid = ?", uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		trialEnd := time.Now().Add(trialPeriod)
		user = models.User{
			FirebaseUID:    uid,
			Email:          getStringFromContext(c, "userEmail"),
			Name:           getStringFromContext(c, "userName"),
			OnboardingStep: models.OnboardingStepWelcome,
			TrialEndsAt:    &trialEnd,
		}
		if err := db.Create(&user).Error; err != nil {
			return models.User{}, echo.NewHTTPError(http.StatusInternalServerError, "failed to provision user")
		}
		return user, nil
	}
	if err != nil {
		return models.User{}, echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve user")
	}
	return user, nil
}
