package partner

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"duolink_app/internal/models"
)

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// PendingSettings is an optional settings snapshot advertised on an invite
// when the primary has picked a group but not yet saved it.
type PendingSettings struct {
	GroupID      string
	GroupName    string
	CurrencyCode string
	SplitRatio   string
}

// CreateOrGetInvite returns the primary's outstanding invite, creating one if
// none exists. Idempotent: a second call with a live pending invite returns
// the same token unchanged. A pending invite whose window has lapsed is marked
// expired and replaced.
func (s *Service) CreateOrGetInvite(ctx context.Context, primary models.User, partnerEmail, partnerName string, pending *PendingSettings) (*models.PartnerInvite, error) {
	partnerEmail = strings.TrimSpace(strings.ToLower(partnerEmail))
	if !emailShape.MatchString(partnerEmail) {
		return nil, ErrInvalidEmail
	}

	now := s.now()
	var invite models.PartnerInvite
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("primary_user_id = ? AND status = ?", primary.ID, models.InviteStatusPending).
			First(&invite).Error
		if err == nil {
			if !invite.Expired(now) {
				return nil
			}
			if err := tx.Model(&invite).Update("status", models.InviteStatusExpired).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		invite = models.PartnerInvite{
			Token:         uuid.NewString(),
			PrimaryUserID: primary.ID,
			PartnerEmail:  partnerEmail,
			PartnerName:   partnerName,
			Status:        models.InviteStatusPending,
			ExpiresAt:     now.Add(models.InviteValidity),
			EmailSentAt:   &now,
			MaxReminders:  models.InviteDefaultMaxReminder,
		}
		s.snapshotSettings(tx, &invite, primary.ID, pending)
		created = true
		return tx.Create(&invite).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, primary.ID)

	if created && s.notifier != nil {
		if err := s.notifier.InviteCreated(ctx, invite, primary); err != nil {
			log.Printf("Failed to queue invite email for %s: %v", invite.PartnerEmail, err)
		}
	}
	return &invite, nil
}

// snapshotSettings embeds the advertised group on the invite, preferring the
// explicit pending settings over the primary's saved row.
func (s *Service) snapshotSettings(tx *gorm.DB, invite *models.PartnerInvite, primaryID uint, pending *PendingSettings) {
	if pending != nil {
		invite.GroupID = optional(pending.GroupID)
		invite.GroupName = optional(pending.GroupName)
		invite.CurrencyCode = optional(pending.CurrencyCode)
		invite.SplitRatio = optional(pending.SplitRatio)
		return
	}
	var saved models.SharedSettings
	if err := tx.Where("user_id = ?", primaryID).First(&saved).Error; err == nil {
		invite.GroupID = saved.GroupID
		invite.GroupName = saved.GroupName
		invite.CurrencyCode = saved.CurrencyCode
		invite.SplitRatio = saved.DefaultSplitRatio
	}
}

// ResendInvite sends one more reminder for the outstanding invite, optionally
// to a corrected address. The reminder budget is enforced before anything is
// written, so a rejected resend leaves the counter unchanged.
func (s *Service) ResendInvite(ctx context.Context, primary models.User, newEmail string) (*models.PartnerInvite, error) {
	var invite models.PartnerInvite
	err := s.db.WithContext(ctx).
		Where("primary_user_id = ? AND status = ?", primary.ID, models.InviteStatusPending).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPendingInvite
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if invite.Expired(now) {
		if err := s.db.WithContext(ctx).Model(&invite).
			Update("status", models.InviteStatusExpired).Error; err != nil {
			return nil, err
		}
		s.invalidateStatus(ctx, primary.ID)
		return nil, ErrNoPendingInvite
	}
	if !invite.RemindersLeft() {
		return nil, ErrMaxRemindersExceeded
	}

	if newEmail != "" {
		newEmail = strings.TrimSpace(strings.ToLower(newEmail))
		if !emailShape.MatchString(newEmail) {
			return nil, ErrInvalidEmail
		}
		invite.PartnerEmail = newEmail
	}
	invite.EmailReminderCount++
	invite.EmailSentAt = &now

	if err := s.db.WithContext(ctx).Save(&invite).Error; err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.InviteReminder(ctx, invite, primary); err != nil {
			log.Printf("Failed to queue invite reminder for %s: %v", invite.PartnerEmail, err)
		}
	}
	return &invite, nil
}

// AcceptInvite consumes a token: the accepting user becomes the inviter's
// secondary and inherits the primary's current shared settings. The accepting
// user's personal fields survive, except that a colliding emoji is replaced
// with a suggestion so linked partners never share a sync marker.
func (s *Service) AcceptInvite(ctx context.Context, token string, acceptingUser models.User) error {
	now := s.now()
	var primaryID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.PartnerInvite
		err := tx.Where("token = ? AND status = ?", token, models.InviteStatusPending).First(&invite).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}
		if invite.Expired(now) {
			// Lazy expiry: the window is checked at consumption time, there is
			// no background sweep.
			if err := tx.Model(&invite).Update("status", models.InviteStatusExpired).Error; err != nil {
				return err
			}
			return ErrInvalidOrExpiredToken
		}
		if invite.PrimaryUserID == acceptingUser.ID {
			return ErrOwnInvite
		}

		existing, err := linkFor(tx, acceptingUser.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyLinked
		}

		link := models.PartnerLink{
			PrimaryUserID:   invite.PrimaryUserID,
			SecondaryUserID: acceptingUser.ID,
		}
		if err := tx.Create(&link).Error; err != nil {
			if isDuplicateKey(err) {
				// The primary linked someone else between our read and commit.
				return ErrInvalidOrExpiredToken
			}
			return err
		}

		if err := tx.Model(&invite).Update("status", models.InviteStatusAccepted).Error; err != nil {
			return err
		}

		primarySettings, err := settingsFor(tx, invite.PrimaryUserID)
		if err != nil {
			return err
		}
		secondarySettings, err := settingsFor(tx, acceptingUser.ID)
		if err != nil {
			return err
		}

		// Shared fields copied verbatim; personal fields kept, except a sync
		// marker equal to the primary's, which is replaced.
		secondarySettings.GroupID = primarySettings.GroupID
		secondarySettings.GroupName = primarySettings.GroupName
		secondarySettings.CurrencyCode = primarySettings.CurrencyCode
		secondarySettings.DefaultSplitRatio = primarySettings.DefaultSplitRatio
		if secondarySettings.GroupID != nil && secondarySettings.Emoji == primarySettings.Emoji {
			secondarySettings.Emoji = s.suggester.Suggest(primarySettings.Emoji)
		}
		if err := tx.Save(secondarySettings).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrSettingsCollision
			}
			return err
		}

		primaryID = invite.PrimaryUserID
		return tx.Model(&models.User{}).Where("id = ?", acceptingUser.ID).Updates(map[string]interface{}{
			"persona":             models.PersonaDual,
			"onboarding_step":     models.OnboardingStepDone,
			"onboarding_complete": true,
		}).Error
	})
	if err != nil {
		return err
	}

	s.invalidateStatus(ctx, acceptingUser.ID, primaryID)
	return nil
}

// ExpireAllForPrimary marks every pending invite from the primary as expired.
// Invoked when the primary's group selection moves away from what the invite
// advertised, or the primary drops to solo.
func (s *Service) ExpireAllForPrimary(ctx context.Context, primaryUserID uint) error {
	if err := expirePendingInvites(s.db.WithContext(ctx), primaryUserID); err != nil {
		return err
	}
	s.invalidateStatus(ctx, primaryUserID)
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
