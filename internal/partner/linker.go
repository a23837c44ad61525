package partner

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"duolink_app/internal/models"
)

// ChangePersona is the single authority for persona transitions. Destructive
// transitions (breaking an existing partnership) short-circuit into
// ConfirmationRequired until the caller retries with confirmed=true; the
// confirmed demote-and-wipe then commits as one transaction.
func (s *Service) ChangePersona(ctx context.Context, user models.User, target models.Persona, confirmed bool) (PersonaResult, error) {
	if target != models.PersonaSolo && target != models.PersonaDual {
		return Rejected{Reason: "unknown persona"}, nil
	}

	link, err := linkFor(s.db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, err
	}

	if target == models.PersonaDual {
		// Going dual never breaks anything: either a no-op or a plain field
		// update ahead of inviting a partner.
		if user.Persona == models.PersonaDual {
			return Committed{}, nil
		}
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
			Update("persona", models.PersonaDual).Error; err != nil {
			return nil, err
		}
		s.invalidateStatus(ctx, user.ID)
		return Committed{}, nil
	}

	// target == solo from here on.
	switch {
	case link != nil && link.PrimaryUserID == user.ID:
		return s.primaryToSolo(ctx, user, link, confirmed)
	case link != nil && link.SecondaryUserID == user.ID:
		return s.secondaryToSolo(ctx, user, link, confirmed)
	default:
		// Dual-but-unlinked (still waiting on an invite) or already solo:
		// commit immediately, expiring any invite that would now dangle.
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
				Update("persona", models.PersonaSolo).Error; err != nil {
				return err
			}
			return expirePendingInvites(tx, user.ID)
		})
		if err != nil {
			return nil, err
		}
		s.invalidateStatus(ctx, user.ID)
		return Committed{}, nil
	}
}

// primaryToSolo disconnects the secondary, wipes its shared configuration,
// demotes both sides and expires any pending invite, all in one commit. The
// disconnect email is queued only after the commit and may fail independently.
func (s *Service) primaryToSolo(ctx context.Context, user models.User, link *models.PartnerLink, confirmed bool) (PersonaResult, error) {
	var secondary models.User
	if err := s.db.WithContext(ctx).Preload("Settings").First(&secondary, link.SecondaryUserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !confirmed {
		return ConfirmationRequired{
			Kind:        ConfirmationPrimaryHasPartner,
			PartnerName: secondary.Name,
			GroupName:   groupNameOf(secondary.Settings),
		}, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.PartnerLink{}, link.ID).Error; err != nil {
			return err
		}
		if err := wipeSharedFields(tx, link.SecondaryUserID); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("persona", models.PersonaSolo).Error; err != nil {
			return err
		}
		return expirePendingInvites(tx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, user.ID, link.SecondaryUserID)

	if s.notifier != nil && secondary.ID != 0 {
		if err := s.notifier.PartnerDisconnected(ctx, secondary, user.Name); err != nil {
			log.Printf("Failed to queue disconnect notification for user %d: %v", secondary.ID, err)
		}
	}
	return Committed{}, nil
}

// secondaryToSolo clears the caller's side of the partnership: link removed,
// shared fields wiped, onboarding rewound. The primary keeps its configuration.
func (s *Service) secondaryToSolo(ctx context.Context, user models.User, link *models.PartnerLink, confirmed bool) (PersonaResult, error) {
	if !confirmed {
		var primary models.User
		if err := s.db.WithContext(ctx).First(&primary, link.PrimaryUserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		settings, err := settingsFor(s.db.WithContext(ctx), user.ID)
		if err != nil {
			return nil, err
		}
		return ConfirmationRequired{
			Kind:        ConfirmationSecondaryLeaving,
			PartnerName: primary.Name,
			GroupName:   groupNameOf(settings),
		}, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.PartnerLink{}, link.ID).Error; err != nil {
			return err
		}
		return wipeSharedFields(tx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, user.ID, link.PrimaryUserID)
	return Committed{}, nil
}

func groupNameOf(settings *models.SharedSettings) string {
	if settings == nil || settings.GroupName == nil {
		return ""
	}
	return *settings.GroupName
}
