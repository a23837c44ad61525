package partner

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"duolink_app/internal/models"
)

// UnlinkFromPrimary is the recovery path for a secondary, including one whose
// primary account no longer resolves (a hard delete that did not cascade).
// Wipe semantics are identical to a confirmed "secondary leaves" transition:
// link removed, shared fields cleared, persona demoted, onboarding rewound to
// group selection, all in one commit.
func (s *Service) UnlinkFromPrimary(ctx context.Context, user models.User) error {
	var link models.PartnerLink
	err := s.db.WithContext(ctx).Where("secondary_user_id = ?", user.ID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotASecondary
	}
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.PartnerLink{}, link.ID).Error; err != nil {
			return err
		}
		return wipeSharedFields(tx, user.ID)
	})
	if err != nil {
		return err
	}

	s.invalidateStatus(ctx, user.ID, link.PrimaryUserID)
	return nil
}
