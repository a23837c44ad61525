package partner

import (
	"context"

	"gorm.io/gorm"

	"duolink_app/internal/models"
)

// SaveParams carries a candidate shared-settings change. Empty fields mean
// "leave unchanged"; the engine resolves them against the stored row before
// validating or propagating.
type SaveParams struct {
	GroupID      string
	GroupName    string
	CurrencyCode string
	SplitRatio   string
	Emoji        string
}

// SaveSharedSettings validates a candidate change, runs it through the
// conflict detector, then writes it and propagates the shared subset to every
// partner in the same group, all in one transaction. Currency is copied
// verbatim; the split ratio is inverted because each side stores it from its
// own perspective. Group changes are structural and are never silently
// propagated: they only pass after the duo-exclusivity check clears.
func (s *Service) SaveSharedSettings(ctx context.Context, user models.User, p SaveParams) (SaveResult, error) {
	db := s.db.WithContext(ctx)

	current, err := settingsFor(db, user.ID)
	if err != nil {
		return nil, err
	}

	effGroup := firstNonEmpty(p.GroupID, deref(current.GroupID))
	effGroupName := firstNonEmpty(p.GroupName, deref(current.GroupName))
	effCurrency := firstNonEmpty(p.CurrencyCode, deref(current.CurrencyCode))
	effRatio := firstNonEmpty(p.SplitRatio, deref(current.DefaultSplitRatio))
	effEmoji := firstNonEmpty(p.Emoji, current.Emoji)

	// Validation happens before any state is touched.
	if effGroup != "" && effCurrency == "" {
		return nil, ErrCurrencyRequired
	}
	if effRatio != "" {
		if _, _, err := ParseRatio(effRatio); err != nil {
			return nil, err
		}
	}

	link, err := linkFor(db, user.ID)
	if err != nil {
		return nil, err
	}
	var partnerID uint
	if link != nil {
		if link.PrimaryUserID == user.ID {
			partnerID = link.SecondaryUserID
		} else {
			partnerID = link.PrimaryUserID
		}
	}

	// Snapshot of everyone already in the candidate group, names included.
	var occupants []models.SharedSettings
	if effGroup != "" {
		if err := db.Preload("User").
			Where("group_id = ? AND user_id <> ?", effGroup, user.ID).
			Find(&occupants).Error; err != nil {
			return nil, err
		}
	}

	groupChanging := effGroup != "" && (current.GroupID == nil || *current.GroupID != effGroup)
	if groupChanging {
		partnered, err := partneredIDs(db)
		if err != nil {
			return nil, err
		}
		if v := CheckGroupInUse(user.ID, partnerID, effGroup, occupants, partnered); v.Conflict {
			return SaveGroupConflict{
				Owner:           v.OwnerName,
				OwnerPersona:    v.OwnerPersona,
				OwnerHasPartner: v.OwnerHasPartner,
			}, nil
		}
	}

	if v := CheckEmoji(user.ID, effGroup, effEmoji, occupants); v.Conflict {
		return SaveEmojiConflict{
			Owner:      v.OwnerName,
			Suggestion: s.suggester.Suggest(effEmoji, current.Emoji),
		}, nil
	}

	// Advisory findings for a primary moving its group: the secondary and any
	// outstanding invite may be left pointing at the old group.
	var warnings []string
	var expireInvites bool
	if groupChanging && link != nil && link.PrimaryUserID == user.ID {
		secondarySettings, err := settingsFor(db, link.SecondaryUserID)
		if err != nil {
			return nil, err
		}
		if CheckSecondaryOrphanRisk(effGroup, secondarySettings) {
			warnings = append(warnings, "your partner is still using the previous group")
		}
	}
	if groupChanging {
		var invite models.PartnerInvite
		err := db.Where("primary_user_id = ? AND status = ?", user.ID, models.InviteStatusPending).
			First(&invite).Error
		if err == nil && CheckInviteOrphanRisk(effGroup, &invite) {
			warnings = append(warnings, "your pending invite advertised a different group and has been expired")
			expireInvites = true
		}
	}

	now := s.now()
	var propagatedTo []string
	var propagatedIDs []uint

	err = db.Transaction(func(tx *gorm.DB) error {
		// The occupancy read happens again under the commit. The unique index
		// only backstops emoji collisions; a rival claiming the group with a
		// distinct emoji between the snapshot read and this transaction would
		// otherwise commit cleanly.
		if groupChanging {
			claimed, err := groupClaimed(tx, user.ID, partnerID, effGroup)
			if err != nil {
				return err
			}
			if claimed {
				return ErrSettingsCollision
			}
		}

		updates := map[string]interface{}{
			"group_id":            optional(effGroup),
			"group_name":          optional(effGroupName),
			"currency_code":       optional(effCurrency),
			"default_split_ratio": optional(effRatio),
			"emoji":               effEmoji,
		}
		if err := tx.Model(&models.SharedSettings{}).Where("user_id = ?", user.ID).
			Updates(updates).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrSettingsCollision
			}
			return err
		}

		// Propagate to everyone sharing the post-write group. With duo
		// exclusivity intact that is exactly the linked partner.
		if effGroup != "" {
			var partners []models.SharedSettings
			if err := tx.Preload("User").
				Where("group_id = ? AND user_id <> ?", effGroup, user.ID).
				Find(&partners).Error; err != nil {
				return err
			}
			for _, ps := range partners {
				partnerUpdates := map[string]interface{}{
					"currency_synced_at": now,
				}
				if effCurrency != "" {
					partnerUpdates["currency_code"] = effCurrency
				}
				if effRatio != "" {
					inverted, err := InvertRatio(effRatio)
					if err != nil {
						return err
					}
					partnerUpdates["default_split_ratio"] = inverted
				}
				if err := tx.Model(&models.SharedSettings{}).Where("id = ?", ps.ID).
					Updates(partnerUpdates).Error; err != nil {
					return err
				}
				propagatedTo = append(propagatedTo, ps.User.Name)
				propagatedIDs = append(propagatedIDs, ps.UserID)
			}
		}

		if expireInvites {
			return expirePendingInvites(tx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, append(propagatedIDs, user.ID)...)
	return Saved{PropagatedTo: propagatedTo, Warnings: warnings}, nil
}

// groupClaimed reports whether anyone other than the acting user and their
// linked partner holds a settings row in the group. partnerID is zero for an
// unlinked caller.
func groupClaimed(tx *gorm.DB, actingUserID, partnerID uint, groupID string) (bool, error) {
	q := tx.Model(&models.SharedSettings{}).
		Where("group_id = ? AND user_id <> ?", groupID, actingUserID)
	if partnerID != 0 {
		q = q.Where("user_id <> ?", partnerID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// partneredIDs collects every user currently in a link, for the
// owner-has-partner fact in group verdicts.
func partneredIDs(db *gorm.DB) (map[uint]bool, error) {
	var links []models.PartnerLink
	if err := db.Find(&links).Error; err != nil {
		return nil, err
	}
	m := make(map[uint]bool, len(links)*2)
	for _, l := range links {
		m[l.PrimaryUserID] = true
		m[l.SecondaryUserID] = true
	}
	return m, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
