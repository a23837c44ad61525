package partner

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"duolink_app/internal/models"
	"duolink_app/internal/services"
)

// Partnership states reported by Status.
const (
	StateSolo           = "solo"
	StatePrimaryWaiting = "primary_waiting"
	StatePrimary        = "primary"
	StateSecondary      = "secondary"
	StateOrphaned       = "orphaned"
)

// statusCacheTTL bounds staleness for reads that race a mutation on another
// instance; mutations on this instance invalidate explicitly.
const statusCacheTTL = 5 * time.Minute

// PartnershipStatus is the tagged read-side view of a user's partnership.
// State discriminates which of the optional fields are meaningful.
type PartnershipStatus struct {
	State        string `json:"state"`
	PartnerName  string `json:"partner_name,omitempty"`
	PartnerEmail string `json:"partner_email,omitempty"`
	PrimaryEmoji string `json:"primary_emoji,omitempty"`
}

// Status resolves the user's partnership state. Orphan detection happens
// here, at read time: a link row whose primary no longer resolves reports
// orphaned instead of secondary, so the caller can offer recovery.
func (s *Service) Status(ctx context.Context, user models.User) (PartnershipStatus, error) {
	if s.cache == nil {
		return s.statusUncached(ctx, user)
	}
	return services.GetOrSet(s.cache, ctx, statusCacheKey(user.ID), statusCacheTTL, func() (PartnershipStatus, error) {
		return s.statusUncached(ctx, user)
	})
}

func (s *Service) statusUncached(ctx context.Context, user models.User) (PartnershipStatus, error) {
	db := s.db.WithContext(ctx)

	link, err := linkFor(db, user.ID)
	if err != nil {
		return PartnershipStatus{}, err
	}

	if link == nil {
		if user.Persona == models.PersonaDual {
			var count int64
			err := db.Model(&models.PartnerInvite{}).
				Where("primary_user_id = ? AND status = ?", user.ID, models.InviteStatusPending).
				Count(&count).Error
			if err != nil {
				return PartnershipStatus{}, err
			}
			if count > 0 {
				return PartnershipStatus{State: StatePrimaryWaiting}, nil
			}
		}
		return PartnershipStatus{State: StateSolo}, nil
	}

	if link.PrimaryUserID == user.ID {
		var secondary models.User
		if err := db.First(&secondary, link.SecondaryUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The secondary account vanished out of band; the primary is
				// effectively waiting again.
				return PartnershipStatus{State: StatePrimaryWaiting}, nil
			}
			return PartnershipStatus{}, err
		}
		return PartnershipStatus{
			State:        StatePrimary,
			PartnerName:  secondary.Name,
			PartnerEmail: secondary.Email,
		}, nil
	}

	var primary models.User
	err = db.Preload("Settings").First(&primary, link.PrimaryUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PartnershipStatus{State: StateOrphaned}, nil
	}
	if err != nil {
		return PartnershipStatus{}, err
	}

	status := PartnershipStatus{
		State:        StateSecondary,
		PartnerName:  primary.Name,
		PartnerEmail: primary.Email,
	}
	if primary.Settings != nil {
		status.PrimaryEmoji = primary.Settings.Emoji
	}
	return status, nil
}
