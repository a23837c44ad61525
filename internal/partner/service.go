// Package partner implements the partnership lifecycle engine: persona
// transitions, the invite ledger, conflict detection, shared-settings
// propagation and orphan recovery. Every multi-row mutation runs inside a
// single database transaction; email side effects are handed to the Notifier
// only after the transaction has committed.
package partner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"duolink_app/internal/models"
	"duolink_app/internal/services"
)

// Notifier queues outbound partner emails. Implementations must be
// fire-and-forget: a queueing failure is logged by the engine and never
// surfaced to the caller, whose transaction has already committed.
type Notifier interface {
	InviteCreated(ctx context.Context, invite models.PartnerInvite, primary models.User) error
	InviteReminder(ctx context.Context, invite models.PartnerInvite, primary models.User) error
	PartnerDisconnected(ctx context.Context, secondary models.User, primaryName string) error
}

// Service is the entry point for every partnership operation. The acting user
// is always passed in explicitly; the engine never reads ambient session
// state.
type Service struct {
	db        *gorm.DB
	cache     *services.RedisCache // optional, nil disables status caching
	notifier  Notifier             // optional, nil disables outbound email
	suggester *EmojiSuggester
	now       func() time.Time
}

// NewService builds a Service. cache and notifier may be nil.
func NewService(db *gorm.DB, cache *services.RedisCache, notifier Notifier) *Service {
	return &Service{
		db:        db,
		cache:     cache,
		notifier:  notifier,
		suggester: NewEmojiSuggester(time.Now().UnixNano()),
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSuggester overrides the emoji suggester. Test hook for a fixed seed.
func (s *Service) WithSuggester(sg *EmojiSuggester) *Service {
	s.suggester = sg
	return s
}

// linkFor loads the link row the user participates in, from either side.
// Returns nil without error when the user is unlinked.
func linkFor(tx *gorm.DB, userID uint) (*models.PartnerLink, error) {
	var link models.PartnerLink
	err := tx.Where("primary_user_id = ? OR secondary_user_id = ?", userID, userID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// settingsFor loads the user's settings row, creating a default one on first
// touch so later updates always have a row to hit.
func settingsFor(tx *gorm.DB, userID uint) (*models.SharedSettings, error) {
	var settings models.SharedSettings
	err := tx.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.SharedSettings{
			UserID:          userID,
			Emoji:           DefaultEmoji,
			PayeeNameFormat: models.PayeeNameFormatFull,
		}
		if err := tx.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// wipeSharedFields clears the user's shared configuration and rewinds
// onboarding to group selection, leaving the personal fields (emoji, payee
// format) untouched. A demoted secondary may not keep using the former shared
// group: a solo user sharing a group with anyone violates duo exclusivity, and
// forcing reselection prevents cross-account leakage of shared-expense data.
func wipeSharedFields(tx *gorm.DB, userID uint) error {
	err := tx.Model(&models.SharedSettings{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"group_id":            nil,
		"group_name":          nil,
		"currency_code":       nil,
		"default_split_ratio": nil,
		"currency_synced_at":  nil,
	}).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"persona":             models.PersonaSolo,
		"onboarding_step":     models.OnboardingStepGroupSelect,
		"onboarding_complete": false,
	}).Error
}

// expirePendingInvites bulk-marks every pending invite from the primary as
// expired, inside the caller's transaction.
func expirePendingInvites(tx *gorm.DB, primaryUserID uint) error {
	return tx.Model(&models.PartnerInvite{}).
		Where("primary_user_id = ? AND status = ?", primaryUserID, models.InviteStatusPending).
		Update("status", models.InviteStatusExpired).Error
}

// isDuplicateKey reports whether a commit failed on a uniqueness constraint,
// which is how a lost read-then-decide race surfaces at commit time.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func statusCacheKey(userID uint) string {
	return fmt.Sprintf("partner:status:%d", userID)
}

// invalidateStatus drops cached partnership statuses after a mutation. Cache
// trouble is logged and ignored; the database is the source of truth.
func (s *Service) invalidateStatus(ctx context.Context, userIDs ...uint) {
	if s.cache == nil {
		return
	}
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		if err := s.cache.Delete(ctx, statusCacheKey(id)); err != nil {
			log.Printf("Failed to invalidate status cache for user %d: %v", id, err)
		}
	}
}
