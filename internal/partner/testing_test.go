package partner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"duolink_app/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.SharedSettings{},
		&models.PartnerLink{},
		&models.PartnerInvite{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type notice struct {
	kind string
	to   string
}

// stubNotifier records queued notifications instead of enqueueing tasks.
type stubNotifier struct {
	notices []notice
}

func (n *stubNotifier) InviteCreated(_ context.Context, invite models.PartnerInvite, _ models.User) error {
	n.notices = append(n.notices, notice{kind: "invite", to: invite.PartnerEmail})
	return nil
}

func (n *stubNotifier) InviteReminder(_ context.Context, invite models.PartnerInvite, _ models.User) error {
	n.notices = append(n.notices, notice{kind: "reminder", to: invite.PartnerEmail})
	return nil
}

func (n *stubNotifier) PartnerDisconnected(_ context.Context, secondary models.User, _ string) error {
	n.notices = append(n.notices, notice{kind: "disconnect", to: secondary.Email})
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *stubNotifier) {
	t.Helper()
	db := newTestDB(t)
	notifier := &stubNotifier{}
	svc := NewService(db, nil, notifier).WithSuggester(NewEmojiSuggester(1))
	return svc, db, notifier
}

func createUser(t *testing.T, db *gorm.DB, name string, persona models.Persona) models.User {
	t.Helper()
	slug := strings.ToLower(name)
	user := models.User{
		Name:        name,
		Email:       fmt.Sprintf("%s@example.com", slug),
		FirebaseUID: fmt.Sprintf("uid-%s", slug),
		Persona:     persona,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	settings := models.SharedSettings{
		UserID:          user.ID,
		Emoji:           DefaultEmoji,
		PayeeNameFormat: models.PayeeNameFormatFull,
	}
	if err := db.Create(&settings).Error; err != nil {
		t.Fatalf("failed to create settings for %s: %v", name, err)
	}
	return user
}

func setSettings(t *testing.T, db *gorm.DB, userID uint, groupID, currency, ratio, emoji string) {
	t.Helper()
	updates := map[string]interface{}{
		"group_id":            optional(groupID),
		"currency_code":       optional(currency),
		"default_split_ratio": optional(ratio),
	}
	if groupID != "" {
		name := "Group " + groupID
		updates["group_name"] = &name
	}
	if emoji != "" {
		updates["emoji"] = emoji
	}
	err := db.Model(&models.SharedSettings{}).Where("user_id = ?", userID).Updates(updates).Error
	if err != nil {
		t.Fatalf("failed to set settings for user %d: %v", userID, err)
	}
}

func linkPair(t *testing.T, db *gorm.DB, primaryID, secondaryID uint) models.PartnerLink {
	t.Helper()
	link := models.PartnerLink{PrimaryUserID: primaryID, SecondaryUserID: secondaryID}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("failed to link users %d and %d: %v", primaryID, secondaryID, err)
	}
	return link
}

func loadSettings(t *testing.T, db *gorm.DB, userID uint) models.SharedSettings {
	t.Helper()
	var settings models.SharedSettings
	if err := db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		t.Fatalf("failed to load settings for user %d: %v", userID, err)
	}
	return settings
}

func loadUser(t *testing.T, db *gorm.DB, userID uint) models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", userID, err)
	}
	return user
}
