package partner

import (
	"context"
	"errors"
	"testing"
	"time"

	"duolink_app/internal/models"
)

func TestInviteLifecycle(t *testing.T) {
	svc, db, notifier := newTestService(t)
	ctx := context.Background()

	// Scenario: P goes dual, invites a partner, the partner accepts.
	p := createUser(t, db, "Priya", models.PersonaSolo)
	result, err := svc.ChangePersona(ctx, p, models.PersonaDual, false)
	if err != nil {
		t.Fatalf("ChangePersona failed: %v", err)
	}
	if _, ok := result.(Committed); !ok {
		t.Fatalf("result = %T; want Committed", result)
	}
	p = loadUser(t, db, p.ID)
	setSettings(t, db, p.ID, "42", "USD", "3:2", "✅")

	invite, err := svc.CreateOrGetInvite(ctx, p, "Partner@Example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}
	if invite.Token == "" {
		t.Fatal("invite token must be set")
	}
	if invite.PartnerEmail != "partner@example.com" {
		t.Errorf("email = %q; want it normalized to lowercase", invite.PartnerEmail)
	}
	if invite.GroupID == nil || *invite.GroupID != "42" {
		t.Error("invite must snapshot the primary's group")
	}
	if len(notifier.notices) != 1 || notifier.notices[0].kind != "invite" {
		t.Errorf("expected one queued invite email, got %v", notifier.notices)
	}

	// Idempotence: a second request returns the same token, queues nothing.
	again, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("second CreateOrGetInvite failed: %v", err)
	}
	if again.Token != invite.Token {
		t.Errorf("second call token = %q; want the original %q", again.Token, invite.Token)
	}
	if len(notifier.notices) != 1 {
		t.Errorf("idempotent call must not queue another email, got %v", notifier.notices)
	}

	s := createUser(t, db, "Noah", "")
	if err := svc.AcceptInvite(ctx, invite.Token, s); err != nil {
		t.Fatalf("AcceptInvite failed: %v", err)
	}

	// Round-trip: both sides resolve each other by name.
	sStatus, err := svc.Status(ctx, loadUser(t, db, s.ID))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if sStatus.State != StateSecondary || sStatus.PartnerName != "Priya" {
		t.Errorf("secondary status = %+v; want secondary of Priya", sStatus)
	}
	if sStatus.PrimaryEmoji != "✅" {
		t.Errorf("primary emoji = %q; want ✅", sStatus.PrimaryEmoji)
	}

	pStatus, err := svc.Status(ctx, loadUser(t, db, p.ID))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if pStatus.State != StatePrimary || pStatus.PartnerName != "Noah" {
		t.Errorf("primary status = %+v; want primary of Noah", pStatus)
	}

	// The secondary inherited the shared subset verbatim.
	sSettings := loadSettings(t, db, s.ID)
	if sSettings.GroupID == nil || *sSettings.GroupID != "42" {
		t.Error("group must be copied to the secondary")
	}
	if sSettings.CurrencyCode == nil || *sSettings.CurrencyCode != "USD" {
		t.Error("currency must be copied to the secondary")
	}
	if sSettings.DefaultSplitRatio == nil || *sSettings.DefaultSplitRatio != "3:2" {
		t.Error("ratio must be copied verbatim on accept")
	}

	var consumed models.PartnerInvite
	if err := db.Where("token = ?", invite.Token).First(&consumed).Error; err != nil {
		t.Fatalf("failed to reload invite: %v", err)
	}
	if consumed.Status != models.InviteStatusAccepted {
		t.Errorf("invite status = %q; want accepted", consumed.Status)
	}

	sUser := loadUser(t, db, s.ID)
	if sUser.Persona != models.PersonaDual {
		t.Errorf("secondary persona = %q; want dual", sUser.Persona)
	}
	if !sUser.OnboardingComplete {
		t.Error("secondary inherits a complete configuration, onboarding should be done")
	}
}

func TestCreateInviteRejectsBadEmail(t *testing.T) {
	svc, db, _ := newTestService(t)

	p := createUser(t, db, "Priya", models.PersonaDual)
	for _, email := range []string{"", "not-an-email", "a@b", "two@@example.com", "spaced @example.com"} {
		if _, err := svc.CreateOrGetInvite(context.Background(), p, email, "", nil); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("CreateOrGetInvite(%q) error = %v; want ErrInvalidEmail", email, err)
		}
	}
}

func TestCreateInviteReplacesExpired(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	now := base
	svc.WithClock(func() time.Time { return now })

	p := createUser(t, db, "Priya", models.PersonaDual)
	first, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	now = base.Add(models.InviteValidity + time.Hour)
	second, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite after expiry failed: %v", err)
	}
	if second.Token == first.Token {
		t.Error("a lapsed invite must be replaced, not returned")
	}

	var old models.PartnerInvite
	if err := db.Where("token = ?", first.Token).First(&old).Error; err != nil {
		t.Fatalf("failed to reload first invite: %v", err)
	}
	if old.Status != models.InviteStatusExpired {
		t.Errorf("first invite status = %q; want expired", old.Status)
	}
}

func TestAcceptInviteInvalidToken(t *testing.T) {
	svc, db, _ := newTestService(t)

	s := createUser(t, db, "Noah", "")
	if err := svc.AcceptInvite(context.Background(), "no-such-token", s); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("AcceptInvite error = %v; want ErrInvalidOrExpiredToken", err)
	}
}

func TestAcceptInviteExpiredToken(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	now := base
	svc.WithClock(func() time.Time { return now })

	p := createUser(t, db, "Priya", models.PersonaDual)
	invite, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	// The window is checked lazily at consumption time.
	now = base.Add(models.InviteValidity + time.Minute)
	s := createUser(t, db, "Noah", "")
	if err := svc.AcceptInvite(ctx, invite.Token, s); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("AcceptInvite error = %v; want ErrInvalidOrExpiredToken", err)
	}

	var stale models.PartnerInvite
	if err := db.Where("token = ?", invite.Token).First(&stale).Error; err != nil {
		t.Fatalf("failed to reload invite: %v", err)
	}
	if stale.Status != models.InviteStatusExpired {
		t.Errorf("invite status = %q; want expired after a late accept", stale.Status)
	}
}

func TestAcceptInviteGuards(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	p := createUser(t, db, "Priya", models.PersonaDual)
	invite, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	if err := svc.AcceptInvite(ctx, invite.Token, p); !errors.Is(err, ErrOwnInvite) {
		t.Errorf("accepting own invite error = %v; want ErrOwnInvite", err)
	}

	// A user already in a partnership cannot accept another invite.
	other := createUser(t, db, "Mara", models.PersonaDual)
	taken := createUser(t, db, "Noah", models.PersonaDual)
	linkPair(t, db, other.ID, taken.ID)
	if err := svc.AcceptInvite(ctx, invite.Token, taken); !errors.Is(err, ErrAlreadyLinked) {
		t.Errorf("accepting while linked error = %v; want ErrAlreadyLinked", err)
	}
}

func TestAcceptInviteResolvesEmojiCollision(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	p := createUser(t, db, "Priya", models.PersonaDual)
	setSettings(t, db, p.ID, "42", "USD", "3:2", DefaultEmoji)

	invite, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	// The accepting user still carries the default emoji the primary uses.
	s := createUser(t, db, "Noah", "")
	if err := svc.AcceptInvite(ctx, invite.Token, s); err != nil {
		t.Fatalf("AcceptInvite failed: %v", err)
	}

	sSettings := loadSettings(t, db, s.ID)
	if sSettings.Emoji == DefaultEmoji {
		t.Error("linked partners must not share a sync marker")
	}
	if sSettings.Emoji == "" {
		t.Error("secondary must still have a sync marker")
	}
}

func TestResendInviteReminderBudget(t *testing.T) {
	svc, db, notifier := newTestService(t)
	ctx := context.Background()

	p := createUser(t, db, "Priya", models.PersonaDual)
	invite, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	for i := 1; i <= invite.MaxReminders; i++ {
		if _, err := svc.ResendInvite(ctx, p, ""); err != nil {
			t.Fatalf("resend %d failed: %v", i, err)
		}
	}

	// One past the budget: rejected, counter untouched.
	if _, err := svc.ResendInvite(ctx, p, ""); !errors.Is(err, ErrMaxRemindersExceeded) {
		t.Fatalf("resend past budget error = %v; want ErrMaxRemindersExceeded", err)
	}

	var reloaded models.PartnerInvite
	if err := db.Where("token = ?", invite.Token).First(&reloaded).Error; err != nil {
		t.Fatalf("failed to reload invite: %v", err)
	}
	if reloaded.EmailReminderCount != invite.MaxReminders {
		t.Errorf("reminder count = %d; want %d unchanged", reloaded.EmailReminderCount, invite.MaxReminders)
	}

	reminders := 0
	for _, n := range notifier.notices {
		if n.kind == "reminder" {
			reminders++
		}
	}
	if reminders != invite.MaxReminders {
		t.Errorf("queued reminders = %d; want %d", reminders, invite.MaxReminders)
	}
}

func TestResendInviteUpdatesEmail(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	p := createUser(t, db, "Priya", models.PersonaDual)
	if _, err := svc.CreateOrGetInvite(ctx, p, "typo@example.com", "Noah", nil); err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	invite, err := svc.ResendInvite(ctx, p, "fixed@example.com")
	if err != nil {
		t.Fatalf("ResendInvite failed: %v", err)
	}
	if invite.PartnerEmail != "fixed@example.com" {
		t.Errorf("email = %q; want the corrected address", invite.PartnerEmail)
	}
	if invite.EmailReminderCount != 1 {
		t.Errorf("reminder count = %d; want 1", invite.EmailReminderCount)
	}
}

func TestResendLapsedInviteExpiresIt(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	now := base
	svc.WithClock(func() time.Time { return now })

	p := createUser(t, db, "Priya", models.PersonaDual)
	invite, err := svc.CreateOrGetInvite(ctx, p, "partner@example.com", "Noah", nil)
	if err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	now = base.Add(models.InviteValidity + time.Hour)
	if _, err := svc.ResendInvite(ctx, p, ""); !errors.Is(err, ErrNoPendingInvite) {
		t.Fatalf("resend of lapsed invite error = %v; want ErrNoPendingInvite", err)
	}

	// The lapsed invite is marked expired here, same as on create and accept.
	var reloaded models.PartnerInvite
	if err := db.Where("token = ?", invite.Token).First(&reloaded).Error; err != nil {
		t.Fatalf("failed to reload invite: %v", err)
	}
	if reloaded.Status != models.InviteStatusExpired {
		t.Errorf("invite status = %q; want expired", reloaded.Status)
	}
}

func TestResendInviteWithoutPending(t *testing.T) {
	svc, db, _ := newTestService(t)

	p := createUser(t, db, "Priya", models.PersonaDual)
	if _, err := svc.ResendInvite(context.Background(), p, ""); !errors.Is(err, ErrNoPendingInvite) {
		t.Errorf("ResendInvite error = %v; want ErrNoPendingInvite", err)
	}
}
