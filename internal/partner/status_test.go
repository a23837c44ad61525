package partner

import (
	"context"
	"errors"
	"testing"

	"duolink_app/internal/models"
)

func TestStatusSoloAndWaiting(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	u := createUser(t, db, "Priya", models.PersonaSolo)
	status, err := svc.Status(ctx, u)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != StateSolo {
		t.Errorf("state = %q; want solo", status.State)
	}

	// Dual with an outstanding invite but no link yet: waiting.
	if err := db.Model(&models.User{}).Where("id = ?", u.ID).
		Update("persona", models.PersonaDual).Error; err != nil {
		t.Fatalf("failed to update persona: %v", err)
	}
	u = loadUser(t, db, u.ID)
	if _, err := svc.CreateOrGetInvite(ctx, u, "partner@example.com", "", nil); err != nil {
		t.Fatalf("CreateOrGetInvite failed: %v", err)
	}

	status, err = svc.Status(ctx, u)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != StatePrimaryWaiting {
		t.Errorf("state = %q; want primary_waiting", status.State)
	}

	// Dual with neither link nor pending invite reads as solo.
	if err := svc.ExpireAllForPrimary(ctx, u.ID); err != nil {
		t.Fatalf("ExpireAllForPrimary failed: %v", err)
	}
	status, err = svc.Status(ctx, u)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != StateSolo {
		t.Errorf("state = %q; want solo once the invite lapsed", status.State)
	}
}

func TestOrphanedSecondaryRecovers(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	// Linked pair, then the primary's account is hard-deleted out of band.
	p := createUser(t, db, "Priya", models.PersonaDual)
	s := createUser(t, db, "Noah", models.PersonaDual)
	linkPair(t, db, p.ID, s.ID)
	setSettings(t, db, p.ID, "42", "USD", "3:2", "✅")
	setSettings(t, db, s.ID, "42", "USD", "2:3", "🎯")

	if err := db.Unscoped().Delete(&models.User{}, p.ID).Error; err != nil {
		t.Fatalf("failed to delete primary: %v", err)
	}

	status, err := svc.Status(ctx, loadUser(t, db, s.ID))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != StateOrphaned {
		t.Fatalf("state = %q; want orphaned", status.State)
	}

	if err := svc.UnlinkFromPrimary(ctx, s); err != nil {
		t.Fatalf("UnlinkFromPrimary failed: %v", err)
	}

	// Same wipe as a confirmed leave: shared fields gone, personal kept.
	row := loadSettings(t, db, s.ID)
	if row.GroupID != nil || row.CurrencyCode != nil || row.DefaultSplitRatio != nil {
		t.Errorf("shared fields survived recovery: %+v", row)
	}
	if row.Emoji != "🎯" {
		t.Errorf("emoji = %q; personal fields must survive recovery", row.Emoji)
	}
	sUser := loadUser(t, db, s.ID)
	if sUser.Persona != models.PersonaSolo {
		t.Errorf("persona = %q; want solo after recovery", sUser.Persona)
	}
	if sUser.OnboardingStep != models.OnboardingStepGroupSelect {
		t.Errorf("onboarding step = %q; want rewind to group selection", sUser.OnboardingStep)
	}

	status, err = svc.Status(ctx, sUser)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != StateSolo {
		t.Errorf("state = %q; want solo after recovery", status.State)
	}

	// Recovery consumed the link; a second attempt has nothing to undo.
	if err := svc.UnlinkFromPrimary(ctx, sUser); !errors.Is(err, ErrNotASecondary) {
		t.Errorf("second unlink error = %v; want ErrNotASecondary", err)
	}
}

func TestUnlinkRequiresSecondary(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	solo := createUser(t, db, "Priya", models.PersonaSolo)
	if err := svc.UnlinkFromPrimary(ctx, solo); !errors.Is(err, ErrNotASecondary) {
		t.Errorf("unlink as solo error = %v; want ErrNotASecondary", err)
	}

	// A primary cannot use the secondary recovery path either.
	p := createUser(t, db, "Ana", models.PersonaDual)
	s := createUser(t, db, "Ben", models.PersonaDual)
	linkPair(t, db, p.ID, s.ID)
	if err := svc.UnlinkFromPrimary(ctx, p); !errors.Is(err, ErrNotASecondary) {
		t.Errorf("unlink as primary error = %v; want ErrNotASecondary", err)
	}
}
