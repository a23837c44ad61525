package partner

import (
	"testing"

	"duolink_app/internal/models"
)

func settingsRow(userID uint, name, groupID, emoji string) models.SharedSettings {
	s := models.SharedSettings{
		UserID: userID,
		Emoji:  emoji,
		User:   models.User{Name: name},
	}
	if groupID != "" {
		s.GroupID = &groupID
	}
	return s
}

func TestCheckEmoji(t *testing.T) {
	others := []models.SharedSettings{
		settingsRow(2, "Priya", "42", "✅"),
		settingsRow(3, "Noah", "99", "✅"),
	}

	tests := []struct {
		name      string
		groupID   string
		candidate string
		conflict  bool
		owner     string
	}{
		{
			name:      "same emoji in same group conflicts",
			groupID:   "42",
			candidate: "✅",
			conflict:  true,
			owner:     "Priya",
		},
		{
			name:      "same emoji in another group is fine",
			groupID:   "7",
			candidate: "✅",
		},
		{
			name:      "different emoji in same group is fine",
			groupID:   "42",
			candidate: "🔄",
		},
		{
			name:      "no group selected never conflicts",
			groupID:   "",
			candidate: "✅",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckEmoji(1, tt.groupID, tt.candidate, others)
			if v.Conflict != tt.conflict {
				t.Fatalf("CheckEmoji conflict = %v; want %v", v.Conflict, tt.conflict)
			}
			if v.OwnerName != tt.owner {
				t.Errorf("CheckEmoji owner = %q; want %q", v.OwnerName, tt.owner)
			}
		})
	}
}

func TestCheckEmojiIgnoresActingUser(t *testing.T) {
	others := []models.SharedSettings{settingsRow(1, "Me", "42", "✅")}
	if v := CheckEmoji(1, "42", "✅", others); v.Conflict {
		t.Errorf("a user's own row must not conflict with itself")
	}
}

func TestCheckGroupInUse(t *testing.T) {
	soloOwner := settingsRow(2, "Priya", "42", "✅")
	soloOwner.User.Persona = models.PersonaSolo
	dualOwner := settingsRow(3, "Noah", "77", "🔄")
	dualOwner.User.Persona = models.PersonaDual

	others := []models.SharedSettings{soloOwner, dualOwner}
	partnered := map[uint]bool{3: true}

	tests := []struct {
		name       string
		partnerID  uint
		candidate  string
		conflict   bool
		owner      string
		persona    models.Persona
		hasPartner bool
	}{
		{
			name:      "group owned by a solo stranger",
			candidate: "42",
			conflict:  true,
			owner:     "Priya",
			persona:   models.PersonaSolo,
		},
		{
			name:       "group owned by a paired dual stranger",
			candidate:  "77",
			conflict:   true,
			owner:      "Noah",
			persona:    models.PersonaDual,
			hasPartner: true,
		},
		{
			name:      "linked partner's group is not a conflict",
			partnerID: 2,
			candidate: "42",
		},
		{
			name:      "unclaimed group",
			candidate: "1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckGroupInUse(1, tt.partnerID, tt.candidate, others, partnered)
			if v.Conflict != tt.conflict {
				t.Fatalf("CheckGroupInUse conflict = %v; want %v", v.Conflict, tt.conflict)
			}
			if !tt.conflict {
				return
			}
			if v.OwnerName != tt.owner {
				t.Errorf("owner = %q; want %q", v.OwnerName, tt.owner)
			}
			if v.OwnerPersona != tt.persona {
				t.Errorf("owner persona = %q; want %q", v.OwnerPersona, tt.persona)
			}
			if v.OwnerHasPartner != tt.hasPartner {
				t.Errorf("owner has partner = %v; want %v", v.OwnerHasPartner, tt.hasPartner)
			}
		})
	}
}

func TestCheckSecondaryOrphanRisk(t *testing.T) {
	inGroup := settingsRow(2, "Priya", "42", "✅")
	noGroup := settingsRow(2, "Priya", "", "✅")

	tests := []struct {
		name      string
		newGroup  string
		secondary *models.SharedSettings
		want      bool
	}{
		{
			name:      "moving away from the shared group orphans the secondary",
			newGroup:  "77",
			secondary: &inGroup,
			want:      true,
		},
		{
			name:      "moving to the group the secondary already uses is safe",
			newGroup:  "42",
			secondary: &inGroup,
		},
		{
			name:      "secondary without a group yet is still flagged",
			newGroup:  "77",
			secondary: &noGroup,
			want:      true,
		},
		{
			name:     "no secondary, no risk",
			newGroup: "77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckSecondaryOrphanRisk(tt.newGroup, tt.secondary); got != tt.want {
				t.Errorf("CheckSecondaryOrphanRisk = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestCheckInviteOrphanRisk(t *testing.T) {
	group := "42"
	pending := models.PartnerInvite{Status: models.InviteStatusPending, GroupID: &group}
	accepted := models.PartnerInvite{Status: models.InviteStatusAccepted, GroupID: &group}
	noGroup := models.PartnerInvite{Status: models.InviteStatusPending}

	tests := []struct {
		name     string
		newGroup string
		invite   *models.PartnerInvite
		want     bool
	}{
		{
			name:     "group moved away from the advertised one",
			newGroup: "77",
			invite:   &pending,
			want:     true,
		},
		{
			name:     "group matches the advertised one",
			newGroup: "42",
			invite:   &pending,
		},
		{
			name:     "consumed invite cannot be orphaned",
			newGroup: "77",
			invite:   &accepted,
		},
		{
			name:     "invite without an advertised group",
			newGroup: "77",
			invite:   &noGroup,
		},
		{
			name:     "no invite, no risk",
			newGroup: "77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckInviteOrphanRisk(tt.newGroup, tt.invite); got != tt.want {
				t.Errorf("CheckInviteOrphanRisk = %v; want %v", got, tt.want)
			}
		})
	}
}
