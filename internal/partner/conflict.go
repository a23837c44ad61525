package partner

import (
	"duolink_app/internal/models"
)

// The conflict checks are pure: they take the acting user, a candidate value
// and a snapshot of other users' settings, and return a verdict without
// touching any state. Callers decide whether to block, warn or proceed. The
// snapshots can go stale before the commit; group occupancy is read again
// inside the committing transaction, and the emoji race is caught by the
// unique (group_id, emoji) index.

// EmojiVerdict is the outcome of an emoji collision check.
type EmojiVerdict struct {
	Conflict  bool
	OwnerName string
}

// CheckEmoji reports whether another user in the candidate group already uses
// the candidate emoji. Linked partners must keep distinct emojis because the
// emoji is the per-user sync marker inside the shared group.
func CheckEmoji(actingUserID uint, groupID, candidateEmoji string, others []models.SharedSettings) EmojiVerdict {
	if groupID == "" || candidateEmoji == "" {
		return EmojiVerdict{}
	}
	for _, s := range others {
		if s.UserID == actingUserID {
			continue
		}
		if s.GroupID == nil || *s.GroupID != groupID {
			continue
		}
		if s.Emoji == candidateEmoji {
			return EmojiVerdict{Conflict: true, OwnerName: s.User.Name}
		}
	}
	return EmojiVerdict{}
}

// GroupVerdict is the outcome of a duo-exclusivity check. When Conflict is set
// the owner facts distinguish the three caller-relevant cases: a solo owner
// (must switch to dual and invite), a dual owner with room (could be asked to
// join), and a dual owner already paired (blocked).
type GroupVerdict struct {
	Conflict        bool
	OwnerName       string
	OwnerPersona    models.Persona
	OwnerHasPartner bool
}

// CheckGroupInUse reports whether the candidate group is already claimed by a
// user other than the acting user's linked partner. partnerID is zero for an
// unlinked caller; partnered holds the IDs of every user currently in a link.
func CheckGroupInUse(actingUserID, partnerID uint, candidateGroupID string, others []models.SharedSettings, partnered map[uint]bool) GroupVerdict {
	if candidateGroupID == "" {
		return GroupVerdict{}
	}
	for _, s := range others {
		if s.UserID == actingUserID || (partnerID != 0 && s.UserID == partnerID) {
			continue
		}
		if s.GroupID == nil || *s.GroupID != candidateGroupID {
			continue
		}
		return GroupVerdict{
			Conflict:        true,
			OwnerName:       s.User.Name,
			OwnerPersona:    s.User.Persona,
			OwnerHasPartner: partnered[s.UserID],
		}
	}
	return GroupVerdict{}
}

// CheckSecondaryOrphanRisk reports whether a primary moving to newGroupID
// would leave their secondary behind in the old group: the link row survives
// but the pair silently stops sharing a group.
func CheckSecondaryOrphanRisk(newGroupID string, secondary *models.SharedSettings) bool {
	if newGroupID == "" || secondary == nil {
		return false
	}
	return secondary.GroupID == nil || *secondary.GroupID != newGroupID
}

// CheckInviteOrphanRisk reports whether a pending invite advertises a group
// the primary no longer uses, so accepting it would link the invitee into the
// wrong group.
func CheckInviteOrphanRisk(newGroupID string, invite *models.PartnerInvite) bool {
	if invite == nil || invite.Status != models.InviteStatusPending {
		return false
	}
	if invite.GroupID == nil {
		return false
	}
	return newGroupID == "" || *invite.GroupID != newGroupID
}
