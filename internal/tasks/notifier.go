package tasks

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"duolink_app/internal/models"
)

// QueueNotifier satisfies the partner engine's Notifier by enqueueing email
// tasks for the worker. Queueing is a plain insert so it cannot block on the
// SMTP server; delivery and retries happen out of band.
type QueueNotifier struct {
	db *gorm.DB
}

// NewQueueNotifier creates a notifier writing to the scheduled-task queue.
func NewQueueNotifier(db *gorm.DB) *QueueNotifier {
	return &QueueNotifier{db: db}
}

func (n *QueueNotifier) enqueue(ctx context.Context, args SendPartnerEmailArgs) error {
	task, err := SendPartnerEmailTask.CreateTask(args)
	if err != nil {
		return err
	}
	return n.db.WithContext(ctx).Create(task).Error
}

func inviteLink(token string) string {
	base := os.Getenv("APP_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return fmt.Sprintf("%s/join?token=%s", base, token)
}

// InviteCreated queues the initial invite email.
func (n *QueueNotifier) InviteCreated(ctx context.Context, invite models.PartnerInvite, primary models.User) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n%s invited you to share their household setup.\n\nAccept the invite here: %s\n\nThe invite expires on %s.\n",
		invite.PartnerName, primary.Name, inviteLink(invite.Token),
		invite.ExpiresAt.Format("Jan 2, 2006"),
	)
	return n.enqueue(ctx, SendPartnerEmailArgs{
		To:       invite.PartnerEmail,
		Subject:  fmt.Sprintf("%s invited you to link accounts", primary.Name),
		Body:     body,
		Category: "invite",
	})
}

// InviteReminder queues a reminder for an outstanding invite.
func (n *QueueNotifier) InviteReminder(ctx context.Context, invite models.PartnerInvite, primary models.User) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nJust a reminder: %s is still waiting for you to link accounts.\n\nAccept the invite here: %s\n\nThe invite expires on %s.\n",
		invite.PartnerName, primary.Name, inviteLink(invite.Token),
		invite.ExpiresAt.Format("Jan 2, 2006"),
	)
	return n.enqueue(ctx, SendPartnerEmailArgs{
		To:       invite.PartnerEmail,
		Subject:  fmt.Sprintf("Reminder: %s invited you to link accounts", primary.Name),
		Body:     body,
		Category: "reminder",
	})
}

// PartnerDisconnected queues the notice sent to a secondary after the primary
// ended the partnership.
func (n *QueueNotifier) PartnerDisconnected(ctx context.Context, secondary models.User, primaryName string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n%s has unlinked your shared household setup. Your account is back to solo mode and you will be asked to pick a group of your own next time you sign in.\n",
		secondary.Name, primaryName,
	)
	return n.enqueue(ctx, SendPartnerEmailArgs{
		To:       secondary.Email,
		Subject:  "Your accounts are no longer linked",
		Body:     body,
		Category: "disconnect",
	})
}
