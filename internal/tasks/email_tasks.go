package tasks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"duolink_app/internal/models"
	"duolink_app/internal/services"
)

// SendPartnerEmailArgs defines the arguments for a partner email task.
type SendPartnerEmailArgs struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Category string `json:"category"` // invite, reminder, disconnect
}

// SendPartnerEmailTaskDef delivers a queued partner email through SMTP.
type SendPartnerEmailTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *SendPartnerEmailTaskDef) TaskID() string {
	return "send_partner_email"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendPartnerEmailTaskDef) CreateTask(args SendPartnerEmailArgs) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
}

// HandleExecution sends the email. A failure is returned so the worker can
// retry up to MaxAttempt; it never reaches the request that queued it.
func (t *SendPartnerEmailTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SendPartnerEmailArgs
	if err := decodeArgs(task.Arguments, &args); err != nil {
		return nil, err
	}
	if args.To == "" {
		return nil, fmt.Errorf("no recipient in task arguments")
	}

	email := services.NewEmailService()
	if err := email.SendEmail([]string{args.To}, args.Subject, args.Body); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"status":   "success",
		"to":       args.To,
		"category": args.Category,
	}, nil
}

// SendPartnerEmailTask is the singleton instance of SendPartnerEmailTaskDef
var SendPartnerEmailTask = &SendPartnerEmailTaskDef{}
