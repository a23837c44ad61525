package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"duolink_app/internal/models"
	"duolink_app/internal/partner"
)

// ReconcilePairsTaskDef walks every partner link and reports pairs whose
// shared settings have drifted apart: different groups, different currencies,
// or ratios that are not each other's inverse. Purely advisory; drift is
// logged and counted, never mutated, because each fix needs a user decision.
type ReconcilePairsTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *ReconcilePairsTaskDef) TaskID() string {
	return "reconcile_pairs"
}

// CreateTask builds a recurring ScheduledTask for the reconcile run.
func (t *ReconcilePairsTaskDef) CreateTask(firstRun time.Time, rrule string) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, firstRun, &rrule, models.ScheduledTaskTypeRecurring, 1)
}

// HandleExecution runs one reconcile pass.
func (t *ReconcilePairsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var links []models.PartnerLink
	if err := db.WithContext(ctx).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch partner links: %w", err)
	}

	checked := 0
	drifted := 0
	var findings []string

	for _, link := range links {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var primarySettings, secondarySettings models.SharedSettings
		if err := db.Where("user_id = ?", link.PrimaryUserID).First(&primarySettings).Error; err != nil {
			continue
		}
		if err := db.Where("user_id = ?", link.SecondaryUserID).First(&secondarySettings).Error; err != nil {
			continue
		}
		checked++

		for _, problem := range pairDrift(primarySettings, secondarySettings) {
			drifted++
			finding := fmt.Sprintf("link %d (primary %d, secondary %d): %s",
				link.ID, link.PrimaryUserID, link.SecondaryUserID, problem)
			log.Printf("[Task: reconcile_pairs] %s", finding)
			findings = append(findings, finding)
		}
	}

	return map[string]interface{}{
		"status":   "success",
		"checked":  checked,
		"drifted":  drifted,
		"findings": findings,
	}, nil
}

// pairDrift lists the ways a linked pair's settings disagree. Both sides
// without a group is fine (a freshly linked pair mid-onboarding); one side
// missing a group the other has is the orphan shape the conflict detector
// warns about at write time.
func pairDrift(primary, secondary models.SharedSettings) []string {
	var problems []string

	pg, sg := deref(primary.GroupID), deref(secondary.GroupID)
	if pg == "" && sg == "" {
		return nil
	}
	if pg != sg {
		problems = append(problems, fmt.Sprintf("group mismatch (%q vs %q)", pg, sg))
		return problems
	}

	if deref(primary.CurrencyCode) != deref(secondary.CurrencyCode) {
		problems = append(problems, fmt.Sprintf("currency mismatch (%q vs %q)",
			deref(primary.CurrencyCode), deref(secondary.CurrencyCode)))
	}

	pr, sr := deref(primary.DefaultSplitRatio), deref(secondary.DefaultSplitRatio)
	if pr != "" || sr != "" {
		inverted, err := partner.InvertRatio(pr)
		if err != nil || inverted != sr {
			problems = append(problems, fmt.Sprintf("split ratios are not inverses (%q vs %q)", pr, sr))
		}
	}

	if primary.Emoji == secondary.Emoji {
		problems = append(problems, fmt.Sprintf("shared sync marker %q", primary.Emoji))
	}

	return problems
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ReconcilePairsTask is the singleton instance of ReconcilePairsTaskDef
var ReconcilePairsTask = &ReconcilePairsTaskDef{}
