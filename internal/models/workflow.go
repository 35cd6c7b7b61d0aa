package models

import (
	"strings"
	"time"
)

// ConditionType is the closed set of rule conditions.
type ConditionType string

const (
	ConditionContains     ConditionType = "contains"
	ConditionNotContains  ConditionType = "not_contains"
	ConditionUser         ConditionType = "user"
	ConditionSentiment    ConditionType = "sentiment"
	ConditionHasLinks     ConditionType = "has_links"
	ConditionHasProfanity ConditionType = "has_profanity"
	ConditionIsSpam       ConditionType = "is_spam"
)

// Condition selects the comments a rule acts on. Value is used by contains,
// not_contains, user and sentiment; the flag conditions ignore it.
type Condition struct {
	Type  ConditionType `gorm:"size:32;not null" json:"type"`
	Value string        `gorm:"size:500" json:"value,omitempty"`
}

// Validate rejects unknown condition types and missing values.
func (c Condition) Validate() error {
	switch c.Type {
	case ConditionContains, ConditionNotContains, ConditionUser:
		if strings.TrimSpace(c.Value) == "" {
			return NewValidationError("condition " + string(c.Type) + " requires a value")
		}
	case ConditionSentiment:
		if !Sentiment(c.Value).Valid() {
			return NewValidationError("condition sentiment requires positive, negative or neutral")
		}
	case ConditionHasLinks, ConditionHasProfanity, ConditionIsSpam:
	default:
		return NewValidationError("unknown condition type " + string(c.Type))
	}
	return nil
}

// ActionType is the closed set of rule actions.
type ActionType string

const (
	ActionHide   ActionType = "hide"
	ActionDelete ActionType = "delete"
	ActionNotify ActionType = "notify"
	ActionLike   ActionType = "like"
)

// Action is what a matching rule does to a comment.
type Action struct {
	Type ActionType `gorm:"size:16;not null" json:"type"`
}

// Validate rejects unknown action types.
func (a Action) Validate() error {
	switch a.Type {
	case ActionHide, ActionDelete, ActionNotify, ActionLike:
		return nil
	}
	return NewValidationError("unknown action type " + string(a.Type))
}

// WorkflowRule is a user-defined condition -> action pair.
// RunCount and LastRun are owned by the workflow engine.
type WorkflowRule struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:200;not null" json:"name"`
	Active    bool       `gorm:"not null" json:"active"`
	Condition Condition  `gorm:"embedded;embeddedPrefix:condition_" json:"condition"`
	Action    Action     `gorm:"embedded;embeddedPrefix:action_" json:"action"`
	Position  int        `gorm:"not null;default:0;index" json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	RunCount  int64      `gorm:"not null;default:0" json:"run_count"`
}

// RuleInput is the caller-supplied part of a rule. RunCount and LastRun exist
// only so that attempts to set them can be rejected.
type RuleInput struct {
	Name      string     `json:"name" yaml:"name"`
	Active    *bool      `json:"active,omitempty" yaml:"active,omitempty"`
	Condition Condition  `json:"condition" yaml:"condition"`
	Action    Action     `json:"action" yaml:"action"`
	RunCount  *int64     `json:"run_count,omitempty" yaml:"run_count,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// Validate checks names, variants and engine-owned fields.
func (in RuleInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewValidationError("rule name is required")
	}
	if in.RunCount != nil {
		return NewValidationError("run_count is managed by the workflow engine")
	}
	if in.LastRun != nil {
		return NewValidationError("last_run is managed by the workflow engine")
	}
	if err := in.Condition.Validate(); err != nil {
		return err
	}
	return in.Action.Validate()
}

// WorkflowExecution is the immutable record of one rule/comment attempt.
type WorkflowExecution struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	RuleID         string     `gorm:"index;not null" json:"rule_id"`
	RuleName       string     `json:"rule_name"`
	CommentID      string     `gorm:"index;not null" json:"comment_id"`
	PostID         string     `json:"post_id"`
	Action         ActionType `gorm:"size:16;not null" json:"action"`
	Timestamp      time.Time  `gorm:"index" json:"timestamp"`
	Success        bool       `gorm:"not null" json:"success"`
	Error          string     `json:"error,omitempty"`
	CommentPreview string     `json:"comment_preview"`
}
