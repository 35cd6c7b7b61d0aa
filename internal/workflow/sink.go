package workflow

import (
	"context"
	"time"

	"commentguard/internal/models"
)

// ActionSink performs an action against the platform that owns the comment.
// A nil error means the platform accepted it.
type ActionSink interface {
	Execute(ctx context.Context, commentID string, action models.ActionType) error
}

// LocalSink accepts every action. It is used when no remote platform is
// configured.
type LocalSink struct{}

// Execute implements ActionSink.
func (LocalSink) Execute(context.Context, string, models.ActionType) error { return nil }

// SinkFunc adapts a function to ActionSink.
type SinkFunc func(ctx context.Context, commentID string, action models.ActionType) error

// Execute implements ActionSink.
func (f SinkFunc) Execute(ctx context.Context, commentID string, action models.ActionType) error {
	return f(ctx, commentID, action)
}

// NotifyEvent is emitted by the notify action.
type NotifyEvent struct {
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	Preview   string    `json:"preview"`
	At        time.Time `json:"at"`
}

// Notifier delivers notify-action events. Delivery is advisory: a failure is
// logged and does not fail the execution.
type Notifier interface {
	NotifyRule(ctx context.Context, ev NotifyEvent) error
}

// Observer is told about rule and execution changes so they can be persisted
// or measured. Calls happen synchronously on the engine's goroutine.
type Observer interface {
	RuleSaved(ctx context.Context, rule models.WorkflowRule)
	RuleDeleted(ctx context.Context, id string)
	Executed(ctx context.Context, exec models.WorkflowExecution)
	RunFinished(ctx context.Context, report RunReport)
}

type nopObserver struct{}

func (nopObserver) RuleSaved(context.Context, models.WorkflowRule)     {}
func (nopObserver) RuleDeleted(context.Context, string)                {}
func (nopObserver) Executed(context.Context, models.WorkflowExecution) {}
func (nopObserver) RunFinished(context.Context, RunReport)             {}
