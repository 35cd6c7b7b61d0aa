// Package service wires the moderation core to storage, notifications and
// metrics.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"commentguard/internal/middleware"
	"commentguard/internal/models"
	"commentguard/internal/moderation"
	"commentguard/internal/repository"
	"commentguard/internal/store"
	"commentguard/internal/workflow"

	"gorm.io/gorm"
)

const writeTimeout = 5 * time.Second

// Persistence writes domain state through to the database. A nil
// *Persistence means state lives in memory only; every method is then a no-op.
type Persistence struct {
	Comments   repository.CommentRepository
	Rules      repository.RuleRepository
	Executions repository.ExecutionRepository
	Settings   repository.SettingsRepository

	restoring atomic.Bool
}

// NewPersistence returns repositories over db, or nil when db is nil.
func NewPersistence(db *gorm.DB) *Persistence {
	if db == nil {
		return nil
	}
	return &Persistence{
		Comments:   repository.NewCommentRepository(db),
		Rules:      repository.NewRuleRepository(db),
		Executions: repository.NewExecutionRepository(db),
		Settings:   repository.NewSettingsRepository(db),
	}
}

// CommentListener mirrors committed store changes into the comment table.
// Write failures are logged; the in-memory store stays authoritative.
func (p *Persistence) CommentListener() store.Listener {
	if p == nil {
		return nil
	}
	return func(change store.Change, c models.Comment) {
		if p.restoring.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		var err error
		switch change {
		case store.Save:
			err = p.Comments.Upsert(ctx, &c)
		case store.Remove:
			err = p.Comments.Delete(ctx, c.ID)
		}
		if err != nil {
			middleware.Logger.Error("comment write-through failed",
				slog.String("comment_id", c.ID),
				slog.String("change", change.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Restore loads persisted settings, comments, rules and recent executions
// into the in-memory components.
func (p *Persistence) Restore(
	ctx context.Context,
	comments *store.CommentStore,
	engine *workflow.Engine,
	settings *moderation.SettingsStore,
) error {
	if p == nil {
		return nil
	}
	p.restoring.Store(true)
	defer p.restoring.Store(false)

	saved, err := p.Settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if saved != nil {
		if _, err := settings.Replace(*saved); err != nil {
			middleware.Logger.Warn("ignoring invalid persisted settings", slog.String("error", err.Error()))
		}
	}

	list, err := p.Comments.List(ctx)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	for _, c := range list {
		comments.Upsert(c)
	}

	rules, err := p.Rules.List(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	engine.LoadRules(rules)

	execs, err := p.Executions.ListRecent(ctx, engine.Log().Capacity())
	if err != nil {
		return fmt.Errorf("load executions: %w", err)
	}
	engine.Log().Restore(execs)

	middleware.Logger.InfoContext(ctx, "state restored",
		slog.Int("comments", len(list)),
		slog.Int("rules", len(rules)),
		slog.Int("executions", len(execs)),
	)
	return nil
}

func (p *Persistence) saveRule(ctx context.Context, rule models.WorkflowRule) error {
	if p == nil {
		return nil
	}
	return p.Rules.Save(ctx, &rule)
}

func (p *Persistence) deleteRule(ctx context.Context, id string) error {
	if p == nil {
		return nil
	}
	return p.Rules.Delete(ctx, id)
}

func (p *Persistence) saveExecution(ctx context.Context, exec models.WorkflowExecution) error {
	if p == nil {
		return nil
	}
	return p.Executions.Create(ctx, &exec)
}

func (p *Persistence) saveSettings(ctx context.Context, s models.ModerationSettings) error {
	if p == nil {
		return nil
	}
	return p.Settings.Save(ctx, s)
}
