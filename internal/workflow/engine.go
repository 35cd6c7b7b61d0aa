// Package workflow evaluates user-defined condition/action rules against the
// stored comments and keeps an audit log of every attempt.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"commentguard/internal/models"
	"commentguard/internal/store"

	"github.com/google/uuid"
)

// Engine owns the ordered rule list and applies rules to the comment store.
type Engine struct {
	comments *store.CommentStore
	log      *ExecutionLog
	sink     ActionSink
	notifier Notifier
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	rules []models.WorkflowRule

	// runMu allows one run at a time.
	runMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the platform action sink. The default is LocalSink.
func WithSink(s ActionSink) Option { return func(e *Engine) { e.sink = s } }

// WithNotifier sets where notify actions are delivered.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithObserver sets the rule and execution observer.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine returns an engine with no rules acting on comments.
func NewEngine(comments *store.CommentStore, opts ...Option) *Engine {
	e := &Engine{
		comments: comments,
		sink:     LocalSink{},
		observer: nopObserver{},
		logger:   slog.Default(),
		now:      time.Now,
		log:      NewExecutionLog(DefaultLogCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Log returns the engine's execution log.
func (e *Engine) Log() *ExecutionLog { return e.log }

// LoadRules replaces the rule list with rules restored from storage, ordered
// by position.
func (e *Engine) LoadRules(rules []models.WorkflowRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = make([]models.WorkflowRule, len(rules))
	copy(e.rules, rules)
	sortByPosition(e.rules)
}

// ListRules returns the rules in stored order.
func (e *Engine) ListRules() []models.WorkflowRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.WorkflowRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// GetRule returns the rule with id.
func (e *Engine) GetRule(id string) (models.WorkflowRule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexOf(id); i >= 0 {
		return e.rules[i], nil
	}
	return models.WorkflowRule{}, models.NewNotFoundError("Rule", id)
}

// CreateRule validates in and appends a new rule. Rules are active unless
// in says otherwise.
func (e *Engine) CreateRule(ctx context.Context, in models.RuleInput) (models.WorkflowRule, error) {
	if err := in.Validate(); err != nil {
		return models.WorkflowRule{}, err
	}
	rule := models.WorkflowRule{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Active:    in.Active == nil || *in.Active,
		Condition: in.Condition,
		Action:    in.Action,
		CreatedAt: e.now(),
	}

	e.mu.Lock()
	rule.Position = len(e.rules)
	e.rules = append(e.rules, rule)
	e.mu.Unlock()

	e.observer.RuleSaved(ctx, rule)
	return rule, nil
}

// UpdateRule replaces the user-editable fields of rule id. Run statistics,
// position and creation time are kept.
func (e *Engine) UpdateRule(ctx context.Context, id string, in models.RuleInput) (models.WorkflowRule, error) {
	if err := in.Validate(); err != nil {
		return models.WorkflowRule{}, err
	}
	return e.modify(ctx, id, func(r *models.WorkflowRule) {
		r.Name = in.Name
		r.Condition = in.Condition
		r.Action = in.Action
		if in.Active != nil {
			r.Active = *in.Active
		}
	})
}

// SetActive toggles rule id.
func (e *Engine) SetActive(ctx context.Context, id string, active bool) (models.WorkflowRule, error) {
	return e.modify(ctx, id, func(r *models.WorkflowRule) { r.Active = active })
}

// DeleteRule removes rule id and closes the gap in positions.
func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return models.NewNotFoundError("Rule", id)
	}
	e.rules = append(e.rules[:i], e.rules[i+1:]...)
	var moved []models.WorkflowRule
	for j := i; j < len(e.rules); j++ {
		e.rules[j].Position = j
		moved = append(moved, e.rules[j])
	}
	e.mu.Unlock()

	e.observer.RuleDeleted(ctx, id)
	for _, r := range moved {
		e.observer.RuleSaved(ctx, r)
	}
	return nil
}

// SeedIfEmpty creates rules from inputs when the engine has none. It returns
// how many rules were created.
func (e *Engine) SeedIfEmpty(ctx context.Context, inputs []models.RuleInput) (int, error) {
	if len(e.ListRules()) > 0 {
		return 0, nil
	}
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return 0, err
		}
	}
	for _, in := range inputs {
		if _, err := e.CreateRule(ctx, in); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}

// Evaluate reports whether rule's condition matches c. Active state is not
// considered.
func (e *Engine) Evaluate(c models.Comment, rule models.WorkflowRule) bool {
	return Matches(c, rule.Condition)
}

// Apply performs rule's action on c, appends the execution record and counts
// the attempt on the rule. Failures are reported in the record.
func (e *Engine) Apply(ctx context.Context, c models.Comment, rule models.WorkflowRule) models.WorkflowExecution {
	err := e.perform(ctx, c, rule)

	// Version 7 ids sort in creation order, which breaks timestamp ties.
	exec := models.WorkflowExecution{
		ID:             uuid.Must(uuid.NewV7()).String(),
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		CommentID:      c.ID,
		PostID:         c.PostID,
		Action:         rule.Action.Type,
		Timestamp:      e.now(),
		Success:        err == nil,
		CommentPreview: c.Preview(),
	}
	if err != nil {
		exec.Error = err.Error()
		e.logger.WarnContext(ctx, "workflow action failed",
			slog.String("rule_id", rule.ID),
			slog.String("comment_id", c.ID),
			slog.String("action", string(rule.Action.Type)),
			slog.String("error", err.Error()),
		)
	}

	e.log.Append(exec)
	e.observer.Executed(ctx, exec)

	// the rule may have been deleted since the caller read it
	ts := exec.Timestamp
	_, _ = e.modify(ctx, rule.ID, func(r *models.WorkflowRule) {
		r.RunCount++
		r.LastRun = &ts
	})
	return exec
}

func (e *Engine) perform(ctx context.Context, c models.Comment, rule models.WorkflowRule) error {
	action := rule.Action.Type
	_, _, err := e.comments.Update(c.ID, func(cur *models.Comment) (store.Change, error) {
		switch action {
		case models.ActionHide:
			if cur.Hidden {
				return store.NoChange, nil
			}
			if err := e.execute(ctx, cur.ID, action); err != nil {
				return store.NoChange, err
			}
			cur.Hidden = true
			return store.Save, nil
		case models.ActionLike:
			if cur.UserLikes {
				return store.NoChange, nil
			}
			if err := e.execute(ctx, cur.ID, action); err != nil {
				return store.NoChange, err
			}
			cur.UserLikes = true
			cur.LikeCount++
			return store.Save, nil
		case models.ActionDelete:
			if err := e.execute(ctx, cur.ID, action); err != nil {
				return store.NoChange, err
			}
			return store.Remove, nil
		case models.ActionNotify:
			if err := e.execute(ctx, cur.ID, action); err != nil {
				return store.NoChange, err
			}
			return store.NoChange, nil
		}
		return store.NoChange, models.NewValidationError("unknown action type " + string(action))
	})
	if err != nil {
		return err
	}

	if action == models.ActionNotify && e.notifier != nil {
		ev := NotifyEvent{
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			CommentID: c.ID,
			PostID:    c.PostID,
			Preview:   c.Preview(),
			At:        e.now(),
		}
		if nErr := e.notifier.NotifyRule(ctx, ev); nErr != nil {
			e.logger.WarnContext(ctx, "workflow notification not delivered",
				slog.String("rule_id", rule.ID),
				slog.String("comment_id", c.ID),
				slog.String("error", nErr.Error()),
			)
		}
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, commentID string, action models.ActionType) error {
	if err := e.sink.Execute(ctx, commentID, action); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return models.NewActionFailedError(string(action), err)
	}
	return nil
}

func (e *Engine) modify(ctx context.Context, id string, fn func(*models.WorkflowRule)) (models.WorkflowRule, error) {
	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return models.WorkflowRule{}, models.NewNotFoundError("Rule", id)
	}
	fn(&e.rules[i])
	rule := e.rules[i]
	e.mu.Unlock()

	e.observer.RuleSaved(ctx, rule)
	return rule, nil
}

// indexOf must be called with mu held.
func (e *Engine) indexOf(id string) int {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) activeRules() []models.WorkflowRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.WorkflowRule, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func sortByPosition(rules []models.WorkflowRule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })
	for i := range rules {
		rules[i].Position = i
	}
}
