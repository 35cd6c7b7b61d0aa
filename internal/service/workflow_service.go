package service

import (
	"context"
	"log/slog"

	"commentguard/internal/middleware"
	"commentguard/internal/models"
	"commentguard/internal/observability"
	"commentguard/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
)

// RunPublisher announces finished workflow runs.
type RunPublisher interface {
	PublishRunReport(ctx context.Context, report workflow.RunReport) error
}

// WorkflowObserver persists rule and execution changes and records workflow
// metrics. Writes outlive the caller's cancellation so that a cancelled run
// still keeps its audit trail.
type WorkflowObserver struct {
	persistence *Persistence
	publisher   RunPublisher
}

var _ workflow.Observer = (*WorkflowObserver)(nil)

// NewWorkflowObserver returns an observer writing through p. Both arguments
// may be nil.
func NewWorkflowObserver(p *Persistence, publisher RunPublisher) *WorkflowObserver {
	return &WorkflowObserver{persistence: p, publisher: publisher}
}

func (o *WorkflowObserver) RuleSaved(ctx context.Context, rule models.WorkflowRule) {
	if err := o.persistence.saveRule(context.WithoutCancel(ctx), rule); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to persist rule",
			slog.String("rule_id", rule.ID), slog.String("error", err.Error()))
	}
}

func (o *WorkflowObserver) RuleDeleted(ctx context.Context, id string) {
	if err := o.persistence.deleteRule(context.WithoutCancel(ctx), id); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to delete persisted rule",
			slog.String("rule_id", id), slog.String("error", err.Error()))
	}
}

func (o *WorkflowObserver) Executed(ctx context.Context, exec models.WorkflowExecution) {
	observability.WorkflowExecutions.WithLabelValues(string(exec.Action), observability.Outcome(exec.Success)).Inc()
	if err := o.persistence.saveExecution(context.WithoutCancel(ctx), exec); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to persist execution",
			slog.String("execution_id", exec.ID), slog.String("error", err.Error()))
	}
}

func (o *WorkflowObserver) RunFinished(ctx context.Context, report workflow.RunReport) {
	status := "completed"
	if report.Cancelled {
		status = "cancelled"
	}
	observability.WorkflowRunDuration.WithLabelValues(status).Observe(report.Duration.Seconds())
	if o.publisher == nil || report.Matched == 0 {
		return
	}
	if err := o.publisher.PublishRunReport(context.WithoutCancel(ctx), report); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish run report", slog.String("error", err.Error()))
	}
}

// WorkflowService exposes rule management and runs.
type WorkflowService struct {
	engine *workflow.Engine
	log    *observability.ServiceLogger
}

// NewWorkflowService returns a new WorkflowService.
func NewWorkflowService(engine *workflow.Engine) *WorkflowService {
	return &WorkflowService{engine: engine, log: observability.NewServiceLogger("workflow")}
}

func (s *WorkflowService) ListRules() []models.WorkflowRule {
	return s.engine.ListRules()
}

func (s *WorkflowService) GetRule(id string) (models.WorkflowRule, error) {
	return s.engine.GetRule(id)
}

func (s *WorkflowService) CreateRule(ctx context.Context, in models.RuleInput) (models.WorkflowRule, error) {
	rule, err := s.engine.CreateRule(ctx, in)
	if err != nil {
		return rule, err
	}
	s.log.LogCall(ctx, "CreateRule", map[string]any{"rule_id": rule.ID, "action": rule.Action.Type})
	return rule, nil
}

func (s *WorkflowService) UpdateRule(ctx context.Context, id string, in models.RuleInput) (models.WorkflowRule, error) {
	return s.engine.UpdateRule(ctx, id, in)
}

func (s *WorkflowService) SetActive(ctx context.Context, id string, active bool) (models.WorkflowRule, error) {
	rule, err := s.engine.SetActive(ctx, id, active)
	if err != nil {
		return rule, err
	}
	s.log.LogCall(ctx, "SetActive", map[string]any{"rule_id": id, "active": active})
	return rule, nil
}

func (s *WorkflowService) DeleteRule(ctx context.Context, id string) error {
	if err := s.engine.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.log.LogCall(ctx, "DeleteRule", map[string]any{"rule_id": id})
	return nil
}

// RunAll runs every active rule over every comment.
func (s *WorkflowService) RunAll(ctx context.Context) (workflow.RunReport, error) {
	span, ctx := observability.NewSpan(ctx, "workflow.RunAll")
	defer span.End()

	report, err := s.engine.RunAll(ctx)
	report.TraceID = span.TraceID()
	span.AddAttributes(
		attribute.Int("workflow.rules", report.Rules),
		attribute.Int("workflow.matched", report.Matched),
		attribute.Int("workflow.failed", report.Failed),
	)
	if err != nil {
		span.SetError(err)
		s.log.LogError(ctx, "RunAll", err)
		return report, err
	}
	s.log.LogCall(ctx, "RunAll", map[string]any{
		"matched":  report.Matched,
		"failed":   report.Failed,
		"trace_id": report.TraceID,
	})
	return report, nil
}

// Executions returns up to limit executions, most recent first. A
// non-positive limit returns the whole log.
func (s *WorkflowService) Executions(limit int) []models.WorkflowExecution {
	return s.engine.Log().List(limit)
}

// SeedFromFile creates the rules in path when no rules exist yet. An empty
// path does nothing.
func (s *WorkflowService) SeedFromFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	inputs, err := workflow.LoadRulesFile(path)
	if err != nil {
		return 0, err
	}
	n, err := s.engine.SeedIfEmpty(ctx, inputs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.LogCall(ctx, "SeedFromFile", map[string]any{"path": path, "rules": n})
	}
	return n, nil
}
