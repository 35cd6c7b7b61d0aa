package workflow

import (
	"context"
	"log/slog"
	"time"

	"commentguard/internal/models"
)

// RunReport summarizes one pass of the active rules over a set of comments.
type RunReport struct {
	Comments  int           `json:"comments"`
	Rules     int           `json:"rules"`
	Evaluated int           `json:"evaluated"`
	Matched   int           `json:"matched"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled bool          `json:"cancelled"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	TraceID   string        `json:"trace_id,omitempty"`
}

// RunAll evaluates every active rule, in stored order, against every comment
// in the store. Each rule sees the store as left by the rules before it. A
// failed action is recorded and the run continues. When ctx is cancelled the
// run stops before the next comment/rule pair and returns ctx.Err() along with
// what was done so far.
func (e *Engine) RunAll(ctx context.Context) (RunReport, error) {
	return e.Run(ctx, e.comments.All())
}

// Run is RunAll restricted to comments. Each comment is re-read from the
// store before its first rule, and comments that no longer exist are skipped.
func (e *Engine) Run(ctx context.Context, comments []models.Comment) (RunReport, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	rules := e.activeRules()
	report := RunReport{
		Comments:  len(comments),
		Rules:     len(rules),
		StartedAt: e.now(),
	}
	finish := func(err error) (RunReport, error) {
		report.Duration = e.now().Sub(report.StartedAt)
		report.Cancelled = err != nil
		e.observer.RunFinished(ctx, report)
		e.logger.InfoContext(ctx, "workflow run finished",
			slog.Int("comments", report.Comments),
			slog.Int("rules", report.Rules),
			slog.Int("matched", report.Matched),
			slog.Int("failed", report.Failed),
			slog.Bool("cancelled", report.Cancelled),
		)
		return report, err
	}

	if len(rules) == 0 {
		return finish(nil)
	}

	for _, snapshot := range comments {
		current, err := e.comments.Get(snapshot.ID)
		if err != nil {
			continue
		}
		for _, rule := range rules {
			if err := ctx.Err(); err != nil {
				return finish(err)
			}
			report.Evaluated++
			if !Matches(current, rule.Condition) {
				continue
			}
			report.Matched++

			exec := e.Apply(ctx, current, rule)
			if exec.Success {
				report.Succeeded++
			} else {
				report.Failed++
			}

			// a deleted comment keeps its last-known state for later rules
			if fresh, err := e.comments.Get(current.ID); err == nil {
				current = fresh
			}
		}
	}
	return finish(nil)
}
