package service

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"commentguard/internal/classifier"
	"commentguard/internal/featureflags"
	"commentguard/internal/middleware"
	"commentguard/internal/models"
	"commentguard/internal/moderation"
	"commentguard/internal/observability"
	"commentguard/internal/store"
	"commentguard/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// FlaggedPublisher announces comments that need review.
type FlaggedPublisher interface {
	PublishFlagged(ctx context.Context, ev moderation.FlaggedEvent) error
}

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	Ingested   int                 `json:"ingested"`
	Created    int                 `json:"created"`
	Flagged    int                 `json:"flagged"`
	AutoHidden int                 `json:"auto_hidden"`
	Workflow   *workflow.RunReport `json:"workflow,omitempty"`
}

// ListFilter narrows List.
type ListFilter struct {
	PostID        string
	IncludeHidden bool
	FlaggedOnly   bool
}

// CommentService ingests, classifies and moderates comments.
type CommentService struct {
	comments *store.CommentStore
	settings *moderation.SettingsStore
	engine   *workflow.Engine
	sink     workflow.ActionSink
	flagged  FlaggedPublisher
	flags    *featureflags.Manager
	workers  int
	now      func() time.Time
	log      *observability.ServiceLogger
}

// CommentOption configures a CommentService.
type CommentOption func(*CommentService)

// WithFlaggedPublisher sets where flagged-comment events go.
func WithFlaggedPublisher(p FlaggedPublisher) CommentOption {
	return func(s *CommentService) { s.flagged = p }
}

// WithFeatureFlags sets the flags consulted during ingestion.
func WithFeatureFlags(m *featureflags.Manager) CommentOption {
	return func(s *CommentService) { s.flags = m }
}

// WithClassifyWorkers bounds concurrent classification. Non-positive values
// use GOMAXPROCS.
func WithClassifyWorkers(n int) CommentOption {
	return func(s *CommentService) { s.workers = n }
}

// WithActionSink sets the sink for operator actions. The default is
// workflow.LocalSink.
func WithActionSink(sink workflow.ActionSink) CommentOption {
	return func(s *CommentService) { s.sink = sink }
}

// WithCommentClock overrides time.Now.
func WithCommentClock(now func() time.Time) CommentOption {
	return func(s *CommentService) { s.now = now }
}

// NewCommentService returns a new CommentService.
func NewCommentService(
	comments *store.CommentStore,
	settings *moderation.SettingsStore,
	engine *workflow.Engine,
	opts ...CommentOption,
) *CommentService {
	s := &CommentService{
		comments: comments,
		settings: settings,
		engine:   engine,
		sink:     workflow.LocalSink{},
		now:      time.Now,
		log:      observability.NewServiceLogger("comments"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

type annotated struct {
	comment models.Comment
	verdict moderation.Verdict
}

// Ingest validates, classifies and stores a batch. One invalid record
// rejects the whole batch before anything is stored. Re-ingesting a known id
// refreshes its content and annotations but never un-hides it.
func (s *CommentService) Ingest(ctx context.Context, inputs []models.CommentInput) (IngestResult, error) {
	span, ctx := observability.NewSpan(ctx, "comments.Ingest", attribute.Int("batch.size", len(inputs)))
	defer span.End()

	var result IngestResult
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			span.SetError(err)
			return result, err
		}
	}

	snap := s.settings.Snapshot()
	out := make([]annotated, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := in.ToComment()
			c.Flags, c.Sentiment = classifier.Classify(c.Text, snap.Lexicon)
			out[i] = annotated{comment: c, verdict: moderation.Evaluate(c.Flags, snap.Settings)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return result, err
	}

	var fresh []models.Comment
	for _, a := range out {
		c, created, hidden := s.store(a)
		result.Ingested++
		if created {
			result.Created++
		}
		if hidden {
			result.AutoHidden++
		}
		if s.announce(ctx, c, a.verdict, hidden) {
			result.Flagged++
		}
		if s.flags.Enabled(featureflags.WorkflowsOnIngest, c.PostID) {
			fresh = append(fresh, c)
		}
	}

	if len(fresh) > 0 {
		report, err := s.engine.Run(ctx, fresh)
		result.Workflow = &report
		if err != nil {
			span.SetError(err)
			return result, err
		}
	}

	span.AddAttributes(
		attribute.Int("comments.flagged", result.Flagged),
		attribute.Int("comments.auto_hidden", result.AutoHidden),
	)
	s.log.LogCall(ctx, "Ingest", map[string]any{
		"ingested":    result.Ingested,
		"created":     result.Created,
		"flagged":     result.Flagged,
		"auto_hidden": result.AutoHidden,
	})
	return result, nil
}

// store writes a, keeping the hidden and liked state of an existing comment.
// It reports whether the comment was new and whether auto-hide hid it.
func (s *CommentService) store(a annotated) (models.Comment, bool, bool) {
	c := a.comment
	autoHidden := a.verdict.Apply(&c)
	merge := func(prev, next models.Comment) models.Comment {
		next.Hidden = prev.Hidden
		next.UserLikes = next.UserLikes || prev.UserLikes
		next.LikeCount = max(next.LikeCount, prev.LikeCount)
		autoHidden = a.verdict.Apply(&next)
		c = next
		return next
	}
	created := s.comments.UpsertMerge(c, merge)
	if autoHidden {
		observability.CommentsAutoHidden.Inc()
	}
	return c, created, autoHidden
}

// announce records classification metrics and publishes the flagged event
// when the verdict asks for one. hidden reports whether auto-hide changed c.
// It reports whether the comment needs review.
func (s *CommentService) announce(ctx context.Context, c models.Comment, v moderation.Verdict, hidden bool) bool {
	observability.CommentsClassified.WithLabelValues(string(c.Sentiment)).Inc()
	for _, cat := range v.Categories {
		observability.CommentsFlagged.WithLabelValues(cat).Inc()
	}
	if v.Notify && s.flagged != nil {
		if err := s.flagged.PublishFlagged(ctx, moderation.NewFlaggedEvent(c, v, hidden, s.now())); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish flagged comment",
				slog.String("comment_id", c.ID), slog.String("error", err.Error()))
		}
	}
	return c.Flags.NeedsReview()
}

// Remoderate classifies comment id again with the current settings and
// applies the auto-hide verdict. It never un-hides.
func (s *CommentService) Remoderate(ctx context.Context, id string) (models.Comment, error) {
	snap := s.settings.Snapshot()
	var verdict moderation.Verdict
	hidden := false

	c, _, err := s.comments.Update(id, func(c *models.Comment) (store.Change, error) {
		flags, sentiment := classifier.Classify(c.Text, snap.Lexicon)
		verdict = moderation.Evaluate(flags, snap.Settings)
		hidden = verdict.Apply(c)
		if !hidden && c.Flags == flags && c.Sentiment == sentiment {
			return store.NoChange, nil
		}
		c.Flags, c.Sentiment = flags, sentiment
		return store.Save, nil
	})
	if err != nil {
		return c, err
	}
	if hidden {
		observability.CommentsAutoHidden.Inc()
	}
	s.announce(ctx, c, verdict, hidden)
	return c, nil
}

// RemoderateAll re-moderates every stored comment and returns how many were
// processed. Comments deleted meanwhile are skipped.
func (s *CommentService) RemoderateAll(ctx context.Context) (int, error) {
	span, ctx := observability.NewSpan(ctx, "comments.RemoderateAll")
	defer span.End()

	n := 0
	for _, id := range s.comments.IDs() {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return n, err
		}
		if _, err := s.Remoderate(ctx, id); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	s.log.LogCall(ctx, "RemoderateAll", map[string]any{"comments": n})
	return n, nil
}

// Get returns comment id.
func (s *CommentService) Get(id string) (models.Comment, error) {
	return s.comments.Get(id)
}

// List returns stored comments in ingestion order.
func (s *CommentService) List(f ListFilter) []models.Comment {
	var all []models.Comment
	if f.PostID != "" {
		all = s.comments.AllForPost(f.PostID)
	} else {
		all = s.comments.All()
	}
	out := make([]models.Comment, 0, len(all))
	for _, c := range all {
		if c.Hidden && !f.IncludeHidden {
			continue
		}
		if f.FlaggedOnly && !c.Flags.NeedsReview() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Explain lists the keywords and links behind the flags of comment id under
// the current settings.
func (s *CommentService) Explain(id string) ([]classifier.Match, error) {
	c, err := s.comments.Get(id)
	if err != nil {
		return nil, err
	}
	return classifier.Explain(c.Text, s.settings.Snapshot().Lexicon), nil
}

// SetHidden hides or restores comment id on operator request. Hiding goes
// through the action sink first; restoring is local only.
func (s *CommentService) SetHidden(ctx context.Context, id string, hidden bool) (models.Comment, error) {
	c, _, err := s.comments.Update(id, func(c *models.Comment) (store.Change, error) {
		if c.Hidden == hidden {
			return store.NoChange, nil
		}
		if hidden {
			if err := s.execute(ctx, id, models.ActionHide); err != nil {
				return store.NoChange, err
			}
		}
		c.Hidden = hidden
		return store.Save, nil
	})
	if err == nil {
		s.log.LogCall(ctx, "SetHidden", map[string]any{"comment_id": id, "hidden": hidden})
	}
	return c, err
}

// Delete removes comment id on operator request after the sink accepts it.
func (s *CommentService) Delete(ctx context.Context, id string) (models.Comment, error) {
	c, _, err := s.comments.Update(id, func(c *models.Comment) (store.Change, error) {
		if err := s.execute(ctx, id, models.ActionDelete); err != nil {
			return store.NoChange, err
		}
		return store.Remove, nil
	})
	if err == nil {
		s.log.LogCall(ctx, "Delete", map[string]any{"comment_id": id})
	}
	return c, err
}

func (s *CommentService) execute(ctx context.Context, id string, action models.ActionType) error {
	if err := s.sink.Execute(ctx, id, action); err != nil {
		return models.NewActionFailedError(string(action), err)
	}
	return nil
}
