package service

import (
	"context"
	"errors"
	"testing"

	"commentguard/internal/featureflags"
	"commentguard/internal/models"
	"commentguard/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_IngestClassifiesAndHides(t *testing.T) {
	f := newFixture(t)
	pub := &flaggedStub{}
	svc := NewCommentService(f.comments, f.settings, f.engine,
		WithFlaggedPublisher(pub), WithClassifyWorkers(2), WithCommentClock(fixedNow))

	res, err := svc.Ingest(context.Background(), []models.CommentInput{
		input("c1", "p1", "Vinci un premio gratis, clicca qui!"),
		input("c2", "p1", "Bellissimo, grazie!"),
		input("c3", "p2", "guarda https://example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, IngestResult{Ingested: 3, Created: 3, Flagged: 2, AutoHidden: 1}, res)

	spam, err := svc.Get("c1")
	require.NoError(t, err)
	assert.True(t, spam.Flags.IsSpam)
	assert.True(t, spam.Hidden)

	link, err := svc.Get("c3")
	require.NoError(t, err)
	assert.True(t, link.Flags.HasLinks)
	assert.False(t, link.Hidden, "links are not auto-hidden by default")

	positive, err := svc.Get("c2")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, positive.Sentiment)

	require.Equal(t, 2, pub.count())
	assert.Equal(t, "c1", pub.events[0].CommentID)
	assert.True(t, pub.events[0].AutoHidden)
	assert.Equal(t, fixedTime, pub.events[0].At)
}

func TestCommentService_IngestRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.settings, f.engine)

	_, err := svc.Ingest(context.Background(), []models.CommentInput{
		input("c1", "p1", "ok"),
		{ID: "c2", Text: "missing post"},
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Zero(t, f.comments.Len())
}

func TestCommentService_ReingestKeepsHiddenAndLikes(t *testing.T) {
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.settings, f.engine)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []models.CommentInput{input("c1", "p1", "bel post")})
	require.NoError(t, err)
	_, err = svc.SetHidden(ctx, "c1", true)
	require.NoError(t, err)
	_, err = f.comments.Like("c1")
	require.NoError(t, err)

	res, err := svc.Ingest(ctx, []models.CommentInput{input("c1", "p1", "bel post, modificato")})
	require.NoError(t, err)
	assert.Zero(t, res.Created)

	got, err := svc.Get("c1")
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.True(t, got.UserLikes)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, "bel post, modificato", got.Text)
}

func TestCommentService_ReingestHiddenIsNotReportedAsAutoHidden(t *testing.T) {
	f := newFixture(t)
	pub := &flaggedStub{}
	svc := NewCommentService(f.comments, f.settings, f.engine,
		WithFlaggedPublisher(pub), WithCommentClock(fixedNow))
	ctx := context.Background()

	spam := input("c1", "p1", "Vinci un premio gratis!")
	res, err := svc.Ingest(ctx, []models.CommentInput{spam})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AutoHidden)

	res, err = svc.Ingest(ctx, []models.CommentInput{spam})
	require.NoError(t, err)
	assert.Zero(t, res.AutoHidden)

	require.Equal(t, 2, pub.count())
	assert.True(t, pub.events[0].AutoHidden)
	assert.False(t, pub.events[1].AutoHidden)
}

func TestCommentService_IngestRunsWorkflowsWhenFlagged(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateRule(context.Background(), models.RuleInput{
		Name:      "Hide links",
		Condition: models.Condition{Type: models.ConditionHasLinks},
		Action:    models.Action{Type: models.ActionHide},
	})
	require.NoError(t, err)

	svc := NewCommentService(f.comments, f.settings, f.engine,
		WithFeatureFlags(featureflags.NewManager(featureflags.WorkflowsOnIngest+"=on")))

	res, err := svc.Ingest(context.Background(), []models.CommentInput{input("c1", "p1", "vedi https://x.co")})
	require.NoError(t, err)
	require.NotNil(t, res.Workflow)
	assert.Equal(t, 1, res.Workflow.Succeeded)

	got, err := svc.Get("c1")
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.Len(t, f.engine.Log().List(0), 1)
}

func TestCommentService_IngestSkipsWorkflowsByDefault(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateRule(context.Background(), models.RuleInput{
		Name:      "Hide links",
		Condition: models.Condition{Type: models.ConditionHasLinks},
		Action:    models.Action{Type: models.ActionHide},
	})
	require.NoError(t, err)
	svc := NewCommentService(f.comments, f.settings, f.engine)

	res, err := svc.Ingest(context.Background(), []models.CommentInput{input("c1", "p1", "vedi https://x.co")})
	require.NoError(t, err)
	assert.Nil(t, res.Workflow)
	assert.Zero(t, f.engine.Log().Len())
}

func TestCommentService_IngestCancelled(t *testing.T) {
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.settings, f.engine)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx, []models.CommentInput{input("c1", "p1", "ciao")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.comments.Len())
}

func TestCommentService_Remoderate(t *testing.T) {
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.settings, f.engine)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []models.CommentInput{input("c1", "p1", "prodotto pessimo, offerta bomba")})
	require.NoError(t, err)
	before, _ := svc.Get("c1")
	assert.False(t, before.Flags.IsSpam)

	next := models.DefaultSettings()
	next.SpamKeywords = append(next.SpamKeywords, "offerta bomba")
	_, err = f.settings.Replace(next)
	require.NoError(t, err)

	after, err := svc.Remoderate(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, after.Flags.IsSpam)
	assert.True(t, after.Hidden)

	relaxed := models.DefaultSettings()
	relaxed.Enabled = false
	_, err = f.settings.Replace(relaxed)
	require.NoError(t, err)

	n, err := svc.RemoderateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ := svc.Get("c1")
	assert.True(t, got.Hidden, "re-moderation never un-hides")

	_, err = svc.Remoderate(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCommentService_OperatorActions(t *testing.T) {
	f := newFixture(t)
	failing := workflow.SinkFunc(func(context.Context, string, models.ActionType) error {
		return errors.New("platform unavailable")
	})
	svc := NewCommentService(f.comments, f.settings, f.engine, WithActionSink(failing))
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []models.CommentInput{input("c1", "p1", "ciao")})
	require.NoError(t, err)

	_, err = svc.SetHidden(ctx, "c1", true)
	assert.ErrorIs(t, err, models.ErrActionFailed)
	got, _ := svc.Get("c1")
	assert.False(t, got.Hidden)

	_, err = svc.Delete(ctx, "c1")
	assert.ErrorIs(t, err, models.ErrActionFailed)
	assert.Equal(t, 1, f.comments.Len())

	ok := NewCommentService(f.comments, f.settings, f.engine)
	_, err = ok.SetHidden(ctx, "c1", true)
	require.NoError(t, err)
	restored, err := ok.SetHidden(ctx, "c1", false)
	require.NoError(t, err)
	assert.False(t, restored.Hidden)

	removed, err := ok.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", removed.ID)
	_, err = ok.Get("c1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCommentService_ListAndExplain(t *testing.T) {
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.settings, f.engine)
	_, err := svc.Ingest(context.Background(), []models.CommentInput{
		input("c1", "p1", "clicca qui per vincere"),
		input("c2", "p1", "ottimo"),
		input("c3", "p2", "link https://x.co"),
	})
	require.NoError(t, err)

	assert.Len(t, svc.List(ListFilter{}), 2)
	assert.Len(t, svc.List(ListFilter{IncludeHidden: true}), 3)
	assert.Len(t, svc.List(ListFilter{PostID: "p1", IncludeHidden: true}), 2)
	flagged := svc.List(ListFilter{FlaggedOnly: true})
	require.Len(t, flagged, 1)
	assert.Equal(t, "c3", flagged[0].ID)

	matches, err := svc.Explain("c1")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, models.CategorySpam, matches[0].Category)
	assert.Contains(t, matches[0].Terms, "clicca qui")
}
