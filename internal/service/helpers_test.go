package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"commentguard/internal/models"
	"commentguard/internal/moderation"
	"commentguard/internal/store"
	"commentguard/internal/workflow"

	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// flaggedStub records published flagged events.
type flaggedStub struct {
	mu     sync.Mutex
	events []moderation.FlaggedEvent
	err    error
}

func (s *flaggedStub) PublishFlagged(_ context.Context, ev moderation.FlaggedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *flaggedStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fixture struct {
	comments *store.CommentStore
	settings *moderation.SettingsStore
	engine   *workflow.Engine
}

func newFixture(t *testing.T, engineOpts ...workflow.Option) fixture {
	t.Helper()
	settings, err := moderation.NewSettingsStore(models.DefaultSettings())
	require.NoError(t, err)
	comments := store.New()
	opts := append([]workflow.Option{workflow.WithClock(fixedNow)}, engineOpts...)
	return fixture{
		comments: comments,
		settings: settings,
		engine:   workflow.NewEngine(comments, opts...),
	}
}

func input(id, post, text string) models.CommentInput {
	return models.CommentInput{ID: id, PostID: post, AuthorID: "u-" + id, AuthorName: "Utente " + id, Text: text, CreatedAt: fixedTime}
}
