package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"commentguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comment(id, post string) models.Comment {
	return models.Comment{ID: id, PostID: post, Text: "testo " + id, Sentiment: models.SentimentNeutral}
}

func TestCommentStore_UpsertAndGet(t *testing.T) {
	s := New()
	assert.True(t, s.Upsert(comment("c1", "p1")))
	assert.True(t, s.Upsert(comment("c2", "p1")))
	assert.True(t, s.Upsert(comment("c3", "p2")))

	got, err := s.Get("c2")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, 3, s.Len())

	updated := comment("c1", "p1")
	updated.Text = "modificato"
	assert.False(t, s.Upsert(updated))
	assert.Equal(t, []string{"c1", "c2", "c3"}, s.IDs())

	got, err = s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "modificato", got.Text)
}

func TestCommentStore_UnknownIDIsNotFound(t *testing.T) {
	s := New()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	changed, err := s.SetHidden("missing", true)
	assert.False(t, changed)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.Delete("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.Like("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, uint64(0), s.Version())
}

func TestCommentStore_SetHiddenAndLikeAreIdempotent(t *testing.T) {
	s := New()
	s.Upsert(comment("c1", "p1"))

	changed, err := s.SetHidden("c1", true)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.SetHidden("c1", true)
	require.NoError(t, err)
	assert.False(t, changed)

	for i := 0; i < 2; i++ {
		_, err = s.Like("c1")
		require.NoError(t, err)
	}
	got, _ := s.Get("c1")
	assert.True(t, got.Hidden)
	assert.True(t, got.UserLikes)
	assert.Equal(t, 1, got.LikeCount)
}

func TestCommentStore_DeleteRemovesFromIndexes(t *testing.T) {
	s := New()
	s.Upsert(comment("c1", "p1"))
	s.Upsert(comment("c2", "p1"))

	removed, err := s.Delete("c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", removed.ID)

	_, err = s.Get("c1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	forPost := s.AllForPost("p1")
	require.Len(t, forPost, 1)
	assert.Equal(t, "c2", forPost[0].ID)

	_, err = s.Delete("c1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCommentStore_MovingPostReindexes(t *testing.T) {
	s := New()
	s.Upsert(comment("c1", "p1"))
	s.Upsert(comment("c1", "p2"))

	assert.Empty(t, s.AllForPost("p1"))
	assert.Len(t, s.AllForPost("p2"), 1)
}

func TestCommentStore_UpdateRollsBackOnError(t *testing.T) {
	s := New()
	s.Upsert(comment("c1", "p1"))
	before := s.Version()

	boom := errors.New("remote down")
	_, change, err := s.Update("c1", func(c *models.Comment) (Change, error) {
		c.Hidden = true
		return Save, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, NoChange, change)

	got, _ := s.Get("c1")
	assert.False(t, got.Hidden)
	assert.Equal(t, before, s.Version())
}

func TestCommentStore_UpdateKeepsID(t *testing.T) {
	s := New()
	s.Upsert(comment("c1", "p1"))

	got, change, err := s.Update("c1", func(c *models.Comment) (Change, error) {
		c.ID = "other"
		c.Text = "nuovo"
		return Save, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Save, change)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, 1, s.Len())
}

func TestCommentStore_ListenerSeesCommits(t *testing.T) {
	var changes []string
	s := New(WithListener(func(change Change, c models.Comment) {
		changes = append(changes, change.String()+":"+c.ID)
	}))

	s.Upsert(comment("c1", "p1"))
	_, _ = s.SetHidden("c1", true)
	_, _ = s.SetHidden("c1", true)
	_, _ = s.Delete("c1")

	assert.Equal(t, []string{"save:c1", "save:c1", "remove:c1"}, changes)
	assert.Equal(t, uint64(3), s.Version())
}

func TestCommentStore_ConcurrentLikesOnOneID(t *testing.T) {
	s := New()
	s.Upsert(comment("c1", "p1"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Like("c1")
		}()
	}
	wg.Wait()

	got, _ := s.Get("c1")
	assert.Equal(t, 1, got.LikeCount)
}

func TestCommentStore_ConcurrentDistinctIDs(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			s.Upsert(comment(id, fmt.Sprintf("p%d", i%5)))
			_, _ = s.SetHidden(id, i%2 == 0)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
	hidden := 0
	for _, c := range s.All() {
		if c.Hidden {
			hidden++
		}
	}
	assert.Equal(t, 50, hidden)
	assert.Len(t, s.AllForPost("p0"), 20)
}

func TestCommentStore_UpsertMerge(t *testing.T) {
	s := New()
	keepHidden := func(prev, next models.Comment) models.Comment {
		next.Hidden = next.Hidden || prev.Hidden
		next.ID = "ignored"
		return next
	}

	assert.True(t, s.UpsertMerge(comment("c1", "p1"), keepHidden))
	_, err := s.SetHidden("c1", true)
	require.NoError(t, err)

	fresh := comment("c1", "p1")
	fresh.Text = "edited"
	assert.False(t, s.UpsertMerge(fresh, keepHidden))

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.Equal(t, "edited", got.Text)
	assert.Equal(t, 1, s.Len())
}
