// Package store holds the authoritative in-memory set of comments.
package store

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"commentguard/internal/models"
)

const lockStripes = 64

// Change says what an Update callback wants committed.
type Change int

const (
	NoChange Change = iota
	Save
	Remove
)

func (c Change) String() string {
	switch c {
	case Save:
		return "save"
	case Remove:
		return "remove"
	default:
		return "none"
	}
}

// Listener observes every committed change. It runs while the comment's lock
// is held, so calls for the same id arrive in commit order.
type Listener func(change Change, c models.Comment)

type record struct {
	comment models.Comment
	seq     uint64
}

// CommentStore is an id-indexed comment collection. Mutations of one id are
// serialized; mutations of distinct ids proceed concurrently.
type CommentStore struct {
	mu     sync.RWMutex
	byID   map[string]*record
	byPost map[string]map[string]struct{}
	seq    uint64

	stripes   [lockStripes]sync.Mutex
	version   atomic.Uint64
	listeners []Listener
}

// Option configures a CommentStore.
type Option func(*CommentStore)

// WithListener registers l for committed changes.
func WithListener(l Listener) Option {
	return func(s *CommentStore) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *CommentStore {
	s := &CommentStore{
		byID:   make(map[string]*record),
		byPost: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CommentStore) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.stripes[h.Sum32()%lockStripes]
}

// Get returns a copy of the comment with id.
func (s *CommentStore) Get(id string) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return models.Comment{}, models.NewNotFoundError("Comment", id)
	}
	return r.comment, nil
}

// Upsert inserts c or replaces the stored comment with the same id. A
// replaced comment keeps its position. It reports whether c was new.
func (s *CommentStore) Upsert(c models.Comment) bool {
	lock := s.lockFor(c.ID)
	lock.Lock()
	defer lock.Unlock()

	created := s.put(c)
	s.committed(Save, c)
	return created
}

// UpsertMerge is Upsert where merge decides the written value when a comment
// with the same id is already stored. It runs under that id's lock.
func (s *CommentStore) UpsertMerge(c models.Comment, merge func(prev, next models.Comment) models.Comment) bool {
	lock := s.lockFor(c.ID)
	lock.Lock()
	defer lock.Unlock()

	if prev, err := s.Get(c.ID); err == nil && merge != nil {
		c = merge(prev, c)
		c.ID = prev.ID
	}
	created := s.put(c)
	s.committed(Save, c)
	return created
}

// Update runs fn on a copy of the comment with id while holding that id's
// lock, then commits what fn asks for. The comment id cannot be changed. When
// fn fails nothing is committed and its error is returned.
func (s *CommentStore) Update(id string, fn func(c *models.Comment) (Change, error)) (models.Comment, Change, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Get(id)
	if err != nil {
		return models.Comment{}, NoChange, err
	}
	working := current
	change, err := fn(&working)
	if err != nil {
		return current, NoChange, err
	}
	working.ID = id

	switch change {
	case Save:
		s.put(working)
	case Remove:
		s.remove(id)
	default:
		return current, NoChange, nil
	}
	s.committed(change, working)
	return working, change, nil
}

// SetHidden sets the hidden state of id and reports whether it changed.
func (s *CommentStore) SetHidden(id string, hidden bool) (bool, error) {
	_, change, err := s.Update(id, func(c *models.Comment) (Change, error) {
		if c.Hidden == hidden {
			return NoChange, nil
		}
		c.Hidden = hidden
		return Save, nil
	})
	return change == Save, err
}

// Like marks id as liked by the page, adding one like the first time only.
func (s *CommentStore) Like(id string) (bool, error) {
	_, change, err := s.Update(id, func(c *models.Comment) (Change, error) {
		if c.UserLikes {
			return NoChange, nil
		}
		c.UserLikes = true
		c.LikeCount++
		return Save, nil
	})
	return change == Save, err
}

// Delete removes id permanently and returns the removed comment.
func (s *CommentStore) Delete(id string) (models.Comment, error) {
	c, _, err := s.Update(id, func(*models.Comment) (Change, error) {
		return Remove, nil
	})
	return c, err
}

// All returns every comment in insertion order.
func (s *CommentStore) All() []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]*record, 0, len(s.byID))
	for _, r := range s.byID {
		recs = append(recs, r)
	}
	return sorted(recs)
}

// AllForPost returns the comments of postID in insertion order.
func (s *CommentStore) AllForPost(postID string) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPost[postID]
	recs := make([]*record, 0, len(ids))
	for id := range ids {
		recs = append(recs, s.byID[id])
	}
	return sorted(recs)
}

// IDs returns every comment id in insertion order.
func (s *CommentStore) IDs() []string {
	all := s.All()
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	return ids
}

// Len returns the number of stored comments.
func (s *CommentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Version increases on every committed change.
func (s *CommentStore) Version() uint64 {
	return s.version.Load()
}

func (s *CommentStore) put(c models.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.byID[c.ID]; ok {
		if r.comment.PostID != c.PostID {
			s.unindex(r.comment.PostID, c.ID)
			s.index(c.PostID, c.ID)
		}
		r.comment = c
		return false
	}
	s.seq++
	s.byID[c.ID] = &record{comment: c, seq: s.seq}
	s.index(c.PostID, c.ID)
	return true
}

func (s *CommentStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.byID[id]; ok {
		s.unindex(r.comment.PostID, id)
		delete(s.byID, id)
	}
}

func (s *CommentStore) index(postID, id string) {
	ids, ok := s.byPost[postID]
	if !ok {
		ids = make(map[string]struct{})
		s.byPost[postID] = ids
	}
	ids[id] = struct{}{}
}

func (s *CommentStore) unindex(postID, id string) {
	ids := s.byPost[postID]
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.byPost, postID)
	}
}

func (s *CommentStore) committed(change Change, c models.Comment) {
	s.version.Add(1)
	for _, l := range s.listeners {
		l(change, c)
	}
}

func sorted(recs []*record) []models.Comment {
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]models.Comment, len(recs))
	for i, r := range recs {
		out[i] = r.comment
	}
	return out
}
