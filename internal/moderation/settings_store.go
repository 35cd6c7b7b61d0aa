package moderation

import (
	"sync/atomic"

	"commentguard/internal/classifier"
	"commentguard/internal/models"
)

// Snapshot pairs a settings value with the lexicon compiled from it. A
// Snapshot is never modified after publication.
type Snapshot struct {
	Settings models.ModerationSettings
	Lexicon  *classifier.Lexicon
	Version  uint64
}

// SettingsStore holds the current moderation settings. Readers take one
// Snapshot per evaluation and never observe a partial update.
type SettingsStore struct {
	current atomic.Pointer[Snapshot]
}

// NewSettingsStore validates and publishes the initial settings.
func NewSettingsStore(initial models.ModerationSettings) (*SettingsStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	s := &SettingsStore{}
	s.current.Store(compile(initial, 1))
	return s, nil
}

// Snapshot returns the current snapshot.
func (s *SettingsStore) Snapshot() *Snapshot {
	return s.current.Load()
}

// Settings returns a copy of the current settings.
func (s *SettingsStore) Settings() models.ModerationSettings {
	return s.current.Load().Settings.Clone()
}

// Replace swaps in a whole new settings object. Invalid settings leave the
// current snapshot untouched.
func (s *SettingsStore) Replace(next models.ModerationSettings) (*Snapshot, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}
	for {
		prev := s.current.Load()
		snap := compile(next, prev.Version+1)
		if s.current.CompareAndSwap(prev, snap) {
			return snap, nil
		}
	}
}

func compile(settings models.ModerationSettings, version uint64) *Snapshot {
	owned := settings.Clone()
	return &Snapshot{
		Settings: owned,
		Lexicon:  classifier.NewLexicon(owned),
		Version:  version,
	}
}
