package service

import (
	"context"
	"log/slog"
	"time"

	"commentguard/internal/middleware"
	"commentguard/internal/models"
	"commentguard/internal/moderation"
	"commentguard/internal/observability"
)

// SettingsPublisher announces settings replacements.
type SettingsPublisher interface {
	PublishSettingsUpdated(ctx context.Context, version uint64, at time.Time) error
}

// SettingsService reads and replaces the moderation settings.
type SettingsService struct {
	settings    *moderation.SettingsStore
	persistence *Persistence
	publisher   SettingsPublisher
	now         func() time.Time
	log         *observability.ServiceLogger
}

// NewSettingsService returns a new SettingsService. persistence and
// publisher may be nil.
func NewSettingsService(settings *moderation.SettingsStore, persistence *Persistence, publisher SettingsPublisher) *SettingsService {
	return &SettingsService{
		settings:    settings,
		persistence: persistence,
		publisher:   publisher,
		now:         time.Now,
		log:         observability.NewServiceLogger("settings"),
	}
}

// Get returns a copy of the current settings.
func (s *SettingsService) Get() models.ModerationSettings {
	return s.settings.Settings()
}

// Version returns the current settings version.
func (s *SettingsService) Version() uint64 {
	return s.settings.Snapshot().Version
}

// Replace validates next and makes it the current settings. Comments already
// classified keep their annotations until they are re-moderated.
func (s *SettingsService) Replace(ctx context.Context, next models.ModerationSettings) (models.ModerationSettings, error) {
	snap, err := s.settings.Replace(next)
	if err != nil {
		return models.ModerationSettings{}, err
	}
	if err := s.persistence.saveSettings(ctx, snap.Settings); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to persist settings", slog.String("error", err.Error()))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSettingsUpdated(ctx, snap.Version, s.now()); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish settings update", slog.String("error", err.Error()))
		}
	}
	s.log.LogCall(ctx, "Replace", map[string]any{"version": snap.Version, "enabled": snap.Settings.Enabled})
	return snap.Settings.Clone(), nil
}
