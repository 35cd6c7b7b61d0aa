package repository

import (
	"context"
	"errors"

	"commentguard/internal/models"
	"commentguard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsRowID = 1

// SettingsRepository persists the moderation settings.
type SettingsRepository interface {
	// Get returns nil when nothing has been saved yet.
	Get(ctx context.Context) (*models.ModerationSettings, error)
	Save(ctx context.Context, settings models.ModerationSettings) error
}

type settingsRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db, log: observability.NewRepoLogger("settings_records")}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.ModerationSettings, error) {
	var rec models.SettingsRecord
	err := r.db.WithContext(ctx).First(&rec, settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.LogError(ctx, err, "get")
		return nil, err
	}
	return &rec.Settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings models.ModerationSettings) error {
	rec := models.SettingsRecord{ID: settingsRowID, Settings: settings}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		r.log.LogError(ctx, err, "save")
		return err
	}
	r.log.LogUpsert(ctx, map[string]any{"id": rec.ID})
	return nil
}
