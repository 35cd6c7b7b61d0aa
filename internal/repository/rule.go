package repository

import (
	"context"

	"commentguard/internal/models"
	"commentguard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RuleRepository persists workflow rules.
type RuleRepository interface {
	Save(ctx context.Context, rule *models.WorkflowRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.WorkflowRule, error)
}

type ruleRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRuleRepository creates a new RuleRepository
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db, log: observability.NewRepoLogger("workflow_rules")}
}

func (r *ruleRepository) Save(ctx context.Context, rule *models.WorkflowRule) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(rule).Error
	if err != nil {
		r.log.LogError(ctx, err, "save")
		return err
	}
	r.log.LogUpsert(ctx, map[string]any{"id": rule.ID, "run_count": rule.RunCount})
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.WorkflowRule{}, "id = ?", id).Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}

func (r *ruleRepository) List(ctx context.Context) ([]models.WorkflowRule, error) {
	var rules []models.WorkflowRule
	if err := r.db.WithContext(ctx).Order("position asc").Find(&rules).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	return rules, nil
}
