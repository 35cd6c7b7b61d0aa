package repository

import (
	"context"

	"commentguard/internal/models"
	"commentguard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExecutionRepository persists the workflow audit trail.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *models.WorkflowExecution) error
	ListRecent(ctx context.Context, limit int) ([]models.WorkflowExecution, error)
}

type executionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewExecutionRepository creates a new ExecutionRepository
func NewExecutionRepository(db *gorm.DB) ExecutionRepository {
	return &executionRepository{db: db, log: observability.NewRepoLogger("workflow_executions")}
}

func (r *executionRepository) Create(ctx context.Context, exec *models.WorkflowExecution) error {
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	return nil
}

// ListRecent returns up to limit executions, most recent first. Equal
// timestamps fall back to id order.
func (r *executionRepository) ListRecent(ctx context.Context, limit int) ([]models.WorkflowExecution, error) {
	var execs []models.WorkflowExecution
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&execs).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	return execs, nil
}
