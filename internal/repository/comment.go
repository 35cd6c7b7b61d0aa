// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"commentguard/internal/models"
	"commentguard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository persists comments.
type CommentRepository interface {
	Upsert(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Comment, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Upsert(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(comment).Error
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return err
	}
	r.log.LogUpsert(ctx, map[string]any{"id": comment.ID})
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id).Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}

func (r *commentRepository) List(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&comments).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	r.log.LogRead(ctx, map[string]any{"count": len(comments)})
	return comments, nil
}
