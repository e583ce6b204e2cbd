package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type AuditPostgreSQL struct {
	helpers *SharedHelpers
}

func NewAuditPostgreSQL(db *gorm.DB) repositories.AuditRepository {
	return &AuditPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (a *AuditPostgreSQL) Create(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error {
	return a.helpers.conn(ctx, tx).Create(entry).Error
}

func (a *AuditPostgreSQL) ListByActor(ctx context.Context, tx *gorm.DB, actorID uint, limit int) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := paginate(a.helpers.conn(ctx, tx).Where("actor_id = ?", actorID), limit, 0).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}
