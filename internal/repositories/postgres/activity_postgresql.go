package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type ActivityPostgreSQL struct {
	helpers *SharedHelpers
}

func NewActivityPostgreSQL(db *gorm.DB) repositories.ActivityRepository {
	return &ActivityPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (a *ActivityPostgreSQL) Create(ctx context.Context, tx *gorm.DB, activity *models.Activity) error {
	return a.helpers.conn(ctx, tx).Create(activity).Error
}

func (a *ActivityPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := a.helpers.conn(ctx, tx).First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (a *ActivityPostgreSQL) Update(ctx context.Context, tx *gorm.DB, activity *models.Activity) error {
	return a.helpers.conn(ctx, tx).Save(activity).Error
}

func (a *ActivityPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := a.helpers.conn(ctx, tx).Delete(&models.Activity{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *ActivityPostgreSQL) ListByUnit(ctx context.Context, tx *gorm.DB, unitID uint, filters repositories.ActivityFilters) ([]*models.Activity, error) {
	query := a.helpers.conn(ctx, tx).Where("unit_id = ?", unitID)
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.EnabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var activities []*models.Activity
	err := query.Order("category DESC, id ASC").Find(&activities).Error
	return activities, err
}
