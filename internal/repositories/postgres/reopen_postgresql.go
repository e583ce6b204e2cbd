package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type ReopenRequestPostgreSQL struct {
	helpers *SharedHelpers
}

func NewReopenRequestPostgreSQL(db *gorm.DB) repositories.ReopenRequestRepository {
	return &ReopenRequestPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *ReopenRequestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, request *models.ReopenRequest) error {
	return r.helpers.conn(ctx, tx).Omit("Unit").Create(request).Error
}

func (r *ReopenRequestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ReopenRequest, error) {
	var request models.ReopenRequest
	if err := r.helpers.conn(ctx, tx).Preload("Unit").First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *ReopenRequestPostgreSQL) LockByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ReopenRequest, error) {
	var request models.ReopenRequest
	if err := forUpdate(r.helpers.conn(ctx, tx)).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *ReopenRequestPostgreSQL) Update(ctx context.Context, tx *gorm.DB, request *models.ReopenRequest) error {
	return r.helpers.conn(ctx, tx).Omit("Unit").Save(request).Error
}

func (r *ReopenRequestPostgreSQL) HasPending(ctx context.Context, tx *gorm.DB, unitID uint) (bool, error) {
	var count int64
	err := r.helpers.conn(ctx, tx).
		Model(&models.ReopenRequest{}).
		Where("unit_id = ? AND status = ?", unitID, models.ReopenPending).
		Count(&count).Error
	return count > 0, err
}

func (r *ReopenRequestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ReopenFilters) ([]*models.ReopenRequest, int64, error) {
	query := r.helpers.conn(ctx, tx).Model(&models.ReopenRequest{})

	if filters.UnitID != nil {
		query = query.Where("unit_id = ?", *filters.UnitID)
	}
	if filters.RequestedBy != nil {
		query = query.Where("requested_by = ?", *filters.RequestedBy)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []*models.ReopenRequest
	err := paginate(query, filters.Limit, filters.Offset).
		Preload("Unit").
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
