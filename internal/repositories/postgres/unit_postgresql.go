package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type UnitPostgreSQL struct {
	helpers *SharedHelpers
}

func NewUnitPostgreSQL(db *gorm.DB) repositories.UnitRepository {
	return &UnitPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (u *UnitPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, units []*models.Unit) error {
	return u.helpers.conn(ctx, tx).Omit("Assignment").Create(&units).Error
}

func (u *UnitPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := u.helpers.conn(ctx, tx).First(&unit, id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (u *UnitPostgreSQL) GetByIDWithAssignment(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := u.helpers.conn(ctx, tx).Preload("Assignment").First(&unit, id).Error; err != nil {
		return nil, err
	}
	if unit.Assignment == nil {
		// assignment soft deleted underneath the unit
		return nil, gorm.ErrRecordNotFound
	}
	return &unit, nil
}

func (u *UnitPostgreSQL) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Unit, error) {
	var units []*models.Unit
	err := u.helpers.conn(ctx, tx).
		Where("assignment_id = ?", assignmentID).
		Order("number ASC").
		Find(&units).Error
	return units, err
}

// LockByID reads the unit with SELECT ... FOR UPDATE
func (u *UnitPostgreSQL) LockByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := forUpdate(u.helpers.conn(ctx, tx)).First(&unit, id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// LockByAssignment locks every unit of an assignment, ordered by number
func (u *UnitPostgreSQL) LockByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Unit, error) {
	var units []*models.Unit
	err := forUpdate(u.helpers.conn(ctx, tx)).
		Where("assignment_id = ?", assignmentID).
		Order("number ASC").
		Find(&units).Error
	return units, err
}

func (u *UnitPostgreSQL) Update(ctx context.Context, tx *gorm.DB, unit *models.Unit) error {
	return u.helpers.conn(ctx, tx).Omit("Assignment").Save(unit).Error
}

func (u *UnitPostgreSQL) SetActive(ctx context.Context, tx *gorm.DB, assignmentID, unitID uint) error {
	db := u.helpers.conn(ctx, tx)

	if err := db.Model(&models.Unit{}).
		Where("assignment_id = ? AND id <> ?", assignmentID, unitID).
		Update("is_active", false).Error; err != nil {
		return err
	}

	result := db.Model(&models.Unit{}).
		Where("assignment_id = ? AND id = ?", assignmentID, unitID).
		Update("is_active", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
