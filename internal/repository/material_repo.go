package repository

import (
	"context"

	"forgeline/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaterialRepository interface {
	CreateLot(ctx context.Context, lot *model.MaterialLot) error
	FindLotByID(ctx context.Context, id uuid.UUID) (*model.MaterialLot, error)
	ListLots(ctx context.Context, page, limit int, status string) ([]model.MaterialLot, int64, error)
	SaveLot(ctx context.Context, lot *model.MaterialLot, expectedVersion int) error
	CreateIssue(ctx context.Context, issue *model.MaterialIssue) error
	ListIssues(ctx context.Context, lotID uuid.UUID) ([]model.MaterialIssue, error)
	SumIssues(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error)
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) CreateLot(ctx context.Context, lot *model.MaterialLot) error {
	return GetDB(ctx, r.db).Create(lot).Error
}

func (r *materialRepository) FindLotByID(ctx context.Context, id uuid.UUID) (*model.MaterialLot, error) {
	var lot model.MaterialLot
	if err := GetDB(ctx, r.db).First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *materialRepository) ListLots(ctx context.Context, page, limit int, status string) ([]model.MaterialLot, int64, error) {
	var lots []model.MaterialLot
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MaterialLot{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&lots).Error; err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

func (r *materialRepository) SaveLot(ctx context.Context, lot *model.MaterialLot, expectedVersion int) error {
	return SaveVersioned(GetDB(ctx, r.db), lot, lot.ID, expectedVersion)
}

func (r *materialRepository) CreateIssue(ctx context.Context, issue *model.MaterialIssue) error {
	return GetDB(ctx, r.db).Create(issue).Error
}

func (r *materialRepository) ListIssues(ctx context.Context, lotID uuid.UUID) ([]model.MaterialIssue, error) {
	var issues []model.MaterialIssue
	if err := GetDB(ctx, r.db).
		Where("material_lot_id = ?", lotID).
		Order("created_at ASC").
		Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

// SumIssues totals everything issued from a lot. Computed inside the caller's
// transaction so concurrent over-issue cannot slip through.
func (r *materialRepository) SumIssues(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := GetDB(ctx, r.db).Model(&model.MaterialIssue{}).
		Where("material_lot_id = ?", lotID).
		Select("SUM(qty)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}
