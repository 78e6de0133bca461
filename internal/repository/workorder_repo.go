package repository

import (
	"context"

	"forgeline/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.WorkOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	List(ctx context.Context, page, limit int, status string) ([]model.WorkOrder, int64, error)
	Save(ctx context.Context, wo *model.WorkOrder, expectedVersion int) error
	CreateTransition(ctx context.Context, tr *model.StageTransition) error
	ListTransitions(ctx context.Context, workOrderID uuid.UUID) ([]model.StageTransition, error)
}

type workOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, wo *model.WorkOrder) error {
	return GetDB(ctx, r.db).Create(wo).Error
}

func (r *workOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	if err := GetDB(ctx, r.db).First(&wo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *workOrderRepository) List(ctx context.Context, page, limit int, status string) ([]model.WorkOrder, int64, error) {
	var orders []model.WorkOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WorkOrder{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *workOrderRepository) Save(ctx context.Context, wo *model.WorkOrder, expectedVersion int) error {
	return SaveVersioned(GetDB(ctx, r.db), wo, wo.ID, expectedVersion)
}

func (r *workOrderRepository) CreateTransition(ctx context.Context, tr *model.StageTransition) error {
	return GetDB(ctx, r.db).Create(tr).Error
}

func (r *workOrderRepository) ListTransitions(ctx context.Context, workOrderID uuid.UUID) ([]model.StageTransition, error) {
	var transitions []model.StageTransition
	if err := GetDB(ctx, r.db).
		Where("work_order_id = ?", workOrderID).
		Order("created_at ASC").
		Find(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}
