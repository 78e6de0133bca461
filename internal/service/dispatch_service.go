package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forgeline/internal/model"
	"forgeline/internal/repository"
	"forgeline/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type AllocateDispatchRequest struct {
	BatchID     string `json:"batch_id" binding:"required"`
	Qty         int    `json:"qty" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	CartonNo    string `json:"carton_no"`
	// ExternalRef is the idempotency key, typically the delivery note line
	// reference from the shipping system. Replaying the same reference with the
	// same batch and quantity returns the original allocation.
	ExternalRef string `json:"external_ref" binding:"required"`
}

type AllocationResponse struct {
	ID             string    `json:"id"`
	DispatchNumber string    `json:"dispatch_number"`
	ExternalRef    string    `json:"external_ref"`
	BatchID        string    `json:"batch_id"`
	WorkOrderID    string    `json:"work_order_id"`
	Qty            int       `json:"qty"`
	Destination    string    `json:"destination"`
	CartonNo       string    `json:"carton_no"`
	CustomerName   string    `json:"customer_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// --- Interface ---

// DispatchService reconciles outbound shipments against QC-approved, packed
// quantity. Nothing leaves the factory that QC has not released.
type DispatchService interface {
	Allocate(ctx context.Context, userID string, req AllocateDispatchRequest) (AllocationResponse, error)
	ListAllocations(ctx context.Context, workOrderID string) ([]AllocationResponse, error)
}

type dispatchService struct {
	db       *gorm.DB
	seq      SequenceService
	notifier Notifier
}

func NewDispatchService(db *gorm.DB, seq SequenceService, notifier Notifier) DispatchService {
	return &dispatchService{db: db, seq: seq, notifier: notifier}
}

// --- Implementation ---

func (s *dispatchService) Allocate(ctx context.Context, userID string, req AllocateDispatchRequest) (AllocationResponse, error) {
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return AllocationResponse{}, apperr.Validation("", "invalid batch id: %v", err)
	}
	if req.Qty <= 0 {
		return AllocationResponse{}, apperr.Validation(apperr.CodeNegativeQuantity, "dispatch quantity must be positive, got %d", req.Qty)
	}

	var allocation model.DispatchAllocation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)

		// Idempotency check first: an exact replay returns the original row, a
		// reference reused with different content is a hard conflict.
		var existing model.DispatchAllocation
		findErr := tx.Where("external_ref = ?", req.ExternalRef).First(&existing).Error
		if findErr == nil {
			if existing.BatchID == batchID && existing.Qty == req.Qty {
				allocation = existing
				return nil
			}
			return apperr.Conflict(apperr.CodeDuplicateReference,
				"external ref %q already allocated %d pcs of a different batch", req.ExternalRef, existing.Qty)
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check external ref: %w", findErr)
		}

		var batch model.ProductionBatch
		if findErr := tx.First(&batch, "id = ?", batchID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("production batch", req.BatchID)
			}
			return fmt.Errorf("failed to load batch: %w", findErr)
		}
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", batch.WorkOrderID).Error; findErr != nil {
			return fmt.Errorf("failed to load work order: %w", findErr)
		}

		if !wo.DispatchAllowed {
			return apperr.Precondition(apperr.CodeDispatchNotAllowed, []string{
				fmt.Sprintf("dispatch is blocked on work order %s", wo.WONumber),
			})
		}

		var blockers []string
		if req.Qty > batch.QtyQCApproved-batch.QtyDispatched {
			blockers = append(blockers, fmt.Sprintf("qty %d exceeds undispatched QC-approved %d on batch %s",
				req.Qty, batch.QtyQCApproved-batch.QtyDispatched, batch.BatchNumber))
		}
		if req.Qty > batch.QtyPacked-batch.QtyDispatched {
			blockers = append(blockers, fmt.Sprintf("qty %d exceeds undispatched packed %d on batch %s",
				req.Qty, batch.QtyPacked-batch.QtyDispatched, batch.BatchNumber))
		}
		if len(blockers) > 0 {
			return apperr.Precondition(apperr.CodeExceedsApproved, blockers)
		}

		dispatchNumber, seqErr := s.seq.Next(txCtx, SeqDispatch)
		if seqErr != nil {
			return seqErr
		}

		allocation = model.DispatchAllocation{
			DispatchNumber: dispatchNumber,
			ExternalRef:    req.ExternalRef,
			BatchID:        batchID,
			WorkOrderID:    wo.ID,
			Qty:            req.Qty,
			Destination:    req.Destination,
			CartonNo:       req.CartonNo,
			CustomerName:   wo.CustomerName,
			CreatedBy:      parseUserID(userID),
		}
		if createErr := tx.Create(&allocation).Error; createErr != nil {
			return fmt.Errorf("failed to create allocation: %w", createErr)
		}

		expected := batch.Version
		batch.Version++
		batch.QtyDispatched += req.Qty
		batch.LastActivityAt = time.Now()
		if saveErr := repository.SaveVersioned(tx, &batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		woExpected := wo.Version
		wo.Version++
		wo.QtyDispatched += req.Qty
		if violations := wo.QuantityChainViolations(); len(violations) > 0 {
			return apperr.Precondition(apperr.CodeExceedsApproved, violations)
		}
		if saveErr := repository.SaveVersioned(tx, &wo, wo.ID, woExpected); saveErr != nil {
			return saveErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"dispatch_number": dispatchNumber,
			"external_ref":    req.ExternalRef,
			"batch_number":    batch.BatchNumber,
			"qty":             req.Qty,
			"destination":     req.Destination,
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionAllocateDispatch,
			EntityID:   allocation.ID.String(),
			EntityName: dispatchNumber,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return AllocationResponse{}, err
	}

	s.notifier.Notify(ctx, "Dispatch allocated",
		fmt.Sprintf("%d pcs allocated to %s on %s", allocation.Qty, allocation.Destination, allocation.DispatchNumber),
		allocation.DispatchNumber)

	return toAllocationResponse(allocation), nil
}

func (s *dispatchService) ListAllocations(ctx context.Context, workOrderID string) ([]AllocationResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return nil, apperr.Validation("", "invalid work order id: %v", err)
	}
	var allocations []model.DispatchAllocation
	if err := s.db.WithContext(ctx).
		Where("work_order_id = ?", woID).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	res := make([]AllocationResponse, 0, len(allocations))
	for _, a := range allocations {
		res = append(res, toAllocationResponse(a))
	}
	return res, nil
}

// --- Helpers ---

func toAllocationResponse(a model.DispatchAllocation) AllocationResponse {
	return AllocationResponse{
		ID:             a.ID.String(),
		DispatchNumber: a.DispatchNumber,
		ExternalRef:    a.ExternalRef,
		BatchID:        a.BatchID.String(),
		WorkOrderID:    a.WorkOrderID.String(),
		Qty:            a.Qty,
		Destination:    a.Destination,
		CartonNo:       a.CartonNo,
		CustomerName:   a.CustomerName,
		CreatedAt:      a.CreatedAt,
	}
}
