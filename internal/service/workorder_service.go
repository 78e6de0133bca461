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

type SalesOrderLineInput struct {
	ItemCode            string `json:"item_code" binding:"required"`
	ItemName            string `json:"item_name"`
	MaterialSpec        string `json:"material_spec"`
	Qty                 int    `json:"qty" binding:"required"`
	AuthorizedOverage   int    `json:"authorized_overage"`
	AuthorizedShortfall int    `json:"authorized_shortfall"`
}

type CreateSalesOrderRequest struct {
	CustomerName string                `json:"customer_name" binding:"required"`
	Lines        []SalesOrderLineInput `json:"lines" binding:"required,min=1,dive"`
}

type TransitionRequest struct {
	WorkOrderID string `json:"work_order_id" binding:"required"`
	ToStatus    string `json:"to_status" binding:"required"`
	// Override skips blocker checks; a reason is then mandatory and the
	// transition is flagged in the audit trail.
	Override bool   `json:"override"`
	Reason   string `json:"reason"`
}

type WorkOrderResponse struct {
	ID                 string `json:"id"`
	WONumber           string `json:"wo_number"`
	CustomerName       string `json:"customer_name"`
	ItemCode           string `json:"item_code"`
	ItemName           string `json:"item_name"`
	MaterialSpec       string `json:"material_spec"`
	QtyOrdered         int    `json:"qty_ordered"`
	Status             string `json:"status"`
	CurrentStage       string `json:"current_stage"`
	QtyProduced        int    `json:"qty_produced"`
	QtyRejected        int    `json:"qty_rejected"`
	QtyQCApproved      int    `json:"qty_qc_approved"`
	QtyPacked          int    `json:"qty_packed"`
	QtyDispatched      int    `json:"qty_dispatched"`
	QtyExternalWIP     int    `json:"qty_external_wip"`
	ProductionComplete bool   `json:"production_complete"`
	ShortClosed        bool   `json:"short_closed"`
	DispatchAllowed    bool   `json:"dispatch_allowed"`
}

// ProgressResponse is a read-only roll-up for dashboards: the order's counters
// plus per-batch state, computed fresh on every call.
type ProgressResponse struct {
	WorkOrder    WorkOrderResponse `json:"work_order"`
	Batches      []BatchResponse   `json:"batches"`
	PctProduced  float64           `json:"pct_produced"`
	PctPacked    float64           `json:"pct_packed"`
	PctDispatch  float64           `json:"pct_dispatched"`
	OpenExternal int               `json:"open_external"`
}

// --- Interface ---

// WorkOrderService owns the order lifecycle: intake from sales orders, the
// status state machine with its gates, short-closing and progress reporting.
type WorkOrderService interface {
	CreateSalesOrder(ctx context.Context, userID string, req CreateSalesOrderRequest) (model.SalesOrder, error)
	GetSalesOrder(ctx context.Context, id string) (model.SalesOrder, error)
	ListSalesOrders(ctx context.Context, page, limit int) ([]model.SalesOrder, int64, error)
	// ApproveLine converts one sales order line into a work order. A line can
	// be approved exactly once.
	ApproveLine(ctx context.Context, userID string, lineID string) (WorkOrderResponse, error)
	Transition(ctx context.Context, userID string, req TransitionRequest) (WorkOrderResponse, error)
	// ShortClose completes an order below its ordered quantity with an
	// attributed reason, releasing what is packed for dispatch.
	ShortClose(ctx context.Context, userID string, workOrderID string, reason string) (WorkOrderResponse, error)
	Progress(ctx context.Context, workOrderID string) (ProgressResponse, error)
	Get(ctx context.Context, workOrderID string) (WorkOrderResponse, error)
	List(ctx context.Context, page, limit int, status string) ([]WorkOrderResponse, int64, error)
	ListTransitions(ctx context.Context, workOrderID string) ([]model.StageTransition, error)
}

type workOrderService struct {
	db       *gorm.DB
	quality  QualityService
	seq      SequenceService
	notifier Notifier
}

func NewWorkOrderService(db *gorm.DB, quality QualityService, seq SequenceService, notifier Notifier) WorkOrderService {
	return &workOrderService{db: db, quality: quality, seq: seq, notifier: notifier}
}

// statusNext maps each status to its single forward successor.
var statusNext = map[string]string{
	model.WorkOrderStatusPending:    model.WorkOrderStatusInProgress,
	model.WorkOrderStatusInProgress: model.WorkOrderStatusQC,
	model.WorkOrderStatusQC:         model.WorkOrderStatusPacking,
	model.WorkOrderStatusPacking:    model.WorkOrderStatusCompleted,
	model.WorkOrderStatusCompleted:  model.WorkOrderStatusShipped,
}

// --- Implementation ---

func (s *workOrderService) CreateSalesOrder(ctx context.Context, userID string, req CreateSalesOrderRequest) (model.SalesOrder, error) {
	for i, line := range req.Lines {
		if line.Qty <= 0 {
			return model.SalesOrder{}, apperr.Validation(apperr.CodeNegativeQuantity, "line %d: quantity must be positive, got %d", i+1, line.Qty)
		}
		if line.AuthorizedOverage < 0 || line.AuthorizedShortfall < 0 {
			return model.SalesOrder{}, apperr.Validation(apperr.CodeNegativeQuantity, "line %d: overage/shortfall must be non-negative", i+1)
		}
	}

	order := model.SalesOrder{
		CustomerName: req.CustomerName,
		Status:       model.SalesOrderStatusOpen,
	}
	for _, line := range req.Lines {
		order.Lines = append(order.Lines, model.SalesOrderLine{
			ItemCode:            line.ItemCode,
			ItemName:            line.ItemName,
			MaterialSpec:        line.MaterialSpec,
			Qty:                 line.Qty,
			AuthorizedOverage:   line.AuthorizedOverage,
			AuthorizedShortfall: line.AuthorizedShortfall,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)
		soNumber, seqErr := s.seq.Next(txCtx, SeqSalesOrder)
		if seqErr != nil {
			return seqErr
		}
		order.SONumber = soNumber

		if createErr := tx.Create(&order).Error; createErr != nil {
			return fmt.Errorf("failed to create sales order: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"so_number": soNumber,
			"customer":  req.CustomerName,
			"lines":     len(req.Lines),
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateSalesOrder,
			EntityID:   order.ID.String(),
			EntityName: soNumber,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return model.SalesOrder{}, err
	}
	return order, nil
}

func (s *workOrderService) GetSalesOrder(ctx context.Context, id string) (model.SalesOrder, error) {
	soID, err := uuid.Parse(id)
	if err != nil {
		return model.SalesOrder{}, apperr.Validation("", "invalid sales order id: %v", err)
	}
	var order model.SalesOrder
	if err := s.db.WithContext(ctx).Preload("Lines").First(&order, "id = ?", soID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.SalesOrder{}, apperr.NotFound("sales order", id)
		}
		return model.SalesOrder{}, err
	}
	return order, nil
}

func (s *workOrderService) ListSalesOrders(ctx context.Context, page, limit int) ([]model.SalesOrder, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var orders []model.SalesOrder
	var total int64
	db := s.db.WithContext(ctx).Model(&model.SalesOrder{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Lines").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *workOrderService) ApproveLine(ctx context.Context, userID string, lineID string) (WorkOrderResponse, error) {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return WorkOrderResponse{}, apperr.Validation("", "invalid sales order line id: %v", err)
	}

	var wo model.WorkOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)

		var line model.SalesOrderLine
		if findErr := tx.First(&line, "id = ?", id).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("sales order line", lineID)
			}
			return fmt.Errorf("failed to load line: %w", findErr)
		}
		if line.Approved {
			return apperr.Conflict(apperr.CodeDuplicateReference, "sales order line %s is already approved", lineID)
		}

		var order model.SalesOrder
		if findErr := tx.First(&order, "id = ?", line.SalesOrderID).Error; findErr != nil {
			return fmt.Errorf("failed to load sales order: %w", findErr)
		}

		woNumber, seqErr := s.seq.Next(txCtx, SeqWorkOrder)
		if seqErr != nil {
			return seqErr
		}

		wo = model.WorkOrder{
			WONumber:            woNumber,
			SalesOrderLineID:    &line.ID,
			CustomerName:        order.CustomerName, // snapshot; customer renames never rewrite open orders
			ItemCode:            line.ItemCode,
			ItemName:            line.ItemName,
			MaterialSpec:        line.MaterialSpec,
			QtyOrdered:          line.Qty,
			AuthorizedOverage:   line.AuthorizedOverage,
			AuthorizedShortfall: line.AuthorizedShortfall,
			Status:              model.WorkOrderStatusPending,
			CurrentStage:        model.StageGoodsIn,
			DispatchAllowed:     true,
		}
		if createErr := tx.Create(&wo).Error; createErr != nil {
			return fmt.Errorf("failed to create work order: %w", createErr)
		}

		now := time.Now()
		line.Approved = true
		line.ApprovedBy = parseUserID(userID)
		line.ApprovedAt = &now
		line.WorkOrderID = &wo.ID
		if saveErr := tx.Save(&line).Error; saveErr != nil {
			return fmt.Errorf("failed to mark line approved: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"wo_number": woNumber,
			"so_number": order.SONumber,
			"item_code": line.ItemCode,
			"qty":       line.Qty,
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionApproveSalesLine,
			EntityID:   wo.ID.String(),
			EntityName: woNumber,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}
	return toWorkOrderResponse(wo), nil
}

func (s *workOrderService) Transition(ctx context.Context, userID string, req TransitionRequest) (WorkOrderResponse, error) {
	woID, err := uuid.Parse(req.WorkOrderID)
	if err != nil {
		return WorkOrderResponse{}, apperr.Validation("", "invalid work order id: %v", err)
	}
	if req.Override && req.Reason == "" {
		return WorkOrderResponse{}, apperr.Validation("", "an override transition requires a reason")
	}

	var result model.WorkOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", woID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("work order", req.WorkOrderID)
			}
			return fmt.Errorf("failed to load work order: %w", findErr)
		}

		if !req.Override {
			if next := statusNext[wo.Status]; next != req.ToStatus {
				return apperr.Validation(apperr.CodeInvalidTransition,
					"work order %s is %s; only %s is reachable, not %s", wo.WONumber, wo.Status, next, req.ToStatus)
			}
			blockers, gateErr := s.transitionBlockers(repository.WithTx(ctx, tx), tx, &wo, req.ToStatus)
			if gateErr != nil {
				return gateErr
			}
			if len(blockers) > 0 {
				return apperr.Precondition(apperr.CodeGateNotSatisfied, blockers)
			}
		} else if statusNext[req.ToStatus] == "" && req.ToStatus != model.WorkOrderStatusShipped {
			return apperr.Validation(apperr.CodeInvalidTransition, "unknown status %q", req.ToStatus)
		}

		fromStatus := wo.Status
		expected := wo.Version
		wo.Version++
		wo.Status = req.ToStatus
		switch req.ToStatus {
		case model.WorkOrderStatusQC:
			// Entering QC seals production on the order.
			wo.CurrentStage = model.StageQC
			if !wo.ProductionComplete {
				wo.ProductionComplete = true
				wo.ProductionCompleteReason = "entered QC"
			}
		case model.WorkOrderStatusPacking:
			wo.CurrentStage = model.StagePacking
		case model.WorkOrderStatusCompleted, model.WorkOrderStatusShipped:
			wo.CurrentStage = model.StageDispatch
		}
		if saveErr := repository.SaveVersioned(tx, &wo, wo.ID, expected); saveErr != nil {
			return saveErr
		}

		transition := model.StageTransition{
			WorkOrderID: wo.ID,
			FromStatus:  fromStatus,
			ToStatus:    req.ToStatus,
			IsOverride:  req.Override,
			Reason:      req.Reason,
			ActorID:     parseUserID(userID),
		}
		if createErr := tx.Create(&transition).Error; createErr != nil {
			return fmt.Errorf("failed to record transition: %w", createErr)
		}

		action := model.ActionStatusTransition
		if req.Override {
			action = model.ActionOverrideTransition
		}
		details, _ := json.Marshal(map[string]interface{}{
			"wo_number": wo.WONumber,
			"from":      fromStatus,
			"to":        req.ToStatus,
			"override":  req.Override,
			"reason":    req.Reason,
		})
		if auditErr := tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     action,
			EntityID:   wo.ID.String(),
			EntityName: wo.WONumber,
			Details:    string(details),
		}).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result = wo
		return nil
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	if req.ToStatus == model.WorkOrderStatusQC {
		s.notifier.Notify(ctx, "Order in QC", fmt.Sprintf("work order %s entered quality control", result.WONumber), result.WONumber)
	}

	return toWorkOrderResponse(result), nil
}

// transitionBlockers enumerates every unmet gate for the requested status so
// one response tells the operator the whole story. The context carries the
// open transaction; the quality-gate reads join it.
func (s *workOrderService) transitionBlockers(ctx context.Context, tx *gorm.DB, wo *model.WorkOrder, toStatus string) ([]string, error) {
	var blockers []string

	switch toStatus {
	case model.WorkOrderStatusInProgress:
		ok, err := s.quality.CanAdvance(ctx, wo.ID, nil, model.QCKindIncoming)
		if err != nil {
			return nil, err
		}
		if !ok {
			blockers = append(blockers, fmt.Sprintf("incoming material QC not passed for %s", wo.WONumber))
		}
		var batches int64
		if err := tx.Model(&model.ProductionBatch{}).Where("work_order_id = ?", wo.ID).Count(&batches).Error; err != nil {
			return nil, fmt.Errorf("failed to count batches: %w", err)
		}
		if batches == 0 {
			blockers = append(blockers, fmt.Sprintf("no production batch opened for %s", wo.WONumber))
		}

	case model.WorkOrderStatusQC:
		var open int64
		if err := tx.Model(&model.ProductionBatch{}).
			Where("work_order_id = ? AND production_complete = ?", wo.ID, false).
			Count(&open).Error; err != nil {
			return nil, fmt.Errorf("failed to count open batches: %w", err)
		}
		if open > 0 {
			blockers = append(blockers, fmt.Sprintf("%d batch(es) of %s still producing", open, wo.WONumber))
		}

	case model.WorkOrderStatusPacking:
		var batches []model.ProductionBatch
		if err := tx.Where("work_order_id = ?", wo.ID).Find(&batches).Error; err != nil {
			return nil, fmt.Errorf("failed to load batches: %w", err)
		}
		for _, b := range batches {
			if b.QtyProduced-b.QtyRejected <= 0 {
				continue // nothing survived, final QC is moot
			}
			if b.QCFinalStatus != model.BatchQCApproved {
				blockers = append(blockers, fmt.Sprintf("batch %s final QC is %s", b.BatchNumber, b.QCFinalStatus))
			}
		}

	case model.WorkOrderStatusCompleted:
		required := wo.QtyOrdered - wo.AuthorizedShortfall
		if wo.QtyPacked < required && !wo.ShortClosed {
			blockers = append(blockers, fmt.Sprintf("packed %d of %d required (ordered %d, authorized shortfall %d); short-close to complete anyway",
				wo.QtyPacked, required, wo.QtyOrdered, wo.AuthorizedShortfall))
		}

	case model.WorkOrderStatusShipped:
		var allocations int64
		if err := tx.Model(&model.DispatchAllocation{}).Where("work_order_id = ?", wo.ID).Count(&allocations).Error; err != nil {
			return nil, fmt.Errorf("failed to count allocations: %w", err)
		}
		if allocations == 0 {
			blockers = append(blockers, fmt.Sprintf("no dispatch allocation exists for %s", wo.WONumber))
		}
	}

	return blockers, nil
}

func (s *workOrderService) ShortClose(ctx context.Context, userID string, workOrderID string, reason string) (WorkOrderResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return WorkOrderResponse{}, apperr.Validation("", "invalid work order id: %v", err)
	}
	if reason == "" {
		return WorkOrderResponse{}, apperr.Validation("", "short-close requires a reason")
	}

	var result model.WorkOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", woID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("work order", workOrderID)
			}
			return fmt.Errorf("failed to load work order: %w", findErr)
		}

		switch wo.Status {
		case model.WorkOrderStatusInProgress, model.WorkOrderStatusQC, model.WorkOrderStatusPacking:
		default:
			return apperr.Validation(apperr.CodeInvalidTransition,
				"work order %s is %s and cannot be short-closed", wo.WONumber, wo.Status)
		}

		fromStatus := wo.Status
		expected := wo.Version
		wo.Version++
		wo.ShortClosed = true
		wo.ShortCloseReason = reason
		wo.Status = model.WorkOrderStatusCompleted
		wo.CurrentStage = model.StageDispatch
		if !wo.ProductionComplete {
			wo.ProductionComplete = true
			wo.ProductionCompleteReason = "short-closed: " + reason
		}
		if saveErr := repository.SaveVersioned(tx, &wo, wo.ID, expected); saveErr != nil {
			return saveErr
		}

		transition := model.StageTransition{
			WorkOrderID: wo.ID,
			FromStatus:  fromStatus,
			ToStatus:    model.WorkOrderStatusCompleted,
			IsOverride:  true,
			Reason:      "short-close: " + reason,
			ActorID:     parseUserID(userID),
		}
		if createErr := tx.Create(&transition).Error; createErr != nil {
			return fmt.Errorf("failed to record transition: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"wo_number":   wo.WONumber,
			"reason":      reason,
			"qty_ordered": wo.QtyOrdered,
			"qty_packed":  wo.QtyPacked,
		})
		if auditErr := tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionShortClose,
			EntityID:   wo.ID.String(),
			EntityName: wo.WONumber,
			Details:    string(details),
		}).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result = wo
		return nil
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	s.notifier.Notify(ctx, "Order short-closed",
		fmt.Sprintf("work order %s closed at %d of %d pcs: %s", result.WONumber, result.QtyPacked, result.QtyOrdered, reason),
		result.WONumber)

	return toWorkOrderResponse(result), nil
}

func (s *workOrderService) Progress(ctx context.Context, workOrderID string) (ProgressResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return ProgressResponse{}, apperr.Validation("", "invalid work order id: %v", err)
	}

	var wo model.WorkOrder
	if err := s.db.WithContext(ctx).First(&wo, "id = ?", woID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProgressResponse{}, apperr.NotFound("work order", workOrderID)
		}
		return ProgressResponse{}, err
	}

	var batches []model.ProductionBatch
	if err := s.db.WithContext(ctx).
		Where("work_order_id = ?", woID).
		Order("batch_seq ASC").
		Find(&batches).Error; err != nil {
		return ProgressResponse{}, err
	}

	resp := ProgressResponse{
		WorkOrder:    toWorkOrderResponse(wo),
		Batches:      make([]BatchResponse, 0, len(batches)),
		OpenExternal: wo.QtyExternalWIP,
	}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, toBatchResponse(b))
	}
	if wo.QtyOrdered > 0 {
		resp.PctProduced = float64(wo.QtyProduced) / float64(wo.QtyOrdered) * 100
		resp.PctPacked = float64(wo.QtyPacked) / float64(wo.QtyOrdered) * 100
		resp.PctDispatch = float64(wo.QtyDispatched) / float64(wo.QtyOrdered) * 100
	}
	return resp, nil
}

func (s *workOrderService) Get(ctx context.Context, workOrderID string) (WorkOrderResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return WorkOrderResponse{}, apperr.Validation("", "invalid work order id: %v", err)
	}
	var wo model.WorkOrder
	if err := s.db.WithContext(ctx).First(&wo, "id = ?", woID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkOrderResponse{}, apperr.NotFound("work order", workOrderID)
		}
		return WorkOrderResponse{}, err
	}
	return toWorkOrderResponse(wo), nil
}

func (s *workOrderService) List(ctx context.Context, page, limit int, status string) ([]WorkOrderResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var orders []model.WorkOrder
	var total int64
	db := s.db.WithContext(ctx).Model(&model.WorkOrder{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	res := make([]WorkOrderResponse, 0, len(orders))
	for _, wo := range orders {
		res = append(res, toWorkOrderResponse(wo))
	}
	return res, total, nil
}

func (s *workOrderService) ListTransitions(ctx context.Context, workOrderID string) ([]model.StageTransition, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return nil, apperr.Validation("", "invalid work order id: %v", err)
	}
	var transitions []model.StageTransition
	if err := s.db.WithContext(ctx).
		Where("work_order_id = ?", woID).
		Order("created_at ASC").
		Find(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}

// --- Helpers ---

func toWorkOrderResponse(wo model.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:                 wo.ID.String(),
		WONumber:           wo.WONumber,
		CustomerName:       wo.CustomerName,
		ItemCode:           wo.ItemCode,
		ItemName:           wo.ItemName,
		MaterialSpec:       wo.MaterialSpec,
		QtyOrdered:         wo.QtyOrdered,
		Status:             wo.Status,
		CurrentStage:       wo.CurrentStage,
		QtyProduced:        wo.QtyProduced,
		QtyRejected:        wo.QtyRejected,
		QtyQCApproved:      wo.QtyQCApproved,
		QtyPacked:          wo.QtyPacked,
		QtyDispatched:      wo.QtyDispatched,
		QtyExternalWIP:     wo.QtyExternalWIP,
		ProductionComplete: wo.ProductionComplete,
		ShortClosed:        wo.ShortClosed,
		DispatchAllowed:    wo.DispatchAllowed,
	}
}
