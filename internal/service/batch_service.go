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

type BatchResponse struct {
	ID                  string  `json:"id"`
	WorkOrderID         string  `json:"work_order_id"`
	BatchNumber         string  `json:"batch_number"`
	BatchSeq            int     `json:"batch_seq"`
	PreviousBatchID     *string `json:"previous_batch_id,omitempty"`
	Stage               string  `json:"stage"`
	Location            string  `json:"location"`
	QtyProduced         int     `json:"qty_produced"`
	QtyRejected         int     `json:"qty_rejected"`
	QtyQCApproved       int     `json:"qty_qc_approved"`
	QtyPacked           int     `json:"qty_packed"`
	QtyDispatched       int     `json:"qty_dispatched"`
	QtySentExternal     int     `json:"qty_sent_external"`
	AvailableForPacking int     `json:"available_for_packing"`
	ProductionComplete  bool    `json:"production_complete"`
	QCFinalStatus       string  `json:"qc_final_status"`
}

// --- Interface ---

// BatchService creates, splits and advances production batches through stages
// and owns batch-level quantity accounting.
type BatchService interface {
	// GetOrCreateBatch returns the active batch for a work order when its last
	// activity falls within gapThresholdDays; otherwise it opens a new batch
	// chained to its predecessor.
	GetOrCreateBatch(ctx context.Context, userID string, workOrderID string, gapThresholdDays int) (BatchResponse, error)
	RecordProduction(ctx context.Context, userID string, batchID string, qtyOK, qtyScrap int) (BatchResponse, error)
	MarkProductionComplete(ctx context.Context, userID string, batchID string, reason string) error
	RecordPacking(ctx context.Context, userID string, batchID string, qty int) (BatchResponse, error)
	AdvanceStage(ctx context.Context, userID string, batchID string, newStage string) (BatchResponse, error)
	ListBatches(ctx context.Context, workOrderID string) ([]BatchResponse, error)
}

type batchService struct {
	db       *gorm.DB
	quality  QualityService
	seq      SequenceService
	notifier Notifier
}

func NewBatchService(db *gorm.DB, quality QualityService, seq SequenceService, notifier Notifier) BatchService {
	return &batchService{db: db, quality: quality, seq: seq, notifier: notifier}
}

// --- Implementation ---

func (s *batchService) GetOrCreateBatch(ctx context.Context, userID string, workOrderID string, gapThresholdDays int) (BatchResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return BatchResponse{}, apperr.Validation("", "invalid work order id: %v", err)
	}
	if gapThresholdDays <= 0 {
		gapThresholdDays = 3
	}

	var result model.ProductionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)

		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", woID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("work order", workOrderID)
			}
			return fmt.Errorf("failed to load work order: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusPending && wo.Status != model.WorkOrderStatusInProgress {
			return apperr.Precondition(apperr.CodeInvalidTransition, []string{
				fmt.Sprintf("work order %s is %s, not producible", wo.WONumber, wo.Status),
			})
		}

		var latest model.ProductionBatch
		findErr := tx.Where("work_order_id = ?", woID).Order("batch_seq DESC").First(&latest).Error
		haveLatest := findErr == nil
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load latest batch: %w", findErr)
		}

		gap := time.Duration(gapThresholdDays) * 24 * time.Hour
		if haveLatest && !latest.ProductionComplete &&
			model.BatchStageRank(latest.Stage) <= model.BatchStageRank(model.BatchStageProduction) &&
			time.Since(latest.LastActivityAt) <= gap {
			result = latest
			return nil
		}

		batchNumber, seqErr := s.seq.Next(txCtx, SeqBatch)
		if seqErr != nil {
			return seqErr
		}

		batch := model.ProductionBatch{
			WorkOrderID:    woID,
			BatchNumber:    batchNumber,
			BatchSeq:       1,
			Stage:          model.BatchStageCutting,
			Location:       model.LocationFactory,
			QCFinalStatus:  model.BatchQCPending,
			LastActivityAt: time.Now(),
		}
		if haveLatest {
			batch.BatchSeq = latest.BatchSeq + 1
			// Non-owning genealogy link back to the predecessor
			prev := latest.ID
			batch.PreviousBatchID = &prev
		}
		if createErr := tx.Create(&batch).Error; createErr != nil {
			return fmt.Errorf("failed to create batch: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batchNumber,
			"batch_seq":    batch.BatchSeq,
			"work_order":   wo.WONumber,
		})
		if auditErr := tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateBatch,
			EntityID:   batch.ID.String(),
			EntityName: batchNumber,
			Details:    string(details),
		}).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result = batch
		return nil
	})
	if err != nil {
		return BatchResponse{}, err
	}
	return toBatchResponse(result), nil
}

func (s *batchService) RecordProduction(ctx context.Context, userID string, batchID string, qtyOK, qtyScrap int) (BatchResponse, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return BatchResponse{}, apperr.Validation("", "invalid batch id: %v", err)
	}
	if qtyOK < 0 || qtyScrap < 0 {
		return BatchResponse{}, apperr.Validation(apperr.CodeNegativeQuantity, "quantities must be non-negative, got ok=%d scrap=%d", qtyOK, qtyScrap)
	}

	var result model.ProductionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, wo, loadErr := s.loadBatchAndOrder(tx, id)
		if loadErr != nil {
			return loadErr
		}
		if batch.ProductionComplete {
			return apperr.Precondition(apperr.CodeBatchClosed, []string{
				fmt.Sprintf("batch %s production is already marked complete", batch.BatchNumber),
			})
		}

		expected := batch.Version
		batch.Version++
		batch.QtyProduced += qtyOK
		batch.QtyRejected += qtyScrap
		batch.LastActivityAt = time.Now()
		if model.BatchStageRank(batch.Stage) < model.BatchStageRank(model.BatchStageProduction) {
			batch.Stage = model.BatchStageProduction
		}
		if saveErr := repository.SaveVersioned(tx, batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		woExpected := wo.Version
		wo.Version++
		wo.QtyProduced += qtyOK
		wo.QtyRejected += qtyScrap
		wo.CurrentStage = model.StageProduction
		if violations := wo.QuantityChainViolations(); len(violations) > 0 {
			return apperr.Precondition(apperr.CodeExceedsOrdered, violations)
		}
		if saveErr := repository.SaveVersioned(tx, wo, wo.ID, woExpected); saveErr != nil {
			return saveErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"qty_ok":       qtyOK,
			"qty_scrap":    qtyScrap,
		})
		if auditErr := tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionRecordProduction,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result = *batch
		return nil
	})
	if err != nil {
		return BatchResponse{}, err
	}
	return toBatchResponse(result), nil
}

// MarkProductionComplete is terminal for production only; the batch stays
// mutable for QC, packing and dispatch bookkeeping.
func (s *batchService) MarkProductionComplete(ctx context.Context, userID string, batchID string, reason string) error {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return apperr.Validation("", "invalid batch id: %v", err)
	}
	if reason == "" {
		return apperr.Validation("", "a completion reason is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, wo, loadErr := s.loadBatchAndOrder(tx, id)
		if loadErr != nil {
			return loadErr
		}
		if batch.ProductionComplete {
			return apperr.Precondition(apperr.CodeBatchClosed, []string{
				fmt.Sprintf("batch %s production is already marked complete", batch.BatchNumber),
			})
		}

		expected := batch.Version
		batch.Version++
		batch.ProductionComplete = true
		batch.ProductionCompleteReason = reason
		batch.LastActivityAt = time.Now()
		if saveErr := repository.SaveVersioned(tx, batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		// The order-level flag flips once every batch has closed production.
		var open int64
		if countErr := tx.Model(&model.ProductionBatch{}).
			Where("work_order_id = ? AND production_complete = ?", wo.ID, false).
			Count(&open).Error; countErr != nil {
			return fmt.Errorf("failed to count open batches: %w", countErr)
		}
		if open == 0 && !wo.ProductionComplete {
			woExpected := wo.Version
			wo.Version++
			wo.ProductionComplete = true
			wo.ProductionCompleteReason = "all batches production complete"
			if saveErr := repository.SaveVersioned(tx, wo, wo.ID, woExpected); saveErr != nil {
				return saveErr
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"reason":       reason,
			"qty_produced": batch.QtyProduced,
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionProductionComplete,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}).Error
	})
}

func (s *batchService) RecordPacking(ctx context.Context, userID string, batchID string, qty int) (BatchResponse, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return BatchResponse{}, apperr.Validation("", "invalid batch id: %v", err)
	}
	if qty <= 0 {
		return BatchResponse{}, apperr.Validation(apperr.CodeNegativeQuantity, "packing quantity must be positive, got %d", qty)
	}

	var result model.ProductionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, wo, loadErr := s.loadBatchAndOrder(tx, id)
		if loadErr != nil {
			return loadErr
		}

		var blockers []string
		if batch.QCFinalStatus != model.BatchQCApproved {
			blockers = append(blockers, fmt.Sprintf("final QC is %s for batch %s", batch.QCFinalStatus, batch.BatchNumber))
		}
		if qty > batch.AvailableForPacking() {
			blockers = append(blockers, fmt.Sprintf("qty %d exceeds available-for-packing %d", qty, batch.AvailableForPacking()))
		}
		if batch.QtyPacked+qty > batch.QtyQCApproved {
			blockers = append(blockers, fmt.Sprintf("packing %d would exceed QC-approved %d", batch.QtyPacked+qty, batch.QtyQCApproved))
		}
		if len(blockers) > 0 {
			return apperr.Precondition(apperr.CodeExceedsAvailable, blockers)
		}

		expected := batch.Version
		batch.Version++
		batch.QtyPacked += qty
		batch.LastActivityAt = time.Now()
		if batch.AvailableForPacking() == 0 {
			batch.Location = model.LocationPacked
		}
		if saveErr := repository.SaveVersioned(tx, batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		woExpected := wo.Version
		wo.Version++
		wo.QtyPacked += qty
		if violations := wo.QuantityChainViolations(); len(violations) > 0 {
			return apperr.Precondition(apperr.CodeExceedsAvailable, violations)
		}
		if saveErr := repository.SaveVersioned(tx, wo, wo.ID, woExpected); saveErr != nil {
			return saveErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"qty":          qty,
		})
		if auditErr := tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionRecordPacking,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result = *batch
		return nil
	})
	if err != nil {
		return BatchResponse{}, err
	}
	return toBatchResponse(result), nil
}

func (s *batchService) AdvanceStage(ctx context.Context, userID string, batchID string, newStage string) (BatchResponse, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return BatchResponse{}, apperr.Validation("", "invalid batch id: %v", err)
	}
	newRank := model.BatchStageRank(newStage)
	if newRank == 0 {
		return BatchResponse{}, apperr.Validation("", "unknown stage %q", newStage)
	}

	var result model.ProductionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)
		batch, wo, loadErr := s.loadBatchAndOrder(tx, id)
		if loadErr != nil {
			return loadErr
		}

		currentRank := model.BatchStageRank(batch.Stage)
		if newRank < currentRank {
			return apperr.Validation(apperr.CodeInvalidTransition, "cannot move batch %s backwards from %s to %s", batch.BatchNumber, batch.Stage, newStage)
		}
		if newRank == currentRank && newStage != model.BatchStageExternal {
			return apperr.Validation(apperr.CodeInvalidTransition, "batch %s is already at stage %s", batch.BatchNumber, batch.Stage)
		}

		blockers, gateErr := s.stageBlockers(txCtx, batch, wo, newStage)
		if gateErr != nil {
			return gateErr
		}
		if len(blockers) > 0 {
			return apperr.Precondition(apperr.CodeGateNotSatisfied, blockers)
		}

		fromStage := batch.Stage
		expected := batch.Version
		batch.Version++
		batch.Stage = newStage
		batch.LastActivityAt = time.Now()
		switch newStage {
		case model.BatchStageExternal:
			batch.Location = model.LocationExternalPartner
		case model.BatchStageQC:
			batch.Location = model.LocationFactory
		case model.BatchStagePacking:
			batch.Location = model.LocationFactory
		case model.BatchStageDispatched:
			batch.Location = model.LocationDispatched
		}
		if saveErr := repository.SaveVersioned(tx, batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		// Opportunistic display-stage refresh; never gates anything.
		woExpected := wo.Version
		wo.Version++
		wo.CurrentStage = newStage
		if saveErr := repository.SaveVersioned(tx, wo, wo.ID, woExpected); saveErr != nil {
			return saveErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"from":         fromStage,
			"to":           newStage,
		})
		if auditErr := tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionAdvanceStage,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		result = *batch
		return nil
	})
	if err != nil {
		return BatchResponse{}, err
	}
	return toBatchResponse(result), nil
}

func (s *batchService) ListBatches(ctx context.Context, workOrderID string) ([]BatchResponse, error) {
	id, err := uuid.Parse(workOrderID)
	if err != nil {
		return nil, apperr.Validation("", "invalid work order id: %v", err)
	}
	var batches []model.ProductionBatch
	if err := s.db.WithContext(ctx).
		Where("work_order_id = ?", id).
		Order("batch_seq ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	res := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		res = append(res, toBatchResponse(b))
	}
	return res, nil
}

// stageBlockers collects every unmet condition for the requested stage so the
// caller sees the complete checklist at once. The context carries the open
// transaction; every gate read joins it.
func (s *batchService) stageBlockers(ctx context.Context, batch *model.ProductionBatch, wo *model.WorkOrder, newStage string) ([]string, error) {
	var blockers []string

	switch newStage {
	case model.BatchStageQC:
		ok, err := s.quality.CanAdvance(ctx, wo.ID, &batch.ID, model.QCKindFirstPiece)
		if err != nil {
			return nil, err
		}
		if !ok {
			blockers = append(blockers, fmt.Sprintf("first_piece QC not passed for batch %s", batch.BatchNumber))
		}
		if batch.Location == model.LocationExternalPartner || batch.QtySentExternal > 0 {
			blockers = append(blockers, fmt.Sprintf("%d pcs of batch %s still at external partner", batch.QtySentExternal, batch.BatchNumber))
		}
		var movements int64
		if err := repository.GetDB(ctx, s.db).Model(&model.ExternalMovement{}).
			Where("batch_id = ?", batch.ID).Count(&movements).Error; err != nil {
			return nil, fmt.Errorf("failed to count external movements: %w", err)
		}
		if movements > 0 {
			ok, err := s.quality.CanAdvance(ctx, wo.ID, &batch.ID, model.QCKindPostExternal)
			if err != nil {
				return nil, err
			}
			if !ok {
				blockers = append(blockers, fmt.Sprintf("post_external QC not passed for batch %s", batch.BatchNumber))
			}
		}
	case model.BatchStagePacking:
		ok, err := s.quality.CanAdvance(ctx, wo.ID, &batch.ID, model.QCKindFinal)
		if err != nil {
			return nil, err
		}
		if !ok {
			blockers = append(blockers, fmt.Sprintf("final QC not passed for batch %s", batch.BatchNumber))
		}
		if batch.AvailableForPacking() <= 0 {
			blockers = append(blockers, fmt.Sprintf("batch %s has no quantity available for packing", batch.BatchNumber))
		}
	case model.BatchStageDispatched:
		if batch.QtyDispatched == 0 {
			blockers = append(blockers, fmt.Sprintf("no dispatch allocation recorded for batch %s", batch.BatchNumber))
		}
	}

	return blockers, nil
}

func (s *batchService) loadBatchAndOrder(tx *gorm.DB, batchID uuid.UUID) (*model.ProductionBatch, *model.WorkOrder, error) {
	var batch model.ProductionBatch
	if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("production batch", batchID)
		}
		return nil, nil, fmt.Errorf("failed to load batch: %w", err)
	}
	var wo model.WorkOrder
	if err := tx.First(&wo, "id = ?", batch.WorkOrderID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load work order: %w", err)
	}
	return &batch, &wo, nil
}

func toBatchResponse(b model.ProductionBatch) BatchResponse {
	resp := BatchResponse{
		ID:                  b.ID.String(),
		WorkOrderID:         b.WorkOrderID.String(),
		BatchNumber:         b.BatchNumber,
		BatchSeq:            b.BatchSeq,
		Stage:               b.Stage,
		Location:            b.Location,
		QtyProduced:         b.QtyProduced,
		QtyRejected:         b.QtyRejected,
		QtyQCApproved:       b.QtyQCApproved,
		QtyPacked:           b.QtyPacked,
		QtyDispatched:       b.QtyDispatched,
		QtySentExternal:     b.QtySentExternal,
		AvailableForPacking: b.AvailableForPacking(),
		ProductionComplete:  b.ProductionComplete,
		QCFinalStatus:       b.QCFinalStatus,
	}
	if b.PreviousBatchID != nil {
		s := b.PreviousBatchID.String()
		resp.PreviousBatchID = &s
	}
	return resp
}
