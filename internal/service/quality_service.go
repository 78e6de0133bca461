package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"forgeline/internal/model"
	"forgeline/internal/repository"
	"forgeline/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type MeasurementInput struct {
	Dimension    string          `json:"dimension" binding:"required"`
	Measured     decimal.Decimal `json:"measured"`
	ToleranceMin decimal.Decimal `json:"tolerance_min"`
	ToleranceMax decimal.Decimal `json:"tolerance_max"`
}

type RecordQCRequest struct {
	WorkOrderID   string `json:"work_order_id" binding:"required"`
	BatchID       string `json:"batch_id"`
	MaterialLotID string `json:"material_lot_id"`

	Kind string `json:"kind" binding:"required,oneof=INCOMING FIRST_PIECE IN_PROCESS FINAL POST_EXTERNAL"`
	// Result may force REWORK or PENDING; pass/fail is otherwise auto-computed
	// from the measurements, and WAIVED requires Waive + WaiverReason.
	Result    string `json:"result" binding:"omitempty,oneof=REWORK PENDING"`
	Mandatory *bool  `json:"mandatory"`

	Measurements []MeasurementInput `json:"measurements"`

	Waive        bool   `json:"waive"`
	WaiverReason string `json:"waiver_reason"`
	Notes        string `json:"notes"`

	// ApprovedQty applies to FINAL records only: the quantity released for
	// packing. Defaults to produced minus rejected for the batch.
	ApprovedQty *int `json:"approved_qty"`
}

type QCRecordResponse struct {
	ID           string                `json:"id"`
	QCNumber     string                `json:"qc_number"`
	WorkOrderID  string                `json:"work_order_id"`
	BatchID      *string               `json:"batch_id,omitempty"`
	Kind         string                `json:"kind"`
	Result       string                `json:"result"`
	Mandatory    bool                  `json:"mandatory"`
	WaiverReason string                `json:"waiver_reason,omitempty"`
	Measurements []model.QCMeasurement `json:"measurements"`
	CreatedAt    string                `json:"created_at"`
}

// --- Interface ---

// QualityService evaluates inspection results against tolerance specs and
// decides whether a state transition is permitted.
type QualityService interface {
	RecordResult(ctx context.Context, userID string, req RecordQCRequest) (QCRecordResponse, error)
	// CanAdvance reports whether the most recent mandatory record of the given
	// kind opens the gate (pass or waived). Target is the work order, narrowed
	// to a batch when batchID is set; order-level records cover all batches.
	CanAdvance(ctx context.Context, workOrderID uuid.UUID, batchID *uuid.UUID, kind string) (bool, error)
	ListRecords(ctx context.Context, workOrderID string) ([]QCRecordResponse, error)
}

type qualityService struct {
	db       *gorm.DB
	seq      SequenceService
	notifier Notifier
}

func NewQualityService(db *gorm.DB, seq SequenceService, notifier Notifier) QualityService {
	return &qualityService{db: db, seq: seq, notifier: notifier}
}

// --- Implementation ---

func (s *qualityService) RecordResult(ctx context.Context, userID string, req RecordQCRequest) (QCRecordResponse, error) {
	workOrderID, err := uuid.Parse(req.WorkOrderID)
	if err != nil {
		return QCRecordResponse{}, apperr.Validation("", "invalid work order id: %v", err)
	}
	var batchID *uuid.UUID
	if req.BatchID != "" {
		parsed, parseErr := uuid.Parse(req.BatchID)
		if parseErr != nil {
			return QCRecordResponse{}, apperr.Validation("", "invalid batch id: %v", parseErr)
		}
		batchID = &parsed
	}
	var lotID *uuid.UUID
	if req.MaterialLotID != "" {
		parsed, parseErr := uuid.Parse(req.MaterialLotID)
		if parseErr != nil {
			return QCRecordResponse{}, apperr.Validation("", "invalid material lot id: %v", parseErr)
		}
		lotID = &parsed
	}
	if req.Waive && req.WaiverReason == "" {
		return QCRecordResponse{}, apperr.Validation("", "a waiver requires a reason")
	}

	measurements := make([]model.QCMeasurement, 0, len(req.Measurements))
	allWithin := true
	for _, m := range req.Measurements {
		meas := model.QCMeasurement{
			Dimension:    m.Dimension,
			Measured:     m.Measured,
			ToleranceMin: m.ToleranceMin,
			ToleranceMax: m.ToleranceMax,
		}
		meas.InTolerance = meas.WithinBand()
		if !meas.InTolerance {
			allWithin = false
		}
		measurements = append(measurements, meas)
	}

	// Result resolution: waiver > explicit rework/pending > computed pass/fail.
	result := model.QCResultPass
	switch {
	case req.Waive:
		result = model.QCResultWaived
	case req.Result != "":
		result = req.Result
	case !allWithin:
		result = model.QCResultFail
	}

	mandatory := true
	if req.Mandatory != nil {
		mandatory = *req.Mandatory
	}

	record := model.QCRecord{
		WorkOrderID:   workOrderID,
		BatchID:       batchID,
		MaterialLotID: lotID,
		Kind:          req.Kind,
		Result:        result,
		Mandatory:     mandatory,
		InspectorID:   parseUserID(userID),
		WaiverReason:  req.WaiverReason,
		Notes:         req.Notes,
		Measurements:  measurements,
	}
	if req.Waive {
		record.WaivedBy = parseUserID(userID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)

		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", workOrderID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("work order", req.WorkOrderID)
			}
			return fmt.Errorf("failed to load work order: %w", findErr)
		}

		var batch *model.ProductionBatch
		if batchID != nil {
			var b model.ProductionBatch
			if findErr := tx.First(&b, "id = ? AND work_order_id = ?", batchID, workOrderID).Error; findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return apperr.NotFound("production batch", req.BatchID)
				}
				return fmt.Errorf("failed to load batch: %w", findErr)
			}
			batch = &b
		}

		qcNumber, seqErr := s.seq.Next(txCtx, SeqQCRecord)
		if seqErr != nil {
			return seqErr
		}
		record.QCNumber = qcNumber

		if createErr := tx.Create(&record).Error; createErr != nil {
			return fmt.Errorf("failed to create QC record: %w", createErr)
		}

		// A passing (or waived) FINAL record releases quantity for packing and
		// rolls it up into the work order.
		if req.Kind == model.QCKindFinal && batch != nil {
			if model.GateOpen(result) {
				approved := batch.QtyProduced - batch.QtyRejected
				if req.ApprovedQty != nil {
					approved = *req.ApprovedQty
				}
				if approved < 0 || approved > batch.QtyProduced-batch.QtyRejected {
					return apperr.Validation("", "approved qty %d outside 0..%d", approved, batch.QtyProduced-batch.QtyRejected)
				}

				delta := approved - batch.QtyQCApproved
				expected := batch.Version
				batch.Version++
				batch.QCFinalStatus = model.BatchQCApproved
				batch.QtyQCApproved = approved
				if saveErr := repository.SaveVersioned(tx, batch, batch.ID, expected); saveErr != nil {
					return saveErr
				}

				woExpected := wo.Version
				wo.Version++
				wo.QtyQCApproved += delta
				if violations := wo.QuantityChainViolations(); len(violations) > 0 {
					return apperr.Precondition(apperr.CodeExceedsApproved, violations)
				}
				if saveErr := repository.SaveVersioned(tx, &wo, wo.ID, woExpected); saveErr != nil {
					return saveErr
				}
			} else if result == model.QCResultFail {
				expected := batch.Version
				batch.Version++
				batch.QCFinalStatus = model.BatchQCRejected
				if saveErr := repository.SaveVersioned(tx, batch, batch.ID, expected); saveErr != nil {
					return saveErr
				}
			}
		}

		action := model.ActionRecordQC
		if req.Waive {
			action = model.ActionWaiveQC
		}
		details, _ := json.Marshal(map[string]interface{}{
			"qc_number":     qcNumber,
			"kind":          req.Kind,
			"result":        result,
			"batch_id":      req.BatchID,
			"waiver_reason": req.WaiverReason,
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     action,
			EntityID:   record.ID.String(),
			EntityName: qcNumber,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return QCRecordResponse{}, err
	}

	if result == model.QCResultPending {
		s.notifier.Notify(ctx, "QC pending", fmt.Sprintf("%s inspection %s awaits a result", req.Kind, record.QCNumber), record.QCNumber)
	}

	return toQCResponse(record), nil
}

func (s *qualityService) CanAdvance(ctx context.Context, workOrderID uuid.UUID, batchID *uuid.UUID, kind string) (bool, error) {
	// Joins the caller's transaction when the context carries one, so the gate
	// decision and the write it guards read the same snapshot.
	query := repository.GetDB(ctx, s.db).
		Where("work_order_id = ? AND kind = ? AND mandatory = ?", workOrderID, kind, true)
	if batchID != nil {
		query = query.Where("batch_id = ? OR batch_id IS NULL", batchID)
	}

	var record model.QCRecord
	// Latest record wins; earlier ones are audit history. QC numbers are
	// zero-padded per day, so they break created-at ties deterministically.
	err := query.Order("created_at DESC").Order("qc_number DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query QC records: %w", err)
	}
	return model.GateOpen(record.Result), nil
}

func (s *qualityService) ListRecords(ctx context.Context, workOrderID string) ([]QCRecordResponse, error) {
	id, err := uuid.Parse(workOrderID)
	if err != nil {
		return nil, apperr.Validation("", "invalid work order id: %v", err)
	}
	var records []model.QCRecord
	if err := s.db.WithContext(ctx).
		Preload("Measurements").
		Where("work_order_id = ?", id).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	res := make([]QCRecordResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toQCResponse(r))
	}
	return res, nil
}

// --- Helpers ---

func toQCResponse(r model.QCRecord) QCRecordResponse {
	resp := QCRecordResponse{
		ID:           r.ID.String(),
		QCNumber:     r.QCNumber,
		WorkOrderID:  r.WorkOrderID.String(),
		Kind:         r.Kind,
		Result:       r.Result,
		Mandatory:    r.Mandatory,
		WaiverReason: r.WaiverReason,
		Measurements: r.Measurements,
		CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if r.BatchID != nil {
		s := r.BatchID.String()
		resp.BatchID = &s
	}
	return resp
}
