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

type CreatePartnerRequest struct {
	Name    string `json:"name" binding:"required"`
	Process string `json:"process"`
	Contact string `json:"contact"`
	City    string `json:"city"`
}

type SendOutRequest struct {
	BatchID          string    `json:"batch_id" binding:"required"`
	PartnerID        string    `json:"partner_id" binding:"required"`
	ProcessStep      string    `json:"process_step" binding:"required"`
	Qty              int       `json:"qty" binding:"required"`
	ExpectedReturnAt time.Time `json:"expected_return_at" binding:"required"`
}

type ReceiveReturnRequest struct {
	MovementID  string `json:"movement_id" binding:"required"`
	QtyReturned int    `json:"qty_returned"`
	QtyRejected int    `json:"qty_rejected"`
}

type ForwardRequest struct {
	MovementID       string    `json:"movement_id" binding:"required"`
	NextPartnerID    string    `json:"next_partner_id" binding:"required"`
	ProcessStep      string    `json:"process_step" binding:"required"`
	ExpectedReturnAt time.Time `json:"expected_return_at" binding:"required"`
}

type MovementResponse struct {
	ID               string    `json:"id"`
	BatchID          string    `json:"batch_id"`
	PartnerID        string    `json:"partner_id"`
	PartnerName      string    `json:"partner_name"`
	ProcessStep      string    `json:"process_step"`
	QtySent          int       `json:"qty_sent"`
	QtyReturned      int       `json:"qty_returned"`
	QtyRejected      int       `json:"qty_rejected"`
	Outstanding      int       `json:"outstanding"`
	Status           string    `json:"status"`
	ExpectedReturnAt time.Time `json:"expected_return_at"`
	ForwardedToID    *string   `json:"forwarded_to_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// --- Interface ---

// ExternalService tracks batch quantities sent to sub-contract partners and
// reconciles their returns, rejections and partner-to-partner forwards.
type ExternalService interface {
	CreatePartner(ctx context.Context, userID string, req CreatePartnerRequest) (model.ExternalPartner, error)
	ListPartners(ctx context.Context) ([]model.ExternalPartner, error)
	SendOut(ctx context.Context, userID string, req SendOutRequest) (MovementResponse, error)
	ReceiveReturn(ctx context.Context, userID string, req ReceiveReturnRequest) (MovementResponse, error)
	// Forward hands a movement's outstanding quantity straight to another
	// partner without the material passing through the factory.
	Forward(ctx context.Context, userID string, req ForwardRequest) (MovementResponse, error)
	ListMovements(ctx context.Context, batchID string) ([]MovementResponse, error)
	// ListOverdue reports movements with quantity still outstanding past their
	// expected return date. Derived at read time, never persisted.
	ListOverdue(ctx context.Context, asOf time.Time) ([]MovementResponse, error)
}

type externalService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewExternalService(db *gorm.DB, notifier Notifier) ExternalService {
	return &externalService{db: db, notifier: notifier}
}

// --- Implementation ---

func (s *externalService) CreatePartner(ctx context.Context, userID string, req CreatePartnerRequest) (model.ExternalPartner, error) {
	partner := model.ExternalPartner{
		Name:    req.Name,
		Process: req.Process,
		Contact: req.Contact,
		City:    req.City,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ExternalPartner
		if findErr := tx.Where("name = ?", req.Name).First(&existing).Error; findErr == nil {
			return apperr.Conflict(apperr.CodeDuplicateReference, "partner %q already exists", req.Name)
		} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check partner name: %w", findErr)
		}
		if createErr := tx.Create(&partner).Error; createErr != nil {
			return fmt.Errorf("failed to create partner: %w", createErr)
		}
		details, _ := json.Marshal(req)
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreatePartner,
			EntityID:   partner.ID.String(),
			EntityName: partner.Name,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return model.ExternalPartner{}, err
	}
	return partner, nil
}

func (s *externalService) ListPartners(ctx context.Context) ([]model.ExternalPartner, error) {
	var partners []model.ExternalPartner
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&partners).Error; err != nil {
		return nil, err
	}
	return partners, nil
}

func (s *externalService) SendOut(ctx context.Context, userID string, req SendOutRequest) (MovementResponse, error) {
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return MovementResponse{}, apperr.Validation("", "invalid batch id: %v", err)
	}
	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		return MovementResponse{}, apperr.Validation("", "invalid partner id: %v", err)
	}
	if req.Qty <= 0 {
		return MovementResponse{}, apperr.Validation(apperr.CodeNegativeQuantity, "send-out quantity must be positive, got %d", req.Qty)
	}

	var movement model.ExternalMovement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch model.ProductionBatch
		if findErr := tx.First(&batch, "id = ?", batchID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("production batch", req.BatchID)
			}
			return fmt.Errorf("failed to load batch: %w", findErr)
		}
		var partner model.ExternalPartner
		if findErr := tx.First(&partner, "id = ?", partnerID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("external partner", req.PartnerID)
			}
			return fmt.Errorf("failed to load partner: %w", findErr)
		}

		if req.Qty > batch.OnHand() {
			return apperr.Precondition(apperr.CodeExceedsAvailable, []string{
				fmt.Sprintf("batch %s has %d pcs on hand, %d requested for send-out", batch.BatchNumber, batch.OnHand(), req.Qty),
			})
		}

		movement = model.ExternalMovement{
			BatchID:          batchID,
			PartnerID:        partnerID,
			ProcessStep:      req.ProcessStep,
			PartnerName:      partner.Name, // snapshot; later partner renames don't rewrite history
			QtySent:          req.Qty,
			Status:           model.MovementStatusSent,
			ExpectedReturnAt: req.ExpectedReturnAt,
		}
		if createErr := tx.Create(&movement).Error; createErr != nil {
			return fmt.Errorf("failed to create movement: %w", createErr)
		}

		expected := batch.Version
		batch.Version++
		batch.QtySentExternal += req.Qty
		batch.Location = model.LocationExternalPartner
		if model.BatchStageRank(batch.Stage) < model.BatchStageRank(model.BatchStageExternal) {
			batch.Stage = model.BatchStageExternal
		}
		batch.LastActivityAt = time.Now()
		if saveErr := repository.SaveVersioned(tx, &batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", batch.WorkOrderID).Error; findErr != nil {
			return fmt.Errorf("failed to load work order: %w", findErr)
		}
		woExpected := wo.Version
		wo.Version++
		wo.QtyExternalWIP += req.Qty
		wo.CurrentStage = model.StageExternal
		if saveErr := repository.SaveVersioned(tx, &wo, wo.ID, woExpected); saveErr != nil {
			return saveErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"partner":      partner.Name,
			"process_step": req.ProcessStep,
			"qty":          req.Qty,
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionSendExternal,
			EntityID:   movement.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return MovementResponse{}, err
	}
	return toMovementResponse(movement), nil
}

func (s *externalService) ReceiveReturn(ctx context.Context, userID string, req ReceiveReturnRequest) (MovementResponse, error) {
	movementID, err := uuid.Parse(req.MovementID)
	if err != nil {
		return MovementResponse{}, apperr.Validation("", "invalid movement id: %v", err)
	}
	if req.QtyReturned < 0 || req.QtyRejected < 0 {
		return MovementResponse{}, apperr.Validation(apperr.CodeNegativeQuantity, "return quantities must be non-negative, got returned=%d rejected=%d", req.QtyReturned, req.QtyRejected)
	}
	if req.QtyReturned+req.QtyRejected == 0 {
		return MovementResponse{}, apperr.Validation("", "nothing to receive")
	}

	var movement model.ExternalMovement
	var batchNumber string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&movement, "id = ?", movementID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("external movement", req.MovementID)
			}
			return fmt.Errorf("failed to load movement: %w", findErr)
		}
		if movement.Status == model.MovementStatusForwarded {
			return apperr.Precondition(apperr.CodeOverReturn, []string{
				fmt.Sprintf("movement %s was forwarded to another partner, nothing can return on it", movement.ID),
			})
		}

		// Over-returns are rejected outright; the caller must correct the
		// paperwork rather than have the system absorb the difference.
		outstanding := movement.Outstanding()
		if req.QtyReturned+req.QtyRejected > outstanding {
			return apperr.Precondition(apperr.CodeOverReturn, []string{
				fmt.Sprintf("movement has %d pcs outstanding at %s, return of %d declared", outstanding, movement.PartnerName, req.QtyReturned+req.QtyRejected),
			})
		}

		movement.QtyReturned += req.QtyReturned
		movement.QtyRejected += req.QtyRejected
		if movement.Outstanding() == 0 {
			movement.Status = model.MovementStatusReturned
		} else {
			movement.Status = model.MovementStatusPartiallyReturned
		}
		if saveErr := tx.Save(&movement).Error; saveErr != nil {
			return fmt.Errorf("failed to update movement: %w", saveErr)
		}

		var batch model.ProductionBatch
		if findErr := tx.First(&batch, "id = ?", movement.BatchID).Error; findErr != nil {
			return fmt.Errorf("failed to load batch: %w", findErr)
		}
		batchNumber = batch.BatchNumber

		expected := batch.Version
		batch.Version++
		batch.QtySentExternal -= req.QtyReturned + req.QtyRejected
		batch.QtyRejected += req.QtyRejected
		batch.LastActivityAt = time.Now()
		if batch.QtySentExternal == 0 {
			batch.Location = model.LocationFactory
		}
		if saveErr := repository.SaveVersioned(tx, &batch, batch.ID, expected); saveErr != nil {
			return saveErr
		}

		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", batch.WorkOrderID).Error; findErr != nil {
			return fmt.Errorf("failed to load work order: %w", findErr)
		}
		woExpected := wo.Version
		wo.Version++
		wo.QtyExternalWIP -= req.QtyReturned + req.QtyRejected
		wo.QtyRejected += req.QtyRejected
		if violations := wo.QuantityChainViolations(); len(violations) > 0 {
			return apperr.Precondition(apperr.CodeOverReturn, violations)
		}
		if saveErr := repository.SaveVersioned(tx, &wo, wo.ID, woExpected); saveErr != nil {
			return saveErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"partner":      movement.PartnerName,
			"qty_returned": req.QtyReturned,
			"qty_rejected": req.QtyRejected,
			"outstanding":  movement.Outstanding(),
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionReceiveExternal,
			EntityID:   movement.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return MovementResponse{}, err
	}

	if req.QtyReturned > 0 {
		s.notifier.Notify(ctx, "Post-external QC due",
			fmt.Sprintf("%d pcs of batch %s returned from %s and await inspection", req.QtyReturned, batchNumber, movement.PartnerName),
			batchNumber)
	}

	return toMovementResponse(movement), nil
}

func (s *externalService) Forward(ctx context.Context, userID string, req ForwardRequest) (MovementResponse, error) {
	movementID, err := uuid.Parse(req.MovementID)
	if err != nil {
		return MovementResponse{}, apperr.Validation("", "invalid movement id: %v", err)
	}
	nextPartnerID, err := uuid.Parse(req.NextPartnerID)
	if err != nil {
		return MovementResponse{}, apperr.Validation("", "invalid partner id: %v", err)
	}

	var successor model.ExternalMovement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var movement model.ExternalMovement
		if findErr := tx.First(&movement, "id = ?", movementID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("external movement", req.MovementID)
			}
			return fmt.Errorf("failed to load movement: %w", findErr)
		}
		outstanding := movement.Outstanding()
		if outstanding <= 0 {
			return apperr.Precondition(apperr.CodeOverReturn, []string{
				fmt.Sprintf("movement at %s has nothing outstanding to forward", movement.PartnerName),
			})
		}

		var partner model.ExternalPartner
		if findErr := tx.First(&partner, "id = ?", nextPartnerID).Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("external partner", req.NextPartnerID)
			}
			return fmt.Errorf("failed to load partner: %w", findErr)
		}
		if partner.ID == movement.PartnerID {
			return apperr.Validation("", "cannot forward a movement to the same partner %q", partner.Name)
		}

		// The successor carries the whole outstanding quantity; the original is
		// sealed as FORWARDED so its Outstanding drops to zero.
		successor = model.ExternalMovement{
			BatchID:          movement.BatchID,
			PartnerID:        nextPartnerID,
			ProcessStep:      req.ProcessStep,
			PartnerName:      partner.Name,
			QtySent:          outstanding,
			Status:           model.MovementStatusSent,
			ExpectedReturnAt: req.ExpectedReturnAt,
		}
		if createErr := tx.Create(&successor).Error; createErr != nil {
			return fmt.Errorf("failed to create successor movement: %w", createErr)
		}

		movement.Status = model.MovementStatusForwarded
		movement.ForwardedToID = &successor.ID
		if saveErr := tx.Save(&movement).Error; saveErr != nil {
			return fmt.Errorf("failed to seal forwarded movement: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from_partner": movement.PartnerName,
			"to_partner":   partner.Name,
			"process_step": req.ProcessStep,
			"qty":          outstanding,
		})
		return tx.Create(&model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionForwardExternal,
			EntityID:   successor.ID.String(),
			EntityName: partner.Name,
			Details:    string(details),
		}).Error
	})
	if err != nil {
		return MovementResponse{}, err
	}
	return toMovementResponse(successor), nil
}

func (s *externalService) ListMovements(ctx context.Context, batchID string) ([]MovementResponse, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return nil, apperr.Validation("", "invalid batch id: %v", err)
	}
	var movements []model.ExternalMovement
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", id).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	res := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		res = append(res, toMovementResponse(m))
	}
	return res, nil
}

func (s *externalService) ListOverdue(ctx context.Context, asOf time.Time) ([]MovementResponse, error) {
	var movements []model.ExternalMovement
	if err := s.db.WithContext(ctx).
		Where("expected_return_at < ?", asOf).
		Where("status NOT IN ?", []string{model.MovementStatusReturned, model.MovementStatusForwarded}).
		Order("expected_return_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	res := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		if !m.Overdue(asOf) {
			continue
		}
		res = append(res, toMovementResponse(m))
	}
	if len(res) > 0 {
		s.notifier.Notify(ctx, "Overdue at partners",
			fmt.Sprintf("%d movement(s) past their expected return date", len(res)), "")
	}
	return res, nil
}

// --- Helpers ---

func toMovementResponse(m model.ExternalMovement) MovementResponse {
	resp := MovementResponse{
		ID:               m.ID.String(),
		BatchID:          m.BatchID.String(),
		PartnerID:        m.PartnerID.String(),
		PartnerName:      m.PartnerName,
		ProcessStep:      m.ProcessStep,
		QtySent:          m.QtySent,
		QtyReturned:      m.QtyReturned,
		QtyRejected:      m.QtyRejected,
		Outstanding:      m.Outstanding(),
		Status:           m.Status,
		ExpectedReturnAt: m.ExpectedReturnAt,
		CreatedAt:        m.CreatedAt,
	}
	if m.ForwardedToID != nil {
		s := m.ForwardedToID.String()
		resp.ForwardedToID = &s
	}
	return resp
}
