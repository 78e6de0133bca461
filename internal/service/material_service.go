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

// DTOs

type ReceiveLotRequest struct {
	HeatNumber  string          `json:"heat_number" binding:"required"`
	Alloy       string          `json:"alloy"`
	Supplier    string          `json:"supplier" binding:"required"`
	GrossWeight decimal.Decimal `json:"gross_weight" binding:"required"`
	NetWeight   decimal.Decimal `json:"net_weight" binding:"required"`
}

type IssueMaterialRequest struct {
	LotID       string          `json:"lot_id" binding:"required"`
	WorkOrderID string          `json:"work_order_id" binding:"required"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
}

type LotResponse struct {
	ID           string `json:"id"`
	LotNumber    string `json:"lot_number"`
	HeatNumber   string `json:"heat_number"`
	Alloy        string `json:"alloy"`
	Supplier     string `json:"supplier"`
	GrossWeight  string `json:"gross_weight"`
	NetWeight    string `json:"net_weight"`
	IssuedWeight string `json:"issued_weight"`
	Available    string `json:"available"`
	Status       string `json:"status"`
}

// MaterialService is the material ledger: lots of raw material, their receipt,
// consumption through issues, and remaining quantity.
type MaterialService interface {
	ReceiveLot(ctx context.Context, userID string, req ReceiveLotRequest) (LotResponse, error)
	Issue(ctx context.Context, userID string, req IssueMaterialRequest) error
	AvailableQty(ctx context.Context, lotID string) (decimal.Decimal, error)
	ListLots(ctx context.Context, page, limit int, status string) ([]LotResponse, int64, error)
	ListIssues(ctx context.Context, lotID string) ([]model.MaterialIssue, error)
}

type materialService struct {
	materialRepo  repository.MaterialRepository
	workOrderRepo repository.WorkOrderRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	seq           SequenceService
}

func NewMaterialService(
	materialRepo repository.MaterialRepository,
	workOrderRepo repository.WorkOrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	seq SequenceService,
) MaterialService {
	return &materialService{
		materialRepo:  materialRepo,
		workOrderRepo: workOrderRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		seq:           seq,
	}
}

func (s *materialService) ReceiveLot(ctx context.Context, userID string, req ReceiveLotRequest) (LotResponse, error) {
	if req.NetWeight.LessThanOrEqual(decimal.Zero) {
		return LotResponse{}, apperr.Validation(apperr.CodeNegativeQuantity, "net weight must be positive")
	}
	if req.GrossWeight.LessThan(req.NetWeight) {
		return LotResponse{}, apperr.Validation("", "gross weight %s is below net weight %s", req.GrossWeight, req.NetWeight)
	}

	lot := model.MaterialLot{
		HeatNumber:   req.HeatNumber,
		Alloy:        req.Alloy,
		Supplier:     req.Supplier,
		GrossWeight:  req.GrossWeight,
		NetWeight:    req.NetWeight,
		IssuedWeight: decimal.Zero,
		Status:       model.LotStatusReceived,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		lotNumber, seqErr := s.seq.Next(txCtx, SeqLot)
		if seqErr != nil {
			return seqErr
		}
		lot.LotNumber = lotNumber

		if err := s.materialRepo.CreateLot(txCtx, &lot); err != nil {
			return fmt.Errorf("failed to create lot: %w", err)
		}

		details, _ := json.Marshal(req)
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionReceiveLot,
			EntityID:   lot.ID.String(),
			EntityName: lot.LotNumber,
			Details:    string(details),
		})
	})
	if err != nil {
		return LotResponse{}, err
	}

	return toLotResponse(lot), nil
}

func (s *materialService) Issue(ctx context.Context, userID string, req IssueMaterialRequest) error {
	lotID, err := uuid.Parse(req.LotID)
	if err != nil {
		return apperr.Validation("", "invalid lot id: %v", err)
	}
	workOrderID, err := uuid.Parse(req.WorkOrderID)
	if err != nil {
		return apperr.Validation("", "invalid work order id: %v", err)
	}
	if req.Qty.LessThanOrEqual(decimal.Zero) {
		return apperr.Validation(apperr.CodeNegativeQuantity, "issue quantity must be positive, got %s", req.Qty)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		lot, findErr := s.materialRepo.FindLotByID(txCtx, lotID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("material lot", req.LotID)
			}
			return fmt.Errorf("failed to load lot: %w", findErr)
		}

		if _, findErr := s.workOrderRepo.FindByID(txCtx, workOrderID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("work order", req.WorkOrderID)
			}
			return fmt.Errorf("failed to load work order: %w", findErr)
		}

		available := lot.Available()
		if req.Qty.GreaterThan(available) {
			return apperr.Precondition(apperr.CodeInsufficientStock, []string{
				fmt.Sprintf("lot %s has %s kg available, %s kg requested", lot.LotNumber, available, req.Qty),
			})
		}

		issue := model.MaterialIssue{
			MaterialLotID: lotID,
			WorkOrderID:   workOrderID,
			Qty:           req.Qty,
			IssuedBy:      parseUserID(userID),
		}
		if err := s.materialRepo.CreateIssue(txCtx, &issue); err != nil {
			return fmt.Errorf("failed to record issue: %w", err)
		}

		expected := lot.Version
		lot.Version++
		lot.IssuedWeight = lot.IssuedWeight.Add(req.Qty)
		switch {
		case lot.Available().IsZero():
			lot.Status = model.LotStatusConsumed
		case lot.Status == model.LotStatusReceived:
			lot.Status = model.LotStatusIssued
		}
		if err := s.materialRepo.SaveLot(txCtx, lot, expected); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"lot_number":    lot.LotNumber,
			"work_order_id": req.WorkOrderID,
			"qty":           req.Qty.String(),
			"remaining":     lot.Available().String(),
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionIssueMaterial,
			EntityID:   lot.ID.String(),
			EntityName: lot.LotNumber,
			Details:    string(details),
		})
	})
}

// AvailableQty computes net weight minus the sum of issues inside one
// transaction, so a concurrent issue cannot skew the answer.
func (s *materialService) AvailableQty(ctx context.Context, lotID string) (decimal.Decimal, error) {
	id, err := uuid.Parse(lotID)
	if err != nil {
		return decimal.Zero, apperr.Validation("", "invalid lot id: %v", err)
	}

	var available decimal.Decimal
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		lot, findErr := s.materialRepo.FindLotByID(txCtx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("material lot", lotID)
			}
			return findErr
		}
		issued, sumErr := s.materialRepo.SumIssues(txCtx, id)
		if sumErr != nil {
			return fmt.Errorf("failed to sum issues: %w", sumErr)
		}
		available = lot.NetWeight.Sub(issued)
		return nil
	})
	return available, err
}

func (s *materialService) ListLots(ctx context.Context, page, limit int, status string) ([]LotResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	lots, total, err := s.materialRepo.ListLots(ctx, page, limit, status)
	if err != nil {
		return nil, 0, err
	}
	res := make([]LotResponse, 0, len(lots))
	for _, l := range lots {
		res = append(res, toLotResponse(l))
	}
	return res, total, nil
}

func (s *materialService) ListIssues(ctx context.Context, lotID string) ([]model.MaterialIssue, error) {
	id, err := uuid.Parse(lotID)
	if err != nil {
		return nil, apperr.Validation("", "invalid lot id: %v", err)
	}
	return s.materialRepo.ListIssues(ctx, id)
}

// Helpers

func toLotResponse(l model.MaterialLot) LotResponse {
	return LotResponse{
		ID:           l.ID.String(),
		LotNumber:    l.LotNumber,
		HeatNumber:   l.HeatNumber,
		Alloy:        l.Alloy,
		Supplier:     l.Supplier,
		GrossWeight:  l.GrossWeight.String(),
		NetWeight:    l.NetWeight.String(),
		IssuedWeight: l.IssuedWeight.String(),
		Available:    l.Available().String(),
		Status:       l.Status,
	}
}

func parseUserID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}
