package service

import (
	"context"

	"forgeline/internal/model"
	"forgeline/internal/repository"
)

// AuditService reads the append-only audit trail. Writes happen inside the
// mutating services' transactions, never through this interface.
type AuditService interface {
	List(ctx context.Context, page, limit int, action string) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) List(ctx context.Context, page, limit int, action string) ([]model.AuditLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, page, limit, action)
}
