package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forgeline/internal/model"
	"forgeline/internal/repository"
	"forgeline/pkg/apperr"

	"gorm.io/gorm"
)

// Document number prefixes
const (
	SeqWorkOrder  = "WO"
	SeqBatch      = "BA"
	SeqQCRecord   = "QC"
	SeqLot        = "LOT"
	SeqDispatch   = "DN"
	SeqSalesOrder = "SO"
)

// SequenceService hands out immutable human-facing document numbers of the form
// {PREFIX}-{YYYYMMDD}-{00001}. Claims run inside the caller's transaction with a
// compare-and-swap on the counter row, so concurrent callers never get the same
// number.
type SequenceService interface {
	Next(ctx context.Context, prefix string) (string, error)
}

type sequenceService struct {
	db *gorm.DB
}

func NewSequenceService(db *gorm.DB) SequenceService {
	return &sequenceService{db: db}
}

func (s *sequenceService) Next(ctx context.Context, prefix string) (string, error) {
	day := time.Now().Format("20060102")
	name := prefix + "-" + day
	db := repository.GetDB(ctx, s.db)

	for attempt := 0; attempt < 5; attempt++ {
		var seq model.DocumentSequence
		err := db.First(&seq, "name = ?", name).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = model.DocumentSequence{Name: name, NextValue: 2}
			if createErr := db.Create(&seq).Error; createErr != nil {
				// Lost the creation race; reload and CAS instead
				continue
			}
			return fmt.Sprintf("%s-%05d", name, 1), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to load sequence %s: %w", name, err)
		}

		res := db.Model(&model.DocumentSequence{}).
			Where("name = ? AND next_value = ?", name, seq.NextValue).
			Update("next_value", seq.NextValue+1)
		if res.Error != nil {
			return "", fmt.Errorf("failed to advance sequence %s: %w", name, res.Error)
		}
		if res.RowsAffected == 1 {
			return fmt.Sprintf("%s-%05d", name, seq.NextValue), nil
		}
	}

	return "", apperr.Contention("sequence %s is contended", name)
}
