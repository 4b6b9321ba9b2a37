package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// CreateDeliveryRun records the outcome of one sweep. report is stored as
// JSON alongside the counts.
func CreateDeliveryRun(ctx context.Context, db *gorm.DB, now time.Time, trigger string, delivered, failed int, report any) (*domain.DeliveryRun, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	run := &domain.DeliveryRun{
		ID:             uuid.NewString(),
		Now:            now.UTC(),
		Trigger:        trigger,
		DeliveredCount: delivered,
		FailedCount:    failed,
		Report:         datatypes.JSON(raw),
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// ListDeliveryRuns returns the latest limit runs, newest first.
func ListDeliveryRuns(ctx context.Context, db *gorm.DB, limit int) ([]domain.DeliveryRun, error) {
	var out []domain.DeliveryRun
	err := db.WithContext(ctx).
		Order("run_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
