package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

type BillingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBillingRepository(db *gorm.DB, log *zap.Logger) ports.BillingRepository {
	return &BillingRepository{
		db:  db,
		log: log,
	}
}

// Create inserts the billing event, relying on the unique index on
// session_id to make the write idempotent. RowsAffected == 0 means the
// session was billed by an earlier call.
func (r *BillingRepository) Create(ctx context.Context, ev *domain.BillingEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(ev)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *BillingRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.BillingEvent, error) {
	var ev domain.BillingEvent
	err := r.db.WithContext(ctx).First(&ev, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

func (r *BillingRepository) FindByPeriod(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error) {
	var events []domain.BillingEvent
	err := r.db.WithContext(ctx).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Order("completed_at asc").
		Find(&events).Error
	return events, err
}
