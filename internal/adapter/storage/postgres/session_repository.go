package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

type SessionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSessionRepository(db *gorm.DB, log *zap.Logger) ports.SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log,
	}
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.ArrivalSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*domain.ArrivalSession, error) {
	var s domain.ArrivalSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) FindActiveByDriverID(ctx context.Context, driverID string) (*domain.ArrivalSession, error) {
	var s domain.ArrivalSession
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND status IN ?", driverID, domain.NonTerminalStatuses).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) FindByDriverID(ctx context.Context, driverID string, limit, offset int) ([]domain.ArrivalSession, error) {
	var sessions []domain.ArrivalSession
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	return sessions, err
}

// TransitionStatus performs the conditional update that backs every state
// transition. The status guard in the WHERE clause is what makes concurrent
// transitions safe: only one caller's UPDATE matches.
func (r *SessionRepository) TransitionStatus(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if update != nil {
		if update.OrderNumber != nil {
			values["order_number"] = *update.OrderNumber
		}
		if update.EstimatedTotalCents != nil {
			values["estimated_total_cents"] = *update.EstimatedTotalCents
		}
		if update.MerchantTotalCents != nil {
			values["merchant_reported_total_cents"] = *update.MerchantTotalCents
		}
		if update.POSTotalCents != nil {
			values["pos_total_cents"] = *update.POSTotalCents
		}
		if update.ConfirmMode != nil {
			values["confirm_mode"] = *update.ConfirmMode
		}
		if update.ArrivalAccuracyM != nil {
			values["arrival_accuracy_m"] = *update.ArrivalAccuracyM
		}
		if update.CompletedAt != nil {
			values["completed_at"] = *update.CompletedAt
		}
	}

	result := r.db.WithContext(ctx).
		Model(&domain.ArrivalSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *SessionRepository) CountCompletedSince(ctx context.Context, driverID string, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ArrivalSession{}).
		Where("driver_id = ? AND status IN ? AND created_at >= ?",
			driverID,
			[]domain.ArrivalStatus{domain.ArrivalStatusCompleted, domain.ArrivalStatusUnbillable},
			since,
		).
		Count(&count).Error
	return int(count), err
}

// ExpireStale is a single conditional bulk UPDATE, not a read-then-write
// loop. A session a concurrent request already moved to a terminal status no
// longer matches the WHERE clause and is left untouched, which also makes a
// repeated sweep over the same rows a no-op.
func (r *SessionRepository) ExpireStale(ctx context.Context, now time.Time) ([]domain.ArrivalSession, error) {
	var expired []domain.ArrivalSession
	err := r.db.WithContext(ctx).Raw(`
		UPDATE arrival_sessions
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE status IN ? AND expires_at <= ?
		RETURNING *`,
		domain.ArrivalStatusExpired, now, now,
		domain.NonTerminalStatuses, now,
	).Scan(&expired).Error
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		r.log.Info("Expired stale arrival sessions", zap.Int("count", len(expired)))
	}
	return expired, nil
}
