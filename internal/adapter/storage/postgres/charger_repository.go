package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

type ChargerRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewChargerRepository(db *gorm.DB, log *zap.Logger) ports.ChargerRepository {
	return &ChargerRepository{
		db:  db,
		log: log,
	}
}

func (r *ChargerRepository) FindByID(ctx context.Context, id string) (*domain.Charger, error) {
	var c domain.Charger
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Haversine distance in meters, evaluated in SQL so the radius filter and
// ordering happen in the database.
const haversineSQL = `
	SELECT * FROM chargers
	WHERE (
		6371000 * 2 * ASIN(SQRT(
			POWER(SIN(RADIANS(latitude - ?) / 2), 2) +
			COS(RADIANS(?)) * COS(RADIANS(latitude)) *
			POWER(SIN(RADIANS(longitude - ?) / 2), 2)
		))
	) <= ?
	ORDER BY (
		6371000 * 2 * ASIN(SQRT(
			POWER(SIN(RADIANS(latitude - ?) / 2), 2) +
			COS(RADIANS(?)) * COS(RADIANS(latitude)) *
			POWER(SIN(RADIANS(longitude - ?) / 2), 2)
		))
	) ASC
	LIMIT ?`

func (r *ChargerRepository) FindNearest(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error) {
	chargers, err := r.FindNearby(ctx, lat, lng, radiusM, 1)
	if err != nil {
		return nil, err
	}
	if len(chargers) == 0 {
		return nil, nil
	}
	return &chargers[0], nil
}

func (r *ChargerRepository) FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error) {
	if limit <= 0 {
		limit = 20
	}

	var chargers []domain.Charger
	result := r.db.WithContext(ctx).Raw(
		haversineSQL,
		lat, lat, lng, radiusM,
		lat, lat, lng,
		limit,
	).Scan(&chargers)

	if result.Error != nil {
		r.log.Error("Failed to find nearby chargers",
			zap.Float64("lat", lat),
			zap.Float64("lng", lng),
			zap.Float64("radius_m", radiusM),
			zap.Error(result.Error),
		)
		return nil, result.Error
	}

	return chargers, nil
}
