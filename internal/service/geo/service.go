package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

const chargerCacheTTL = 10 * time.Minute

// Service implements ports.GeoService backed by the charger repository with
// a read-through cache on charger lookups.
type Service struct {
	repo  ports.ChargerRepository
	cache ports.Cache
	log   *zap.Logger
}

// NewService creates a new geo service
func NewService(repo ports.ChargerRepository, cache ports.Cache, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetCharger retrieves a charger by ID
func (s *Service) GetCharger(ctx context.Context, id string) (*domain.Charger, error) {
	if id == "" {
		return nil, errors.New("charger id cannot be empty")
	}

	cacheKey := fmt.Sprintf("charger:%s", id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != "" {
			var charger domain.Charger
			if err := json.Unmarshal([]byte(data), &charger); err == nil {
				return &charger, nil
			}
		}
	}

	charger, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find charger: %w", err)
	}
	if charger == nil {
		return nil, nil
	}

	if s.cache != nil {
		if data, err := json.Marshal(charger); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), chargerCacheTTL); err != nil {
				s.log.Warn("Failed to cache charger", zap.String("charger_id", id), zap.Error(err))
			}
		}
	}

	return charger, nil
}

// NearestCharger returns the closest charger within radiusM of the point,
// or nil when none is in range
func (s *Service) NearestCharger(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error) {
	charger, err := s.repo.FindNearest(ctx, lat, lng, radiusM)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest charger: %w", err)
	}
	return charger, nil
}

// NearbyChargers lists chargers within radiusM of the point, nearest first
func (s *Service) NearbyChargers(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error) {
	chargers, err := s.repo.FindNearby(ctx, lat, lng, radiusM, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby chargers: %w", err)
	}
	return chargers, nil
}
