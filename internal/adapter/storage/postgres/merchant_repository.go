package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

type MerchantRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMerchantRepository(db *gorm.DB, log *zap.Logger) ports.MerchantRepository {
	return &MerchantRepository{
		db:  db,
		log: log,
	}
}

func (r *MerchantRepository) FindByID(ctx context.Context, id string) (*domain.Merchant, error) {
	var m domain.Merchant
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
