package gormrepo

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		log.Error().Err(err).Msg("product list failed")
		return nil, err
	}
	return out, nil
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Error().Err(err).Uint64("product_id", id).Msg("product lookup failed")
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) (bool, error) {
	var existing domain.Product
	if err := r.db.WithContext(ctx).Select("id", "created_at").First(&existing, p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	p.CreatedAt = existing.CreatedAt

	err := r.db.WithContext(ctx).Model(p).
		Select("name", "description", "price", "image_url", "category", "stock").
		Updates(p).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *productRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Product{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) Stats(ctx context.Context, lowStockThreshold int) (domain.ProductStats, error) {
	var row struct {
		Total          int64
		InventoryValue decimal.NullDecimal
		LowStock       int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Select("COUNT(*) AS total, SUM(price * stock) AS inventory_value, "+
			"COALESCE(SUM(CASE WHEN stock <= ? THEN 1 ELSE 0 END), 0) AS low_stock", lowStockThreshold).
		Scan(&row).Error
	if err != nil {
		return domain.ProductStats{}, err
	}

	stats := domain.ProductStats{
		TotalProducts:    row.Total,
		InventoryValue:   decimal.Zero,
		LowStockProducts: row.LowStock,
	}
	if row.InventoryValue.Valid {
		stats.InventoryValue = row.InventoryValue.Decimal
	}
	return stats, nil
}
