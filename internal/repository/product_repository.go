package repository

import (
	"context"

	"storefront/internal/domain"
)

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	// FindByID returns nil and no error when the product does not exist.
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	// Update returns false when the product does not exist.
	Update(ctx context.Context, p *domain.Product) (bool, error)
	// Delete returns false when the product does not exist.
	Delete(ctx context.Context, id uint64) (bool, error)
	Stats(ctx context.Context, lowStockThreshold int) (domain.ProductStats, error)
}
