package repository

import (
	"context"

	"storefront/internal/domain"
)

// OrderRepository exposes no transactions: creating an order and its items
// are two separate calls.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	SaveItems(ctx context.Context, items []domain.OrderItem) error
	Delete(ctx context.Context, id uint64) error
	// FindByID returns nil and no error when the order does not exist.
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// UpdateStatus returns nil and no error when the order does not exist.
	UpdateStatus(ctx context.Context, id uint64, status domain.OrderStatus) (*domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
}
