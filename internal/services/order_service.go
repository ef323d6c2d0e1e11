package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	rabbit "storefront/internal/infra/rabbitmq"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
)

const compensationTimeout = 10 * time.Second

type OrderItemInput struct {
	ProductID uint64          `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Price     decimal.Decimal `json:"price" binding:"required,gt=0"`
}

// CreateOrderInput is what a checkout submits: customer details, totals and
// the line items as priced at submission time.
type CreateOrderInput struct {
	CustomerName    string               `json:"customer_name" binding:"required,min=2"`
	CustomerEmail   string               `json:"customer_email" binding:"required,email"`
	CustomerPhone   string               `json:"customer_phone"`
	ShippingAddress domain.Address       `json:"shipping_address"`
	BillingAddress  domain.Address       `json:"billing_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method" binding:"required"`
	ShippingTier    domain.ShippingTier  `json:"shipping_tier"`
	ShippingCost    decimal.Decimal      `json:"shipping_cost"`
	TotalAmount     decimal.Decimal      `json:"total_amount" binding:"required,gt=0"`
	Items           []OrderItemInput     `json:"items" binding:"required,min=1,dive"`
}

func (in CreateOrderInput) subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range in.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (in CreateOrderInput) validate() error {
	if strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.CustomerEmail) == "" {
		return fmt.Errorf("%w: customer name and email are required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	seen := make(map[uint64]bool, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == 0 || it.Quantity < 1 || !it.Price.IsPositive() {
			return fmt.Errorf("%w: item for product %d has quantity %d and price %s",
				ErrInvalidOrder, it.ProductID, it.Quantity, it.Price)
		}
		if seen[it.ProductID] {
			return fmt.Errorf("%w: product %d listed twice", ErrInvalidOrder, it.ProductID)
		}
		seen[it.ProductID] = true
	}
	if in.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: negative shipping cost", ErrInvalidOrder)
	}
	if in.TotalAmount.LessThan(in.subtotal()) {
		return fmt.Errorf("%w: total %s is below items subtotal %s", ErrInvalidOrder, in.TotalAmount, in.subtotal())
	}
	if _, err := domain.ParsePaymentMethod(string(in.PaymentMethod)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return nil
}

type OrderService struct {
	repo      repository.OrderRepository
	publisher rabbit.PublisherInterface
}

func NewOrderService(r repository.OrderRepository, pub rabbit.PublisherInterface) *OrderService {
	return &OrderService{
		repo:      r,
		publisher: pub,
	}
}

// CreateOrder writes the order and then its items. If the items cannot be
// written the order is deleted again on a best-effort basis; a crash between
// the two writes still leaves an order without items.
func (u *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tier, err := domain.ParseShippingTier(string(in.ShippingTier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	order := &domain.Order{
		SchemaVersion:   domain.OrderSchemaVersion,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		PaymentMethod:   in.PaymentMethod,
		ShippingTier:    tier,
		Subtotal:        in.subtotal(),
		ShippingCost:    in.ShippingCost,
		TotalAmount:     in.TotalAmount,
		Status:          domain.StatusPending,
		CreatedAt:       time.Now(),
	}

	if err := u.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, domain.OrderItem{
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	if err := u.repo.SaveItems(ctx, items); err != nil {
		u.compensate(ctx, order.ID, err)
		return nil, fmt.Errorf("create order items: %w", err)
	}
	order.Items = items

	metrics.OrdersCreated.Inc()
	log.Info().Uint64("order_id", order.ID).Int("items", len(items)).Str("total", order.TotalAmount.StringFixed(2)).Msg("order created")

	u.publish(ctx, domain.EventOrderCreated, domain.NewOrderCreatedEvent(order))
	return order, nil
}

// compensate deletes an order whose items could not be written. It runs even
// when the request context is already cancelled.
func (u *OrderService) compensate(ctx context.Context, orderID uint64, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := u.repo.Delete(ctx, orderID); err != nil {
		metrics.OrderCompensations.WithLabelValues("failed").Inc()
		log.Error().Err(err).AnErr("cause", cause).Uint64("order_id", orderID).
			Msg("compensating delete failed, order left without items")
		return
	}
	metrics.OrderCompensations.WithLabelValues("deleted").Inc()
	log.Warn().AnErr("cause", cause).Uint64("order_id", orderID).Msg("order rolled back after item failure")
}

func (u *OrderService) publish(ctx context.Context, pattern string, evt any) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, pattern, evt); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("failed to publish event")
	}
}

func (u *OrderService) GetOrderById(ctx context.Context, id uint64) (*domain.Order, error) {
	o, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (u *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, filter.Status)
	}
	orders, err := u.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// UpdateStatus overwrites the order status. Any of the known statuses may
// follow any other.
func (u *OrderService) UpdateStatus(ctx context.Context, id uint64, status string) (*domain.Order, error) {
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	o, err := u.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	log.Info().Uint64("order_id", id).Str("status", string(st)).Msg("order status updated")
	u.publish(ctx, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:   id,
		Status:    st,
		UpdatedAt: o.UpdatedAt,
	})
	return o, nil
}
