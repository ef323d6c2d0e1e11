// Package checkout turns a session cart and a customer form into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/services"
	"storefront/internal/validation"
)

var ErrEmptyCart = errors.New("cart is empty")

type OrderCreator interface {
	CreateOrder(ctx context.Context, in services.CreateOrderInput) (*domain.Order, error)
}

type Confirmation struct {
	OrderID  uint64 `json:"order_id"`
	Redirect string `json:"redirect"`
	Quote    Quote  `json:"quote"`
}

type Orchestrator struct {
	orders   OrderCreator
	shipping ShippingPolicy
	methods  []domain.PaymentMethod
	validate *validator.Validate
}

func NewOrchestrator(orders OrderCreator, shipping ShippingPolicy, methods []domain.PaymentMethod) *Orchestrator {
	if len(methods) == 0 {
		methods = []domain.PaymentMethod{domain.PaymentCard, domain.PaymentPayPal, domain.PaymentBank}
	}
	v := validation.New()
	v.RegisterStructValidation(formRules(methods), Form{})

	return &Orchestrator{
		orders:   orders,
		shipping: shipping,
		methods:  methods,
		validate: v,
	}
}

func (o *Orchestrator) PaymentMethods() []domain.PaymentMethod {
	return append([]domain.PaymentMethod(nil), o.methods...)
}

func (o *Orchestrator) Quote(c *cart.Cart, tier string) (Quote, error) {
	t, err := domain.ParseShippingTier(tier)
	if err != nil {
		return Quote{}, err
	}
	snap := c.Snapshot()
	return o.shipping.Quote(t, snap.TotalPrice, snap.TotalItems), nil
}

// Submit places an order for the current contents of c. The cart is cleared
// only after the order and its items were written; on any error it is left
// as it was.
func (o *Orchestrator) Submit(ctx context.Context, c *cart.Cart, form Form) (*Confirmation, error) {
	snap := c.Snapshot()
	if len(snap.Lines) == 0 {
		metrics.CheckoutRejections.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	form = form.normalize()
	if err := o.validate.Struct(form); err != nil {
		metrics.CheckoutRejections.WithLabelValues("invalid_form").Inc()
		return nil, validation.FromValidator(err)
	}

	quote := o.shipping.Quote(form.ShippingTier, snap.TotalPrice, snap.TotalItems)

	in := services.CreateOrderInput{
		CustomerName:    form.CustomerName,
		CustomerEmail:   form.CustomerEmail,
		CustomerPhone:   form.CustomerPhone,
		ShippingAddress: form.ShippingAddress,
		BillingAddress:  form.billing(),
		PaymentMethod:   form.PaymentMethod,
		ShippingTier:    form.ShippingTier,
		ShippingCost:    quote.Shipping,
		TotalAmount:     quote.Total,
		Items:           make([]services.OrderItemInput, 0, len(snap.Lines)),
	}
	for _, l := range snap.Lines {
		in.Items = append(in.Items, services.OrderItemInput{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}

	order, err := o.orders.CreateOrder(ctx, in)
	if err != nil {
		metrics.CheckoutRejections.WithLabelValues("order_failed").Inc()
		return nil, err
	}

	c.Clear()
	log.Info().Uint64("order_id", order.ID).Str("total", quote.Total.StringFixed(2)).Msg("checkout completed")

	return &Confirmation{
		OrderID:  order.ID,
		Redirect: fmt.Sprintf("/order-confirmation/%d", order.ID),
		Quote:    quote,
	}, nil
}
