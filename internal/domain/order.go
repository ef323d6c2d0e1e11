package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSchemaVersion is stamped on every order written by this service.
const OrderSchemaVersion uint8 = 1

var (
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidShippingTier  = errors.New("invalid shipping tier")
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentBank         PaymentMethod = "bank"
	PaymentMobileWallet PaymentMethod = "mobile_wallet"
	PaymentCOD          PaymentMethod = "cod"
)

var PaymentMethods = []PaymentMethod{
	PaymentCard,
	PaymentPayPal,
	PaymentBank,
	PaymentMobileWallet,
	PaymentCOD,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PaymentMethods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

type ShippingTier string

const (
	ShippingStandard ShippingTier = "standard"
	ShippingExpress  ShippingTier = "express"
)

func ParseShippingTier(s string) (ShippingTier, error) {
	switch t := ShippingTier(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ShippingStandard, nil
	case ShippingStandard, ShippingExpress:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidShippingTier, s)
	}
}

type Address struct {
	Street  string `json:"street" binding:"required,min=5" gorm:"size:255"`
	City    string `json:"city" binding:"required,min=2" gorm:"size:100"`
	State   string `json:"state" binding:"required,min=2" gorm:"size:100"`
	ZipCode string `json:"zip_code" binding:"required,min=5" gorm:"size:20"`
	Country string `json:"country" binding:"required,min=2" gorm:"size:100"`
}

type Order struct {
	ID              uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	SchemaVersion   uint8           `json:"schema_version" gorm:"not null;default:1"`
	CustomerName    string          `json:"customer_name" gorm:"size:255;not null"`
	CustomerEmail   string          `json:"customer_email" gorm:"size:255;not null;index"`
	CustomerPhone   string          `json:"customer_phone,omitempty" gorm:"size:40"`
	ShippingAddress Address         `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address         `json:"billing_address" gorm:"embedded;embeddedPrefix:billing_"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"size:32"`
	ShippingTier    ShippingTier    `json:"shipping_tier" gorm:"size:32"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	ShippingCost    decimal.Decimal `json:"shipping_cost" gorm:"type:decimal(12,2);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	Items           []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// Validate checks the record against the current order schema. It runs at
// the persistence boundary on both writes and reads.
func (o *Order) Validate() error {
	switch {
	case o.SchemaVersion != OrderSchemaVersion:
		return fmt.Errorf("order %d: unsupported schema version %d", o.ID, o.SchemaVersion)
	case strings.TrimSpace(o.CustomerName) == "":
		return fmt.Errorf("order %d: customer name is empty", o.ID)
	case strings.TrimSpace(o.CustomerEmail) == "":
		return fmt.Errorf("order %d: customer email is empty", o.ID)
	case o.TotalAmount.IsNegative():
		return fmt.Errorf("order %d: negative total %s", o.ID, o.TotalAmount)
	case !o.Status.Valid():
		return fmt.Errorf("order %d: %w: %q", o.ID, ErrInvalidStatus, o.Status)
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type OrderItem struct {
	ID        uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64          `json:"order_id" gorm:"not null;index"`
	ProductID uint64          `json:"product_id" gorm:"not null;index"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (i OrderItem) Validate() error {
	switch {
	case i.OrderID == 0:
		return errors.New("order item: missing order reference")
	case i.ProductID == 0:
		return errors.New("order item: missing product reference")
	case i.Quantity < 1:
		return fmt.Errorf("order item for product %d: quantity %d", i.ProductID, i.Quantity)
	case !i.Price.IsPositive():
		return fmt.Errorf("order item for product %d: price %s", i.ProductID, i.Price)
	}
	return nil
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderFilter struct {
	Status OrderStatus
	Search string
}
