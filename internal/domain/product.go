package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	ImageURL    *string         `json:"image_url"`
	Category    *string         `json:"category" gorm:"size:100;index"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// Purchasable reports whether the product can be put in a cart.
func (p Product) Purchasable() bool {
	return p.Price.IsPositive() && p.Stock > 0
}

type ProductStats struct {
	TotalProducts    int64           `json:"total_products"`
	InventoryValue   decimal.Decimal `json:"inventory_value"`
	LowStockProducts int64           `json:"low_stock_products"`
}
