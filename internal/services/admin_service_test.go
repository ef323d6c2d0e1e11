package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"storefront/internal/domain"
	"storefront/internal/mocks"
)

func TestAdminService_Dashboard(t *testing.T) {
	products := new(mocks.MockProductRepository)
	orders := new(mocks.MockOrderRepository)

	products.On("Stats", mock.Anything, 10).Return(domain.ProductStats{
		TotalProducts:    4,
		InventoryValue:   decimal.RequireFromString("120.50"),
		LowStockProducts: 1,
	}, nil)
	orders.On("CountByStatus", mock.Anything).Return(map[domain.OrderStatus]int64{
		domain.StatusPending: 3,
		domain.StatusShipped: 2,
	}, nil)

	d, err := NewAdminService(products, orders, 10).Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), d.TotalProducts)
	assert.Equal(t, "120.50", d.InventoryValue.StringFixed(2))
	assert.Equal(t, int64(1), d.LowStockProducts)
	assert.Equal(t, int64(5), d.TotalOrders)
	assert.Equal(t, int64(3), d.PendingOrders)
	assert.Equal(t, int64(0), d.OrdersByStatus[domain.StatusCancelled])
	assert.Len(t, d.OrdersByStatus, len(domain.OrderStatuses))
}

func TestAdminService_Dashboard_Error(t *testing.T) {
	products := new(mocks.MockProductRepository)
	orders := new(mocks.MockOrderRepository)

	products.On("Stats", mock.Anything, 5).Return(domain.ProductStats{}, nil)
	orders.On("CountByStatus", mock.Anything).Return(nil, errors.New("database error"))

	d, err := NewAdminService(products, orders, 5).Dashboard(context.Background())
	assert.Nil(t, d)
	assert.ErrorContains(t, err, "order counts: database error")
}

func TestAdminService_ExportProducts(t *testing.T) {
	products := new(mocks.MockProductRepository)
	category := "Lighting"
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	products.On("List", mock.Anything).Return([]domain.Product{
		{ID: 1, Name: "Desk Lamp", Category: &category, Price: decimal.RequireFromString("19.9"), Stock: 4, CreatedAt: created, UpdatedAt: created},
		{ID: 2, Name: "Bulb", Price: decimal.RequireFromString("2.5"), Stock: 0, CreatedAt: created, UpdatedAt: created},
	}, nil)

	var buf bytes.Buffer
	err := NewAdminService(products, nil, 10).ExportProducts(context.Background(), &buf)
	require.NoError(t, err)

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	rows := file.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0].Cells[1].Value)
	assert.Equal(t, "Desk Lamp", rows[1].Cells[1].Value)
	assert.Equal(t, "Lighting", rows[1].Cells[2].Value)
	assert.Equal(t, "19.90", rows[1].Cells[4].Value)
	assert.Equal(t, "4", rows[1].Cells[5].Value)
	assert.Equal(t, "2026-01-02 03:04:05", rows[1].Cells[7].Value)
	assert.Equal(t, "", rows[2].Cells[2].Value)
}

func TestAdminService_ExportProducts_ListError(t *testing.T) {
	products := new(mocks.MockProductRepository)
	products.On("List", mock.Anything).Return(nil, errors.New("timeout"))

	var buf bytes.Buffer
	err := NewAdminService(products, nil, 10).ExportProducts(context.Background(), &buf)
	assert.ErrorContains(t, err, "list products: timeout")
	assert.Zero(t, buf.Len())
}
