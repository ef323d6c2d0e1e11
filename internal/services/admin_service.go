package services

import (
	"context"
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const exportTimeFormat = "2006-01-02 15:04:05"

type Dashboard struct {
	domain.ProductStats
	TotalOrders    int64                        `json:"total_orders"`
	PendingOrders  int64                        `json:"pending_orders"`
	OrdersByStatus map[domain.OrderStatus]int64 `json:"orders_by_status"`
}

type AdminService struct {
	products          repository.ProductRepository
	orders            repository.OrderRepository
	lowStockThreshold int
}

func NewAdminService(products repository.ProductRepository, orders repository.OrderRepository, lowStockThreshold int) *AdminService {
	return &AdminService{
		products:          products,
		orders:            orders,
		lowStockThreshold: lowStockThreshold,
	}
}

// Dashboard gathers the catalog and order aggregates concurrently.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		stats  domain.ProductStats
		counts map[domain.OrderStatus]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.products.Stats(gctx, s.lowStockThreshold)
		if err != nil {
			return fmt.Errorf("product stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = s.orders.CountByStatus(gctx)
		if err != nil {
			return fmt.Errorf("order counts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		ProductStats:   stats,
		OrdersByStatus: make(map[domain.OrderStatus]int64, len(domain.OrderStatuses)),
	}
	for _, st := range domain.OrderStatuses {
		d.OrdersByStatus[st] = counts[st]
		d.TotalOrders += counts[st]
	}
	d.PendingOrders = counts[domain.StatusPending]
	return d, nil
}

var exportHeaders = []string{"ID", "Name", "Category", "Description", "Price", "Stock", "Image URL", "Created At", "Updated At"}

// ExportProducts writes the whole catalog to w as an xlsx workbook.
func (s *AdminService) ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := s.products.List(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt64(int64(p.ID))
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(deref(p.Category))
		row.AddCell().SetString(deref(p.Description))
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(deref(p.ImageURL))
		row.AddCell().SetString(p.CreatedAt.Format(exportTimeFormat))
		row.AddCell().SetString(p.UpdatedAt.Format(exportTimeFormat))
	}

	return file.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
