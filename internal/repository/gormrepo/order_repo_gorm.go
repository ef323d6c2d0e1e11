package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const itemBatchSize = 100

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

// Save inserts the order row only; items are written by SaveItems.
func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	if err := order.Validate(); err != nil {
		return fmt.Errorf("reject order: %w", err)
	}

	result := r.db.WithContext(ctx).Omit(clause.Associations).Create(order)
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("order save failed")
		return result.Error
	}
	if order.ID == 0 {
		log.Warn().Int64("rows", result.RowsAffected).Msg("order saved but no id assigned")
		return errors.New("failed to assign order ID")
	}

	log.Debug().Uint64("order_id", order.ID).Msg("order saved")
	return nil
}

// SaveItems writes all items in one transaction, chunked.
func (r *orderRepo) SaveItems(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("reject order item: %w", err)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < len(items); i += itemBatchSize {
			end := min(i+itemBatchSize, len(items))
			batch := items[i:end]
			if err := tx.Omit("Product").Create(&batch).Error; err != nil {
				return err
			}
			for _, item := range batch {
				if item.ID == 0 {
					return errors.New("batch insert failed to assign IDs")
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("items", len(items)).Msg("order items save failed")
		return err
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Order{}, id).Error
	})
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.withItems(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Error().Err(err).Uint64("order_id", id).Msg("order lookup failed")
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("malformed order record: %w", err)
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	q := r.withItems(ctx).Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			q = q.Where("LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ? OR id = ?", like, like, id)
		} else {
			q = q.Where("LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?", like, like)
		}
	}

	var out []domain.Order
	if err := q.Find(&out).Error; err != nil {
		log.Error().Err(err).Msg("order list failed")
		return nil, err
	}
	valid := out[:0]
	for _, o := range out {
		if err := o.Validate(); err != nil {
			log.Warn().Err(err).Msg("skipping malformed order record")
			continue
		}
		valid = append(valid, o)
	}
	return valid, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	found := true
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o domain.Order
		if err := tx.Select("id").First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		return tx.Model(&o).Update("status", status).Error
	})
	if err != nil {
		log.Error().Err(err).Uint64("order_id", id).Msg("order status update failed")
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *orderRepo) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	var rows []struct {
		Status domain.OrderStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// withItems preloads items and their products, including soft-deleted ones,
// so an order always shows what was bought.
func (r *orderRepo) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}
