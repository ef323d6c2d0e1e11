package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

const productListCacheKey = "products:all"

// ProductInput is the validated admin payload for creating or replacing a
// product.
type ProductInput struct {
	Name        string          `json:"name" binding:"required,min=2"`
	Description string          `json:"description" binding:"required,min=10"`
	Price       decimal.Decimal `json:"price" binding:"required,gt=0"`
	Category    string          `json:"category" binding:"required,min=2"`
	Stock       *int            `json:"stock" binding:"required,gte=0"`
	ImageURL    string          `json:"image_url" binding:"omitempty,url"`
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = optional(in.Description)
	p.Price = in.Price.Round(2)
	p.Category = optional(in.Category)
	p.ImageURL = optional(in.ImageURL)
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

type ProductService struct {
	repo        repository.ProductRepository
	cache       infra.CacheClient
	cacheTTL    time.Duration
	listTimeout time.Duration
}

func NewProductService(r repository.ProductRepository, listTimeout time.Duration) *ProductService {
	return &ProductService{
		repo:        r,
		cacheTTL:    time.Minute,
		listTimeout: listTimeout,
	}
}

func (s *ProductService) SetCache(client infra.CacheClient, ttl time.Duration) {
	s.cache = client
	s.cacheTTL = ttl
}

// ListProducts returns the catalog, newest first. It gives up after the
// configured wait and reports ErrCatalogUnavailable.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.listTimeout)
	defer cancel()

	var cached []domain.Product
	if s.getCached(ctx, productListCacheKey, &cached) {
		return cached, nil
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response within %s", ErrCatalogUnavailable, s.listTimeout)
		}
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}

	s.setCached(ctx, productListCacheKey, products)
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	key := productCacheKey(id)

	var cached domain.Product
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	s.setCached(ctx, key, p)
	return p, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidate(ctx, p.ID)
	log.Info().Uint64("product_id", p.ID).Msg("product created")
	return p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uint64, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{ID: id}
	in.apply(p)
	found, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	if !found {
		return nil, ErrProductNotFound
	}

	s.invalidate(ctx, id)
	log.Info().Uint64("product_id", id).Msg("product updated")
	return p, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id uint64) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if !found {
		return ErrProductNotFound
	}

	s.invalidate(ctx, id)
	log.Info().Uint64("product_id", id).Msg("product deleted")
	return nil
}

func (s *ProductService) getCached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	b, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		metrics.CatalogCache.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		metrics.CatalogCache.WithLabelValues("miss").Inc()
		return false
	}
	metrics.CatalogCache.WithLabelValues("hit").Inc()
	return true
}

func (s *ProductService) setCached(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (s *ProductService) invalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, productListCacheKey, productCacheKey(id)).Err(); err != nil {
		log.Warn().Err(err).Uint64("product_id", id).Msg("cache invalidation failed")
	}
}

func productCacheKey(id uint64) string {
	return fmt.Sprintf("product:%d", id)
}
