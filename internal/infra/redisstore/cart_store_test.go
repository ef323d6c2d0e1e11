package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/mocks"
)

func sampleLines() []cart.Line {
	return []cart.Line{{
		Product:  domain.Product{ID: 1, Name: "Mug", Price: decimal.RequireFromString("12.50"), Stock: 4},
		Quantity: 2,
	}}
}

func TestCartStore_Load(t *testing.T) {
	payload, err := json.Marshal(sampleLines())
	require.NoError(t, err)

	tests := []struct {
		name      string
		cmd       *redis.StringCmd
		wantLines int
		wantErr   bool
	}{
		{name: "stored cart", cmd: redis.NewStringResult(string(payload), nil), wantLines: 1},
		{name: "unknown session", cmd: redis.NewStringResult("", redis.Nil), wantLines: 0},
		{name: "redis failure", cmd: redis.NewStringResult("", errors.New("connection refused")), wantErr: true},
		{name: "corrupt payload", cmd: redis.NewStringResult("{not json", nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := new(mocks.MockCache)
			rdb.On("Get", mock.Anything, "cart:session:abc").Return(tt.cmd)

			lines, err := NewCartStore(rdb, time.Hour).Load(context.Background(), "abc")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, lines, tt.wantLines)
			if tt.wantLines > 0 {
				assert.Equal(t, 2, lines[0].Quantity)
				assert.Equal(t, "12.50", lines[0].Product.Price.StringFixed(2))
			}
			rdb.AssertExpectations(t)
		})
	}
}

func TestCartStore_SaveSetsTTL(t *testing.T) {
	rdb := new(mocks.MockCache)
	rdb.On("Set", mock.Anything, "cart:session:abc", mock.AnythingOfType("[]uint8"), 24*time.Hour).
		Return(redis.NewStatusResult("OK", nil))

	err := NewCartStore(rdb, 24*time.Hour).Save(context.Background(), "abc", sampleLines())
	assert.NoError(t, err)
	rdb.AssertExpectations(t)
}

func TestCartStore_SaveEmptyDeletes(t *testing.T) {
	rdb := new(mocks.MockCache)
	rdb.On("Del", mock.Anything, []string{"cart:session:abc"}).Return(redis.NewIntResult(1, nil))

	err := NewCartStore(rdb, time.Hour).Save(context.Background(), "abc", nil)
	assert.NoError(t, err)
	rdb.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rdb.AssertExpectations(t)
}
