package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/mocks"
)

func testAddress() domain.Address {
	return domain.Address{Street: "1 Main Street", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
}

func validOrderInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName:    "Ada Lovelace",
		CustomerEmail:   "ada@example.com",
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
		PaymentMethod:   domain.PaymentCard,
		ShippingTier:    domain.ShippingStandard,
		ShippingCost:    decimal.RequireFromString("9.99"),
		TotalAmount:     decimal.RequireFromString("34.99"),
		Items: []OrderItemInput{
			{ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("5.00")},
		},
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	tests := []struct {
		name          string
		input         func() CreateOrderInput
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPublisher)
		expectedError string
	}{
		{
			name:  "successful order creation",
			input: validOrderInput,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 7
				}).Once()
				mockRepo.On("SaveItems", mock.Anything, mock.MatchedBy(func(items []domain.OrderItem) bool {
					return len(items) == 2 && items[0].OrderID == 7 && items[1].OrderID == 7
				})).Return(nil).Once()
				mockPub.On("Publish", mock.Anything, domain.EventOrderCreated, mock.AnythingOfType("domain.OrderCreatedEvent")).Return(nil).Once()
			},
		},
		{
			name:  "publish failure does not fail the order",
			input: validOrderInput,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 8
				})
				mockRepo.On("SaveItems", mock.Anything, mock.Anything).Return(nil)
				mockPub.On("Publish", mock.Anything, domain.EventOrderCreated, mock.Anything).Return(errors.New("broker down"))
			},
		},
		{
			name:  "order save fails",
			input: validOrderInput,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("database error"))
			},
			expectedError: "database error",
		},
		{
			name:  "item save fails and order is deleted",
			input: validOrderInput,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 9
				})
				mockRepo.On("SaveItems", mock.Anything, mock.Anything).Return(errors.New("items table locked"))
				mockRepo.On("Delete", mock.Anything, uint64(9)).Return(nil).Once()
			},
			expectedError: "items table locked",
		},
		{
			name:  "compensating delete fails",
			input: validOrderInput,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 10
				})
				mockRepo.On("SaveItems", mock.Anything, mock.Anything).Return(errors.New("items table locked"))
				mockRepo.On("Delete", mock.Anything, uint64(10)).Return(errors.New("connection reset")).Once()
			},
			expectedError: "items table locked",
		},
		{
			name: "no items",
			input: func() CreateOrderInput {
				in := validOrderInput()
				in.Items = nil
				return in
			},
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockPublisher) {},
			expectedError: "no items",
		},
		{
			name: "duplicate product",
			input: func() CreateOrderInput {
				in := validOrderInput()
				in.Items[1].ProductID = 1
				return in
			},
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockPublisher) {},
			expectedError: "listed twice",
		},
		{
			name: "total below subtotal",
			input: func() CreateOrderInput {
				in := validOrderInput()
				in.TotalAmount = decimal.RequireFromString("20")
				return in
			},
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockPublisher) {},
			expectedError: "below items subtotal",
		},
		{
			name: "unknown payment method",
			input: func() CreateOrderInput {
				in := validOrderInput()
				in.PaymentMethod = "barter"
				return in
			},
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockPublisher) {},
			expectedError: "invalid payment method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockPublisher := new(mocks.MockPublisher)

			tt.setupMocks(mockRepo, mockPublisher)

			service := NewOrderService(mockRepo, mockPublisher)
			result, err := service.CreateOrder(context.Background(), tt.input())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, domain.StatusPending, result.Status)
				assert.Equal(t, domain.OrderSchemaVersion, result.SchemaVersion)
				assert.Equal(t, "25.00", result.Subtotal.StringFixed(2))
				assert.Equal(t, "34.99", result.TotalAmount.StringFixed(2))
				assert.Len(t, result.Items, 2)
				assert.WithinDuration(t, time.Now(), result.CreatedAt, time.Second)
			}

			mockRepo.AssertExpectations(t)
			mockPublisher.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder_InvalidInputTouchesNothing(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	service := NewOrderService(mockRepo, nil)

	in := validOrderInput()
	in.CustomerEmail = "  "
	_, err := service.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, ErrInvalidOrder)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_CompensatesOnCancelledContext(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	ctx, cancel := context.WithCancel(context.Background())

	mockRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Order).ID = 3
	})
	mockRepo.On("SaveItems", mock.Anything, mock.Anything).Return(context.Canceled).Run(func(mock.Arguments) {
		cancel()
	})
	mockRepo.On("Delete", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), uint64(3)).Return(nil).Once()

	service := NewOrderService(mockRepo, nil)
	_, err := service.CreateOrder(ctx, validOrderInput())

	assert.ErrorIs(t, err, context.Canceled)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_GetOrderById(t *testing.T) {
	tests := []struct {
		name          string
		orderId       uint64
		setupMocks    func(*mocks.MockOrderRepository)
		expectedError error
		expectedOrder *domain.Order
	}{
		{
			name:    "successful order retrieval",
			orderId: 1,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, uint64(1)).Return(&domain.Order{
					ID:          1,
					TotalAmount: decimal.NewFromInt(20),
					Status:      domain.StatusPending,
				}, nil)
			},
			expectedOrder: &domain.Order{ID: 1, Status: domain.StatusPending},
		},
		{
			name:    "order not found",
			orderId: 999,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, uint64(999)).Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name:    "repository error",
			orderId: 1,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, uint64(1)).Return(nil, errors.New("database connection error"))
			},
			expectedError: errors.New("database connection error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			tt.setupMocks(mockRepo)

			service := NewOrderService(mockRepo, nil)
			result, err := service.GetOrderById(context.Background(), tt.orderId)

			if tt.expectedError != nil {
				assert.Error(t, err)
				if tt.expectedError == ErrOrderNotFound {
					assert.Equal(t, ErrOrderNotFound, err)
				} else {
					assert.Contains(t, err.Error(), tt.expectedError.Error())
				}
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedOrder.ID, result.ID)
				assert.Equal(t, tt.expectedOrder.Status, result.Status)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_ListOrders(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	filter := domain.OrderFilter{Status: domain.StatusShipped, Search: "ada"}
	mockRepo.On("List", mock.Anything, filter).Return(nil, nil).Once()

	service := NewOrderService(mockRepo, nil)
	orders, err := service.ListOrders(context.Background(), filter)

	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	_, err = service.ListOrders(context.Background(), domain.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		status        string
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPublisher)
		expectedError error
	}{
		{
			name:   "status changed",
			status: " Shipped ",
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("UpdateStatus", mock.Anything, uint64(4), domain.StatusShipped).
					Return(&domain.Order{ID: 4, Status: domain.StatusShipped, UpdatedAt: updated}, nil)
				mockPub.On("Publish", mock.Anything, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
					OrderID: 4, Status: domain.StatusShipped, UpdatedAt: updated,
				}).Return(nil).Once()
			},
		},
		{
			name:   "delivered back to pending is allowed",
			status: "pending",
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("UpdateStatus", mock.Anything, uint64(4), domain.StatusPending).
					Return(&domain.Order{ID: 4, Status: domain.StatusPending}, nil)
				mockPub.On("Publish", mock.Anything, domain.EventOrderStatusChanged, mock.Anything).Return(nil)
			},
		},
		{
			name:          "unknown status never reaches the repository",
			status:        "teleported",
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockPublisher) {},
			expectedError: domain.ErrInvalidStatus,
		},
		{
			name:   "order not found",
			status: "cancelled",
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("UpdateStatus", mock.Anything, uint64(4), domain.StatusCancelled).Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockPublisher := new(mocks.MockPublisher)
			tt.setupMocks(mockRepo, mockPublisher)

			service := NewOrderService(mockRepo, mockPublisher)
			result, err := service.UpdateStatus(context.Background(), 4, tt.status)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint64(4), result.ID)
			}

			mockRepo.AssertExpectations(t)
			mockPublisher.AssertExpectations(t)
		})
	}
}
