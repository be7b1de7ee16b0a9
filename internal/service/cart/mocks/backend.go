package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Backend struct {
	mock.Mock
}

func (m *Backend) GetCart(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	return bytesArg(args, 0), args.Error(1)
}
func (m *Backend) AddItem(ctx context.Context, req models.AddItemRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	return bytesArg(args, 0), args.Error(1)
}
func (m *Backend) UpdateItem(ctx context.Context, req models.UpdateItemRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	return bytesArg(args, 0), args.Error(1)
}
func (m *Backend) RemoveItem(ctx context.Context, cartItemId int64) ([]byte, error) {
	args := m.Called(ctx, cartItemId)
	return bytesArg(args, 0), args.Error(1)
}
func (m *Backend) ClearCart(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	return bytesArg(args, 0), args.Error(1)
}
func (m *Backend) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Order), args.Error(1)
}

func bytesArg(args mock.Arguments, i int) []byte {
	switch v := args.Get(i).(type) {
	case nil:
		return nil
	case string:
		return []byte(v)
	default:
		return v.([]byte)
	}
}
