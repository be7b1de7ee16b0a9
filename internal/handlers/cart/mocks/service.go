package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) Fetch(ctx context.Context) (models.Cart, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Cart), args.Error(1)
}
func (m *Service) AddItem(ctx context.Context, foodId int64, quantity int, ingredients []string) (models.Cart, error) {
	args := m.Called(ctx, foodId, quantity, ingredients)
	return args.Get(0).(models.Cart), args.Error(1)
}
func (m *Service) UpdateItemQuantity(ctx context.Context, cartItemId int64, quantity int) (models.Cart, error) {
	args := m.Called(ctx, cartItemId, quantity)
	return args.Get(0).(models.Cart), args.Error(1)
}
func (m *Service) AdjustItemQuantity(ctx context.Context, cartItemId int64, delta int) (models.Cart, error) {
	args := m.Called(ctx, cartItemId, delta)
	return args.Get(0).(models.Cart), args.Error(1)
}
func (m *Service) RemoveItem(ctx context.Context, cartItemId int64) (models.Cart, error) {
	args := m.Called(ctx, cartItemId)
	return args.Get(0).(models.Cart), args.Error(1)
}
func (m *Service) Clear(ctx context.Context) (models.Cart, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Cart), args.Error(1)
}
func (m *Service) Checkout(ctx context.Context, address models.Address) (models.Order, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(models.Order), args.Error(1)
}
func (m *Service) View() (models.CartView, error) {
	args := m.Called()
	return args.Get(0).(models.CartView), args.Error(1)
}
