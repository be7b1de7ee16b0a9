package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Store struct {
	mock.Mock
}

func (m *Store) SaveSession(ctx context.Context, session models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *Store) LoadSession(ctx context.Context) (models.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Session), args.Error(1)
}
func (m *Store) DeleteSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *Store) SaveSnapshot(ctx context.Context, email string, cart models.Cart) error {
	args := m.Called(ctx, email, cart)
	return args.Error(0)
}
func (m *Store) LoadSnapshot(ctx context.Context, email string) (models.CartSnapshot, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.CartSnapshot), args.Error(1)
}
