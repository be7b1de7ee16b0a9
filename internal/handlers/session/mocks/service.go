package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) Login(ctx context.Context, email, password string) (models.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(models.Session), args.Error(1)
}
func (m *Service) Current() (models.User, error) {
	args := m.Called()
	return args.Get(0).(models.User), args.Error(1)
}
func (m *Service) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
