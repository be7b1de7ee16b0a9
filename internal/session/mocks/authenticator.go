package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Authenticator struct {
	mock.Mock
}

func (m *Authenticator) SignIn(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.AuthResponse), args.Error(1)
}
