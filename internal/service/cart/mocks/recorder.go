package mocks

import (
	"cartsync/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type Recorder struct {
	mock.Mock
}

func (m *Recorder) RecordSnapshot(ctx context.Context, cart models.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}
