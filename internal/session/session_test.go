package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	backenderrors "cartsync/internal/backend"
	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	"cartsync/internal/pricing"
	serviceerrors "cartsync/internal/service"
	cartmocks "cartsync/internal/service/cart/mocks"
	"cartsync/internal/session"
	"cartsync/internal/session/mocks"
	"cartsync/pkg/lib/logger/slogdiscard"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	email    = "jane@example.com"
	password = "secret"
	cartBody = `{"id":3,"item":[{"id":7,"food":{"id":11,"name":"Burger","price":900},"quantity":2,"ingredients":[],"totalPrice":1800}],"total":1800}`
)

type fixture struct {
	auth    *mocks.Authenticator
	store   *mocks.Store
	backend *cartmocks.Backend
	manager *session.Manager
}

func newFixture() *fixture {
	f := &fixture{
		auth:    new(mocks.Authenticator),
		store:   new(mocks.Store),
		backend: new(cartmocks.Backend),
	}
	f.manager = session.New(slogdiscard.NewDiscardLogger(), f.auth, f.backend, f.store, pricing.DefaultPolicy())
	return f
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func (f *fixture) login(t *testing.T, jwtToken string) {
	t.Helper()
	f.auth.On("SignIn", mock.Anything, models.LoginRequest{Email: email, Password: password}).
		Return(models.AuthResponse{Jwt: jwtToken, Role: "ROLE_CUSTOMER"}, nil).Once()
	f.store.On("SaveSession", mock.Anything, mock.Anything).Return(nil).Once()
	f.store.On("SaveSnapshot", mock.Anything, email, mock.Anything).Return(nil).Maybe()
	f.backend.On("GetCart", mock.Anything).Return(cartBody, nil).Once()

	_, err := f.manager.Login(context.Background(), email, password)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	jwtToken := token(t, time.Now().Add(time.Hour))

	f.login(t, jwtToken)

	user, err := f.manager.Current()
	require.NoError(t, err)
	assert.Equal(t, models.User{Email: email, Role: "ROLE_CUSTOMER"}, user)
	assert.Equal(t, jwtToken, f.manager.BearerToken())

	view, err := f.manager.View()
	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, models.Money(1800), view.Subtotal)

	f.store.AssertCalled(t, "SaveSnapshot", mock.Anything, email, mock.Anything)
	f.auth.AssertExpectations(t)
	f.backend.AssertExpectations(t)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		signInErr error
		response  models.AuthResponse
		wantErr   error
	}{
		{
			name:    "Invalid email",
			email:   "not-an-email",
			wantErr: serviceerrors.ErrInvalidRequest,
		},
		{
			name:      "Bad credentials",
			email:     email,
			signInErr: backenderrors.ErrUnauthorized,
			wantErr:   serviceerrors.ErrUnauthorized,
		},
		{
			name:      "Rejected",
			email:     email,
			signInErr: &backenderrors.StatusError{Code: 400, Message: "user not found"},
			wantErr:   serviceerrors.ErrRejected,
		},
		{
			name:      "Backend down",
			email:     email,
			signInErr: fmt.Errorf("%w: %w", backenderrors.ErrTransport, errors.New("connection refused")),
			wantErr:   serviceerrors.ErrBackendUnavailable,
		},
		{
			name:      "Caller canceled",
			email:     email,
			signInErr: context.Canceled,
			wantErr:   serviceerrors.ErrContextCanceled,
		},
		{
			name:     "Missing token",
			email:    email,
			response: models.AuthResponse{Message: "ok"},
			wantErr:  serviceerrors.ErrUnexpectedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.auth.On("SignIn", mock.Anything, mock.Anything).Return(tt.response, tt.signInErr).Maybe()

			_, err := f.manager.Login(context.Background(), tt.email, password)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = f.manager.Current()
			assert.ErrorIs(t, err, serviceerrors.ErrNoSession)
			f.store.AssertNotCalled(t, "SaveSession", mock.Anything, mock.Anything)
		})
	}
}

func TestLogin_DegradedCartDoesNotFail(t *testing.T) {
	f := newFixture()
	f.auth.On("SignIn", mock.Anything, mock.Anything).
		Return(models.AuthResponse{Jwt: token(t, time.Now().Add(time.Hour))}, nil)
	f.store.On("SaveSession", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	f.store.On("SaveSnapshot", mock.Anything, email, mock.Anything).Return(nil).Maybe()
	f.backend.On("GetCart", mock.Anything).
		Return(nil, fmt.Errorf("%w: %w", backenderrors.ErrTransport, errors.New("connection refused")))

	_, err := f.manager.Login(context.Background(), email, password)
	require.NoError(t, err)

	view, err := f.manager.View()
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestNoSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ops := map[string]func() error{
		"Fetch": func() error { _, err := f.manager.Fetch(ctx); return err },
		"AddItem": func() error {
			_, err := f.manager.AddItem(ctx, 1, 1, nil)
			return err
		},
		"UpdateItemQuantity": func() error {
			_, err := f.manager.UpdateItemQuantity(ctx, 1, 2)
			return err
		},
		"AdjustItemQuantity": func() error {
			_, err := f.manager.AdjustItemQuantity(ctx, 1, 1)
			return err
		},
		"RemoveItem": func() error { _, err := f.manager.RemoveItem(ctx, 1); return err },
		"Clear":      func() error { _, err := f.manager.Clear(ctx); return err },
		"Checkout": func() error {
			_, err := f.manager.Checkout(ctx, models.Address{StreetAddress: "1 Main St"})
			return err
		},
		"View":       func() error { _, err := f.manager.View(); return err },
		"Current":    func() error { _, err := f.manager.Current(); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), serviceerrors.ErrNoSession)
		})
	}

	assert.Empty(t, f.manager.BearerToken())
	f.backend.AssertNotCalled(t, "GetCart", mock.Anything)
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name       string
		stored     models.Session
		loadErr    error
		wantErr    error
		wantDelete bool
	}{
		{
			name:   "Valid",
			stored: models.Session{Email: email, Role: "ROLE_CUSTOMER", Token: token(t, time.Now().Add(time.Hour))},
		},
		{
			name:   "Opaque token",
			stored: models.Session{Email: email, Token: "opaque"},
		},
		{
			name:       "Expired",
			stored:     models.Session{Email: email, Token: token(t, time.Now().Add(-time.Minute))},
			wantErr:    serviceerrors.ErrSessionExpired,
			wantDelete: true,
		},
		{
			name:    "Nothing stored",
			loadErr: fmt.Errorf("load: %w", databaseerrors.ErrNotFound),
			wantErr: serviceerrors.ErrNoSession,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.store.On("LoadSession", mock.Anything).Return(tt.stored, tt.loadErr)
			if tt.wantDelete {
				f.store.On("DeleteSession", mock.Anything).Return(nil).Once()
			}

			got, err := f.manager.Restore(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.manager.BearerToken())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.stored, got)
				assert.Equal(t, tt.stored.Token, f.manager.BearerToken())
			}
			f.store.AssertExpectations(t)
		})
	}
}

func TestLogout(t *testing.T) {
	f := newFixture()
	f.login(t, token(t, time.Now().Add(time.Hour)))

	f.store.On("DeleteSession", mock.Anything).Return(nil).Once()
	require.NoError(t, f.manager.Logout(context.Background()))

	_, err := f.manager.Fetch(context.Background())
	assert.ErrorIs(t, err, serviceerrors.ErrNoSession)
	assert.Empty(t, f.manager.BearerToken())
	f.store.AssertExpectations(t)
}

func TestLogout_StoreError(t *testing.T) {
	f := newFixture()
	f.store.On("DeleteSession", mock.Anything).Return(errors.New("locked"))

	assert.Error(t, f.manager.Logout(context.Background()))
}

func TestInvalidateDuringRequest(t *testing.T) {
	f := newFixture()
	f.login(t, token(t, time.Now().Add(time.Hour)))

	f.store.On("DeleteSession", mock.Anything).Return(nil).Once()
	f.backend.On("GetCart", mock.Anything).
		Run(func(args mock.Arguments) {
			f.manager.Invalidate(args.Get(0).(context.Context))
		}).
		Return(nil, backenderrors.ErrUnauthorized).Once()

	_, err := f.manager.Fetch(context.Background())
	assert.ErrorIs(t, err, serviceerrors.ErrUnauthorized)

	_, err = f.manager.Current()
	assert.ErrorIs(t, err, serviceerrors.ErrNoSession)
	f.store.AssertExpectations(t)
}

func TestCached(t *testing.T) {
	snapshot := models.CartSnapshot{
		Email:     email,
		Cart:      models.Cart{Items: []models.CartItem{{Id: 7, Quantity: 2}}, Total: 1800},
		UpdatedAt: time.UnixMilli(1700000000000).UTC(),
	}

	t.Run("From persisted session", func(t *testing.T) {
		f := newFixture()
		f.store.On("LoadSession", mock.Anything).Return(models.Session{Email: email}, nil)
		f.store.On("LoadSnapshot", mock.Anything, email).Return(snapshot, nil)

		got, err := f.manager.Cached(context.Background())
		require.NoError(t, err)
		assert.Equal(t, snapshot, got)
		f.backend.AssertNotCalled(t, "GetCart", mock.Anything)
	})

	t.Run("Nothing recorded", func(t *testing.T) {
		f := newFixture()
		f.store.On("LoadSession", mock.Anything).Return(models.Session{Email: email}, nil)
		f.store.On("LoadSnapshot", mock.Anything, email).
			Return(models.CartSnapshot{}, databaseerrors.ErrNotFound)

		_, err := f.manager.Cached(context.Background())
		assert.ErrorIs(t, err, serviceerrors.ErrNotFound)
	})

	t.Run("Nobody signed in", func(t *testing.T) {
		f := newFixture()
		f.store.On("LoadSession", mock.Anything).Return(models.Session{}, databaseerrors.ErrNotFound)

		_, err := f.manager.Cached(context.Background())
		assert.ErrorIs(t, err, serviceerrors.ErrNoSession)
	})
}
