// Package session owns the signed-in user and the cart that belongs to them.
// A Manager is created once per process and handed to whoever needs it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	backenderrors "cartsync/internal/backend"
	databaseerrors "cartsync/internal/database"
	"cartsync/internal/models"
	"cartsync/internal/pricing"
	serviceerrors "cartsync/internal/service"
	cartservice "cartsync/internal/service/cart"
	"cartsync/pkg/lib/logger/sl"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

type Authenticator interface {
	SignIn(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error)
}

type Store interface {
	SaveSession(ctx context.Context, session models.Session) error
	LoadSession(ctx context.Context) (models.Session, error)
	DeleteSession(ctx context.Context) error
	SaveSnapshot(ctx context.Context, email string, cart models.Cart) error
	LoadSnapshot(ctx context.Context, email string) (models.CartSnapshot, error)
}

type Manager struct {
	log      *slog.Logger
	auth     Authenticator
	backend  cartservice.Backend
	store    Store
	policy   pricing.Policy
	validate *validator.Validate

	mu      sync.RWMutex
	current *models.Session
	cart    *cartservice.Service
}

func New(log *slog.Logger, auth Authenticator, backend cartservice.Backend, store Store, policy pricing.Policy) *Manager {
	return &Manager{
		log:      log,
		auth:     auth,
		backend:  backend,
		store:    store,
		policy:   policy,
		validate: validator.New(),
	}
}

// Login signs in against the backend, persists the session and loads the
// cart. A cart that fails to load does not fail the login.
func (m *Manager) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "session.Login"
	log := m.log.With("op", op, "email", email)

	req := models.LoginRequest{Email: email, Password: password}
	if err := m.validate.Struct(req); err != nil {
		log.Warn("Invalid credentials format", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w: %w", op, serviceerrors.ErrInvalidRequest, err)
	}

	resp, err := m.auth.SignIn(ctx, req)
	if err != nil {
		log.Warn("Sign in failed", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, signInError(err))
	}
	if resp.Jwt == "" {
		log.Error("Sign in response carries no token")
		return models.Session{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrUnexpectedResponse)
	}

	session := models.Session{
		Email:     email,
		Role:      resp.Role,
		Token:     resp.Jwt,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		log.Warn("Failed to persist session", sl.Err(err))
	}

	cart := m.install(session)

	if _, err := cart.Fetch(ctx); err != nil {
		log.Warn("Initial cart load failed", sl.Err(err))
	}

	log.Info("Signed in", "role", session.Role)

	return session, nil
}

// Restore picks up the session persisted by an earlier process.
func (m *Manager) Restore(ctx context.Context) (models.Session, error) {
	const op = "session.Restore"
	log := m.log.With("op", op)

	session, err := m.store.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, databaseerrors.ErrNotFound) {
			return models.Session{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrNoSession)
		}
		log.Error("Failed to load session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if expired(session.Token, time.Now()) {
		log.Info("Persisted session expired", "email", session.Email)
		if err := m.store.DeleteSession(ctx); err != nil {
			log.Warn("Failed to delete expired session", sl.Err(err))
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrSessionExpired)
	}

	m.install(session)

	return session, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	const op = "session.Logout"
	log := m.log.With("op", op)

	m.drop()

	if err := m.store.DeleteSession(ctx); err != nil {
		log.Error("Failed to delete session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Invalidate is called by the backend client when a token is rejected.
func (m *Manager) Invalidate(ctx context.Context) {
	const op = "session.Invalidate"
	log := m.log.With("op", op)

	log.Warn("Backend rejected the session token, signing out")

	m.drop()

	if err := m.store.DeleteSession(context.WithoutCancel(ctx)); err != nil {
		log.Error("Failed to delete session", sl.Err(err))
	}
}

func (m *Manager) BearerToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return ""
	}
	return m.current.Token
}

func (m *Manager) Current() (models.User, error) {
	const op = "session.Current"

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return models.User{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrNoSession)
	}
	return m.current.User(), nil
}

// Cached returns the last cart recorded for the signed-in user, or for the
// persisted user when nothing is signed in yet. It never talks to the backend.
func (m *Manager) Cached(ctx context.Context) (models.CartSnapshot, error) {
	const op = "session.Cached"
	log := m.log.With("op", op)

	email := ""
	m.mu.RLock()
	if m.current != nil {
		email = m.current.Email
	}
	m.mu.RUnlock()

	if email == "" {
		session, err := m.store.LoadSession(ctx)
		if err != nil {
			if errors.Is(err, databaseerrors.ErrNotFound) {
				return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrNoSession)
			}
			return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, err)
		}
		email = session.Email
	}

	snapshot, err := m.store.LoadSnapshot(ctx, email)
	if err != nil {
		if errors.Is(err, databaseerrors.ErrNotFound) {
			return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrNotFound)
		}
		log.Error("Failed to load cart snapshot", sl.Err(err))
		return models.CartSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	return snapshot, nil
}

func (m *Manager) Fetch(ctx context.Context) (models.Cart, error) {
	cart, err := m.cartService("session.Fetch")
	if err != nil {
		return models.EmptyCart(), err
	}
	return cart.Fetch(ctx)
}

func (m *Manager) AddItem(ctx context.Context, foodId int64, quantity int, ingredients []string) (models.Cart, error) {
	cart, err := m.cartService("session.AddItem")
	if err != nil {
		return models.EmptyCart(), err
	}
	return cart.AddItem(ctx, foodId, quantity, ingredients)
}

func (m *Manager) UpdateItemQuantity(ctx context.Context, cartItemId int64, quantity int) (models.Cart, error) {
	cart, err := m.cartService("session.UpdateItemQuantity")
	if err != nil {
		return models.EmptyCart(), err
	}
	return cart.UpdateItemQuantity(ctx, cartItemId, quantity)
}

func (m *Manager) AdjustItemQuantity(ctx context.Context, cartItemId int64, delta int) (models.Cart, error) {
	cart, err := m.cartService("session.AdjustItemQuantity")
	if err != nil {
		return models.EmptyCart(), err
	}
	return cart.AdjustItemQuantity(ctx, cartItemId, delta)
}

func (m *Manager) RemoveItem(ctx context.Context, cartItemId int64) (models.Cart, error) {
	cart, err := m.cartService("session.RemoveItem")
	if err != nil {
		return models.EmptyCart(), err
	}
	return cart.RemoveItem(ctx, cartItemId)
}

func (m *Manager) Clear(ctx context.Context) (models.Cart, error) {
	cart, err := m.cartService("session.Clear")
	if err != nil {
		return models.EmptyCart(), err
	}
	return cart.Clear(ctx)
}

func (m *Manager) Checkout(ctx context.Context, address models.Address) (models.Order, error) {
	cart, err := m.cartService("session.Checkout")
	if err != nil {
		return models.Order{}, err
	}
	return cart.Checkout(ctx, address)
}

func (m *Manager) View() (models.CartView, error) {
	cart, err := m.cartService("session.View")
	if err != nil {
		return m.policy.Summarize(models.EmptyCart(), false), err
	}
	return cart.View(), nil
}

// install replaces the active session. The previous cart is reset so its
// late responses are thrown away.
func (m *Manager) install(session models.Session) *cartservice.Service {
	cart := cartservice.New(
		m.log.With("email", session.Email),
		m.backend,
		m.policy,
		snapshotRecorder{store: m.store, email: session.Email},
	)

	m.mu.Lock()
	previous := m.cart
	m.current = &session
	m.cart = cart
	m.mu.Unlock()

	if previous != nil {
		previous.Reset()
	}

	return cart
}

func (m *Manager) drop() {
	m.mu.Lock()
	previous := m.cart
	m.current = nil
	m.cart = nil
	m.mu.Unlock()

	if previous != nil {
		previous.Reset()
	}
}

// cartService is read under the lock but used outside it: the backend may
// call Invalidate in the middle of a request.
func (m *Manager) cartService(op string) (*cartservice.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cart == nil {
		return nil, fmt.Errorf("%s: %w", op, serviceerrors.ErrNoSession)
	}
	return m.cart, nil
}

func signInError(err error) error {
	var statusErr *backenderrors.StatusError

	switch {
	case errors.Is(err, backenderrors.ErrTransport):
		return fmt.Errorf("%w: %w", serviceerrors.ErrBackendUnavailable, err)
	case errors.Is(err, context.Canceled):
		return serviceerrors.ErrContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return serviceerrors.ErrDeadlineExceeded
	case errors.Is(err, backenderrors.ErrUnauthorized):
		return serviceerrors.ErrUnauthorized
	case errors.As(err, &statusErr):
		return fmt.Errorf("%w: %s", serviceerrors.ErrRejected, statusErr.Message)
	default:
		return fmt.Errorf("%w: %w", serviceerrors.ErrBackendUnavailable, err)
	}
}

// expired reads the exp claim without checking the signature. Tokens that
// cannot be parsed, or carry no exp, are left for the backend to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

type snapshotRecorder struct {
	store Store
	email string
}

func (r snapshotRecorder) RecordSnapshot(ctx context.Context, cart models.Cart) error {
	return r.store.SaveSnapshot(ctx, r.email, cart)
}
