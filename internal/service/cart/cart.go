package cartservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	backenderrors "cartsync/internal/backend"
	"cartsync/internal/cartshape"
	"cartsync/internal/models"
	"cartsync/internal/pricing"
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/sl"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

type Backend interface {
	GetCart(ctx context.Context) ([]byte, error)
	AddItem(ctx context.Context, req models.AddItemRequest) ([]byte, error)
	UpdateItem(ctx context.Context, req models.UpdateItemRequest) ([]byte, error)
	RemoveItem(ctx context.Context, cartItemId int64) ([]byte, error)
	ClearCart(ctx context.Context) ([]byte, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
}

// SnapshotRecorder keeps the last reconciled cart somewhere durable.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, cart models.Cart) error
}

type Status int

const (
	StatusReady Status = iota
	StatusLoading
)

func (s Status) String() string {
	if s == StatusLoading {
		return "loading"
	}
	return "ready"
}

// Service mirrors one user's server-side cart. The snapshot is replaced
// wholesale on every reconciliation and never edited in place.
//
// Every backend call takes a sequence number when it is issued. A response
// is applied only if no later-issued call has already been applied, so the
// state always reflects the most recently issued request that completed.
type Service struct {
	log      *slog.Logger
	backend  Backend
	policy   pricing.Policy
	recorder SnapshotRecorder
	validate *validator.Validate

	issued   atomic.Uint64
	inflight atomic.Int64
	fetches  singleflight.Group

	// clearMu is held shared by item mutations and exclusively by Clear
	// and Checkout.
	clearMu sync.RWMutex
	keys    *keyLocker

	// recordMu orders snapshot writes. Only the latest applied cart is
	// written.
	recordMu sync.Mutex

	mu      sync.RWMutex
	cart    models.Cart
	applied uint64
}

func New(log *slog.Logger, backend Backend, policy pricing.Policy, recorder SnapshotRecorder) *Service {
	return &Service{
		log:      log,
		backend:  backend,
		policy:   policy,
		recorder: recorder,
		validate: validator.New(),
		keys:     newKeyLocker(),
		cart:     models.EmptyCart(),
	}
}

// Fetch reloads the cart from the backend. Any failure other than the
// caller's own cancellation leaves an empty cart behind; the returned error
// says why.
func (s *Service) Fetch(ctx context.Context) (models.Cart, error) {
	const op = "service.cart.Fetch"
	log := s.log.With("op", op)

	if err := checkContext(ctx, op, log); err != nil {
		return s.Snapshot(), err
	}

	v, err, shared := s.fetches.Do("cart", func() (any, error) {
		return s.fetch(ctx)
	})
	cart := v.(models.Cart)
	if shared {
		log.Debug("Joined in-flight fetch")
		cart.Items = slices.Clone(cart.Items)
	}

	return cart, err
}

// fetch always hits the backend. Mutations resynchronize through it
// directly so they never join a fetch issued before they completed.
func (s *Service) fetch(ctx context.Context) (models.Cart, error) {
	const op = "service.cart.fetch"
	log := s.log.With("op", op)

	seq, done := s.begin()
	defer done()

	raw, err := s.backend.GetCart(ctx)
	if err != nil {
		if mapped := contextError(err); mapped != nil {
			log.Warn("Fetch aborted by caller", sl.Err(err))
			return s.Snapshot(), fmt.Errorf("%s: %w", op, mapped)
		}
		log.Warn("Fetch failed, falling back to empty cart", sl.Err(err))
		return s.apply(ctx, seq, models.EmptyCart()), s.mapErr(op, err)
	}

	res := cartshape.Parse(raw)
	if !res.Shape.IsCart() {
		log.Warn("Unrecognized cart shape, falling back to empty cart",
			"shape", res.Shape.String(),
			"body_bytes", len(raw),
		)
		return s.apply(ctx, seq, models.EmptyCart()), fmt.Errorf("%s: %w", op, serviceerrors.ErrUnexpectedResponse)
	}

	log.Debug("Cart fetched",
		"shape", res.Shape.String(),
		"items", len(res.Cart.Items),
	)

	return s.apply(ctx, seq, res.Cart), nil
}

func (s *Service) AddItem(ctx context.Context, foodId int64, quantity int, ingredients []string) (models.Cart, error) {
	const op = "service.cart.AddItem"
	log := s.log.With("op", op, "food_id", foodId)

	if quantity < 1 {
		return s.Snapshot(), fmt.Errorf("%s: %w", op, serviceerrors.ErrInvalidQuantity)
	}

	req := models.AddItemRequest{
		FoodId:      foodId,
		Quantity:    quantity,
		Ingredients: ingredients,
	}
	if err := s.validate.Struct(req); err != nil {
		log.Warn("Invalid add request", sl.Err(err))
		return s.Snapshot(), fmt.Errorf("%s: %w: %w", op, serviceerrors.ErrInvalidRequest, err)
	}

	if err := checkContext(ctx, op, log); err != nil {
		return s.Snapshot(), err
	}

	s.clearMu.RLock()
	defer s.clearMu.RUnlock()
	unlock := s.keys.Lock(s.addKey(foodId))
	defer unlock()

	seq, done := s.begin()
	defer done()

	raw, err := s.backend.AddItem(ctx, req)
	if err != nil {
		log.Warn("Failed to add item to cart", sl.Err(err))
		return s.Snapshot(), s.mapErr(op, err)
	}

	return s.reconcile(ctx, op, seq, raw)
}

// UpdateItemQuantity ignores quantities below 1 without calling the backend.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartItemId int64, quantity int) (models.Cart, error) {
	const op = "service.cart.UpdateItemQuantity"
	log := s.log.With("op", op, "cart_item_id", cartItemId)

	if quantity < 1 {
		log.Debug("Ignoring quantity below 1", "quantity", quantity)
		return s.Snapshot(), fmt.Errorf("%s: %w", op, serviceerrors.ErrInvalidQuantity)
	}

	req := models.UpdateItemRequest{CartItemId: cartItemId, Quantity: quantity}
	if err := s.validate.Struct(req); err != nil {
		log.Warn("Invalid update request", sl.Err(err))
		return s.Snapshot(), fmt.Errorf("%s: %w: %w", op, serviceerrors.ErrInvalidRequest, err)
	}

	if err := checkContext(ctx, op, log); err != nil {
		return s.Snapshot(), err
	}

	s.clearMu.RLock()
	defer s.clearMu.RUnlock()
	unlock := s.keys.Lock(itemKey(cartItemId))
	defer unlock()

	seq, done := s.begin()
	defer done()

	raw, err := s.backend.UpdateItem(ctx, req)
	if err != nil {
		log.Warn("Failed to update cart item", sl.Err(err))
		return s.Snapshot(), s.mapErr(op, err)
	}

	return s.reconcile(ctx, op, seq, raw)
}

// AdjustItemQuantity applies delta to the quantity in the current snapshot.
// Dropping below one unit removes the item.
func (s *Service) AdjustItemQuantity(ctx context.Context, cartItemId int64, delta int) (models.Cart, error) {
	const op = "service.cart.AdjustItemQuantity"

	item, ok := s.Snapshot().Find(cartItemId)
	if !ok {
		return s.Snapshot(), fmt.Errorf("%s: %w", op, serviceerrors.ErrNotFound)
	}
	if delta == 0 {
		return s.Snapshot(), nil
	}

	quantity := item.Quantity + delta
	if quantity < 1 {
		return s.RemoveItem(ctx, cartItemId)
	}

	return s.UpdateItemQuantity(ctx, cartItemId, quantity)
}

// RemoveItem deletes the item and then reloads the whole cart; the removal
// response is not trusted as a snapshot.
func (s *Service) RemoveItem(ctx context.Context, cartItemId int64) (models.Cart, error) {
	const op = "service.cart.RemoveItem"
	log := s.log.With("op", op, "cart_item_id", cartItemId)

	if cartItemId <= 0 {
		return s.Snapshot(), fmt.Errorf("%s: %w", op, serviceerrors.ErrInvalidRequest)
	}

	if err := checkContext(ctx, op, log); err != nil {
		return s.Snapshot(), err
	}

	s.clearMu.RLock()
	defer s.clearMu.RUnlock()
	unlock := s.keys.Lock(itemKey(cartItemId))
	defer unlock()

	// Loading spans the removal and the reload that follows it.
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	if _, err := s.backend.RemoveItem(ctx, cartItemId); err != nil {
		log.Warn("Failed to remove item from cart", sl.Err(err))
		return s.Snapshot(), s.mapErr(op, err)
	}

	return s.fetch(ctx)
}

// Clear empties the cart. On success the local state is emptied without a
// reload.
func (s *Service) Clear(ctx context.Context) (models.Cart, error) {
	const op = "service.cart.Clear"
	log := s.log.With("op", op)

	if err := checkContext(ctx, op, log); err != nil {
		return s.Snapshot(), err
	}

	s.clearMu.Lock()
	defer s.clearMu.Unlock()

	seq, done := s.begin()
	defer done()

	if _, err := s.backend.ClearCart(ctx); err != nil {
		log.Warn("Failed to clear cart", sl.Err(err))
		return s.Snapshot(), s.mapErr(op, err)
	}

	return s.apply(ctx, seq, models.EmptyCart()), nil
}

// Checkout orders the current server-side cart for delivery to address and
// then empties the cart. The cart is reloaded first so the order covers what
// the backend holds.
func (s *Service) Checkout(ctx context.Context, address models.Address) (models.Order, error) {
	const op = "service.cart.Checkout"
	log := s.log.With("op", op)

	address.StreetAddress = strings.TrimSpace(address.StreetAddress)
	if err := s.validate.Struct(address); err != nil {
		log.Warn("Invalid delivery address", sl.Err(err))
		return models.Order{}, fmt.Errorf("%s: %w: delivery address is required", op, serviceerrors.ErrInvalidRequest)
	}

	if err := checkContext(ctx, op, log); err != nil {
		return models.Order{}, err
	}

	s.clearMu.Lock()
	defer s.clearMu.Unlock()

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	cart, err := s.fetch(ctx)
	if err != nil {
		return models.Order{}, err
	}
	if len(cart.Items) == 0 {
		return models.Order{}, fmt.Errorf("%s: %w", op, serviceerrors.ErrEmptyCart)
	}

	order, err := s.backend.CreateOrder(ctx, models.OrderRequest{
		RestaurantId:    restaurantOf(cart),
		DeliveryAddress: address,
	})
	if err != nil {
		log.Warn("Failed to place order", sl.Err(err))
		return models.Order{}, s.mapErr(op, err)
	}

	log.Info("Order placed", "order_id", order.Id, "status", order.OrderStatus)

	seq, done := s.begin()
	defer done()

	// The order exists now, so the clear must not be abandoned with ctx.
	clearCtx := context.WithoutCancel(ctx)
	if _, err := s.backend.ClearCart(clearCtx); err != nil {
		log.Warn("Order placed but cart not cleared, reloading", sl.Err(err))
		if _, err := s.fetch(clearCtx); err != nil {
			log.Warn("Reload after checkout failed", sl.Err(err))
		}
		return order, nil
	}

	s.apply(ctx, seq, models.EmptyCart())

	return order, nil
}

// Reset drops local state. Responses to calls issued before Reset are
// discarded when they arrive.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = models.EmptyCart()
	s.applied = s.issued.Add(1)
}

func (s *Service) Snapshot() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.Cart{
		Id:    s.cart.Id,
		Items: slices.Clone(s.cart.Items),
		Total: s.cart.Total,
	}
}

func (s *Service) ItemCount() int {
	return s.Snapshot().ItemCount()
}

func (s *Service) Status() Status {
	if s.inflight.Load() > 0 {
		return StatusLoading
	}
	return StatusReady
}

func (s *Service) View() models.CartView {
	return s.policy.Summarize(s.Snapshot(), s.Status() == StatusLoading)
}

// reconcile applies a mutation response. The backend answers add and update
// with a single cart item rather than a cart, in which case the cart is
// reloaded.
func (s *Service) reconcile(ctx context.Context, op string, seq uint64, raw []byte) (models.Cart, error) {
	res := cartshape.Parse(raw)
	if res.Shape.IsCart() {
		return s.apply(ctx, seq, res.Cart), nil
	}

	s.log.With("op", op).Debug("Mutation response is not a cart, reloading",
		"shape", res.Shape.String(),
	)

	return s.fetch(ctx)
}

func (s *Service) begin() (uint64, func()) {
	s.inflight.Add(1)
	seq := s.issued.Add(1)
	return seq, func() { s.inflight.Add(-1) }
}

// apply installs cart unless a later-issued call got there first, and
// returns whatever the state is afterwards.
func (s *Service) apply(ctx context.Context, seq uint64, cart models.Cart) models.Cart {
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}

	s.mu.Lock()
	if seq <= s.applied {
		current := s.cart
		s.mu.Unlock()
		s.log.Debug("Discarding stale cart response",
			"seq", seq,
			"applied", s.appliedSeq(),
		)
		return models.Cart{Id: current.Id, Items: slices.Clone(current.Items), Total: current.Total}
	}
	s.cart = cart
	s.applied = seq
	s.mu.Unlock()

	s.record(ctx, seq, cart)

	return models.Cart{Id: cart.Id, Items: slices.Clone(cart.Items), Total: cart.Total}
}

// record writes cart unless a later apply has replaced it, in which case
// that apply writes its own cart after this one.
func (s *Service) record(ctx context.Context, seq uint64, cart models.Cart) {
	if s.recorder == nil {
		return
	}

	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	if s.appliedSeq() != seq {
		return
	}
	if err := s.recorder.RecordSnapshot(context.WithoutCancel(ctx), cart); err != nil {
		s.log.Warn("Failed to record cart snapshot", sl.Err(err))
	}
}

func restaurantOf(cart models.Cart) int64 {
	for _, item := range cart.Items {
		if item.Food.Restaurant != nil && item.Food.Restaurant.Id > 0 {
			return item.Food.Restaurant.Id
		}
	}
	return 0
}

func (s *Service) appliedSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// addKey shares the item lock when the food is already in the cart, since
// the backend turns that add into a quantity update.
func (s *Service) addKey(foodId int64) string {
	for _, item := range s.Snapshot().Items {
		if item.Food.Id == foodId {
			return itemKey(item.Id)
		}
	}
	return foodKey(foodId)
}

func (s *Service) mapErr(op string, err error) error {
	if mapped := contextError(err); mapped != nil {
		return fmt.Errorf("%s: %w", op, mapped)
	}

	var statusErr *backenderrors.StatusError

	switch {
	case errors.Is(err, backenderrors.ErrUnauthorized):
		return fmt.Errorf("%s: %w", op, serviceerrors.ErrUnauthorized)
	case errors.Is(err, backenderrors.ErrNotFound):
		return fmt.Errorf("%s: %w", op, serviceerrors.ErrNotFound)
	case errors.As(err, &statusErr):
		return fmt.Errorf("%s: %w: %s", op, serviceerrors.ErrRejected, statusErr.Message)
	default:
		return fmt.Errorf("%s: %w: %w", op, serviceerrors.ErrBackendUnavailable, err)
	}
}

// contextError maps the caller's cancellation. Transport timeouts inside
// the http client are backend failures, not cancellations.
func contextError(err error) error {
	if errors.Is(err, backenderrors.ErrTransport) {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return serviceerrors.ErrContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return serviceerrors.ErrDeadlineExceeded
	default:
		return nil
	}
}

func checkContext(ctx context.Context, op string, log *slog.Logger) error {
	select {
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.Canceled) {
			log.Warn("context canceled", sl.Err(err))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrContextCanceled)
		} else if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("deadline exceeded", sl.Err(err))
			return fmt.Errorf("%s: %w", op, serviceerrors.ErrDeadlineExceeded)
		}
		log.Error("unexpected error", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	default:
	}
	return nil
}
