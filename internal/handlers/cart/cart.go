package carthandler

import (
	"cartsync/internal/handlers"
	"cartsync/internal/models"
	serviceerrors "cartsync/internal/service"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// HeaderDegraded is set on a cart view that was served empty because the
// backend could not be read. Its value names the failure.
const HeaderDegraded = "X-Cart-Degraded"

type CartService interface {
	Fetch(ctx context.Context) (models.Cart, error)
	AddItem(ctx context.Context, foodId int64, quantity int, ingredients []string) (models.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartItemId int64, quantity int) (models.Cart, error)
	AdjustItemQuantity(ctx context.Context, cartItemId int64, delta int) (models.Cart, error)
	RemoveItem(ctx context.Context, cartItemId int64) (models.Cart, error)
	Clear(ctx context.Context) (models.Cart, error)
	Checkout(ctx context.Context, address models.Address) (models.Order, error)
	View() (models.CartView, error)
}

type Handler struct {
	log      *slog.Logger
	service  CartService
	validate *validator.Validate
}

// addItemRequest keeps quantity as a pointer so an absent field can default
// to one while an explicit zero is rejected.
type addItemRequest struct {
	FoodId      int64    `json:"foodId"`
	Quantity    *int     `json:"quantity"`
	Ingredients []string `json:"ingredients"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutRequest struct {
	DeliveryAddress models.Address `json:"deliveryAddress"`
}

type checkoutResponse struct {
	Order models.Order    `json:"order"`
	Cart  models.CartView `json:"cart"`
}

func New(log *slog.Logger, service CartService) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// GET /cart
func (h *Handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.ViewCart"
	log := h.log.With("op", op)

	degraded := ""
	if _, err := h.service.Fetch(r.Context()); err != nil {
		reason, ok := degradedReason(err)
		if !ok {
			handlers.Fail(w, log, err, "load cart")
			return
		}
		log.Warn("Serving degraded cart", "reason", reason)
		degraded = reason
	}

	view, err := h.service.View()
	if err != nil {
		handlers.Fail(w, log, err, "load cart")
		return
	}

	if degraded != "" {
		w.Header().Set(HeaderDegraded, degraded)
	}
	handlers.WriteJSON(w, log, http.StatusOK, view)
}

// POST /cart/items
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.AddToCart"
	log := h.log.With("op", op)

	var body addItemRequest
	if !h.decode(w, r, log, &body) {
		return
	}

	req := models.AddItemRequest{
		FoodId:      body.FoodId,
		Quantity:    1,
		Ingredients: body.Ingredients,
	}
	if body.Quantity != nil {
		req.Quantity = *body.Quantity
	}
	if err := h.validate.Struct(req); err != nil {
		handlers.BadRequest(w, log, err, "Failed to validate")
		return
	}

	if _, err := h.service.AddItem(r.Context(), req.FoodId, req.Quantity, req.Ingredients); err != nil {
		handlers.Fail(w, log, err, "add item")
		return
	}

	h.respondView(w, log, http.StatusCreated)
}

// PUT /cart/items/{cartItemId}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request, cartItemId int64) {
	const op = "handlers.cart.UpdateItem"
	log := h.log.With("op", op, "cart_item_id", cartItemId)

	var req quantityRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	if _, err := h.service.UpdateItemQuantity(r.Context(), cartItemId, req.Quantity); err != nil {
		handlers.Fail(w, log, err, "update item")
		return
	}

	h.respondView(w, log, http.StatusOK)
}

// PATCH /cart/items/{cartItemId}
func (h *Handler) AdjustItem(w http.ResponseWriter, r *http.Request, cartItemId int64) {
	const op = "handlers.cart.AdjustItem"
	log := h.log.With("op", op, "cart_item_id", cartItemId)

	var req models.AdjustItemRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handlers.BadRequest(w, log, err, "Failed to validate")
		return
	}

	if _, err := h.service.AdjustItemQuantity(r.Context(), cartItemId, req.Delta); err != nil {
		handlers.Fail(w, log, err, "adjust item")
		return
	}

	h.respondView(w, log, http.StatusOK)
}

// DELETE /cart/items/{cartItemId}
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request, cartItemId int64) {
	const op = "handlers.cart.RemoveFromCart"
	log := h.log.With("op", op, "cart_item_id", cartItemId)

	if _, err := h.service.RemoveItem(r.Context(), cartItemId); err != nil {
		handlers.Fail(w, log, err, "remove item")
		return
	}

	h.respondView(w, log, http.StatusOK)
}

// DELETE /cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.ClearCart"
	log := h.log.With("op", op)

	if _, err := h.service.Clear(r.Context()); err != nil {
		handlers.Fail(w, log, err, "clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /cart/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cart.Checkout"
	log := h.log.With("op", op)

	var req checkoutRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	order, err := h.service.Checkout(r.Context(), req.DeliveryAddress)
	if err != nil {
		handlers.Fail(w, log, err, "place order")
		return
	}

	view, err := h.service.View()
	if err != nil {
		handlers.Fail(w, log, err, "load cart")
		return
	}

	handlers.WriteJSON(w, log, http.StatusCreated, checkoutResponse{Order: order, Cart: view})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	requestBody, err := io.ReadAll(r.Body)
	if err != nil {
		handlers.BadRequest(w, log, err, "Cannot read request body")
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(requestBody, dst); err != nil {
		handlers.BadRequest(w, log, err, "Cannot unmarshal request body")
		return false
	}
	return true
}

func (h *Handler) respondView(w http.ResponseWriter, log *slog.Logger, code int) {
	view, err := h.service.View()
	if err != nil {
		handlers.Fail(w, log, err, "load cart")
		return
	}
	handlers.WriteJSON(w, log, code, view)
}

// degradedReason reports whether a failed fetch still left a usable (empty)
// cart behind, and why.
func degradedReason(err error) (string, bool) {
	for _, target := range []error{
		serviceerrors.ErrBackendUnavailable,
		serviceerrors.ErrUnexpectedResponse,
		serviceerrors.ErrRejected,
		serviceerrors.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}
