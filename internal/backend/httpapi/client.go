// Package httpapi talks to the food-ordering backend over its REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	backenderrors "cartsync/internal/backend"
	"cartsync/internal/models"
	"cartsync/pkg/lib/logger/sl"

	"github.com/google/uuid"
)

const (
	pathSignIn     = "/auth/signin"
	pathCart       = "/api/cart"
	pathCartAdd    = "/api/cart/add"
	pathCartClear  = "/api/cart/clear"
	pathItemUpdate = "/api/cart-item/update"
	pathItemRemove = "/api/cart-item/%d/remove"
	pathOrder      = "/api/order"

	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// Credentials supplies the bearer token and is told when the backend
// rejects it.
type Credentials interface {
	BearerToken() string
	Invalidate(ctx context.Context)
}

type Client struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	creds Credentials
}

func New(log *slog.Logger, baseURL string, timeout time.Duration) (*Client, error) {
	const op = "backend.httpapi.New"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	return NewWithParams(log, strings.TrimRight(u.String(), "/"), &http.Client{Timeout: timeout}), nil
}

func NewWithParams(log *slog.Logger, baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		log:     log,
		baseURL: baseURL,
		http:    client,
	}
}

// UseCredentials attaches the session that signs every cart request.
func (c *Client) UseCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *Client) SignIn(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	const op = "backend.httpapi.SignIn"

	body, err := c.do(ctx, op, http.MethodPost, pathSignIn, req, false)
	if err != nil {
		return models.AuthResponse{}, err
	}

	var resp models.AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.AuthResponse{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	return resp, nil
}

func (c *Client) GetCart(ctx context.Context) ([]byte, error) {
	const op = "backend.httpapi.GetCart"
	return c.do(ctx, op, http.MethodGet, pathCart, nil, true)
}

func (c *Client) AddItem(ctx context.Context, req models.AddItemRequest) ([]byte, error) {
	const op = "backend.httpapi.AddItem"
	if req.Ingredients == nil {
		req.Ingredients = []string{}
	}
	return c.do(ctx, op, http.MethodPut, pathCartAdd, req, true)
}

func (c *Client) UpdateItem(ctx context.Context, req models.UpdateItemRequest) ([]byte, error) {
	const op = "backend.httpapi.UpdateItem"
	return c.do(ctx, op, http.MethodPut, pathItemUpdate, req, true)
}

func (c *Client) RemoveItem(ctx context.Context, cartItemId int64) ([]byte, error) {
	const op = "backend.httpapi.RemoveItem"
	return c.do(ctx, op, http.MethodDelete, fmt.Sprintf(pathItemRemove, cartItemId), nil, true)
}

func (c *Client) ClearCart(ctx context.Context) ([]byte, error) {
	const op = "backend.httpapi.ClearCart"
	return c.do(ctx, op, http.MethodPut, pathCartClear, nil, true)
}

// CreateOrder places an order for the whole server-side cart. The backend
// does not empty the cart afterwards.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	const op = "backend.httpapi.CreateOrder"

	body, err := c.do(ctx, op, http.MethodPost, pathOrder, req, true)
	if err != nil {
		return models.Order{}, err
	}

	var order models.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return models.Order{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	return order, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, authenticated bool) ([]byte, error) {
	requestID := uuid.NewString()
	log := c.log.With(
		"op", op,
		"method", method,
		"path", path,
		"request_id", requestID,
	)

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode: %w", op, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	creds := c.credentials()
	if authenticated && creds != nil {
		if token := creds.BearerToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("Request aborted", sl.Err(ctxErr))
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		log.Error("Request failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, backenderrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Error("Failed to read response body", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, backenderrors.ErrTransport, err)
	}

	log.Debug("Backend responded",
		"status", resp.StatusCode,
		"elapsed", time.Since(started),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		log.Warn("Session rejected by backend")
		if authenticated && creds != nil {
			creds.Invalidate(ctx)
		}
		return nil, fmt.Errorf("%s: %w", op, backenderrors.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, backenderrors.ErrNotFound)
	default:
		statusErr := &backenderrors.StatusError{
			Code:    resp.StatusCode,
			Message: errorMessage(body, resp.StatusCode),
		}
		log.Warn("Unexpected backend status", sl.Err(statusErr))
		return nil, fmt.Errorf("%s: %w", op, statusErr)
	}
}

func errorMessage(body []byte, code int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(code)
}
