package routes

import (
	carthandler "cartsync/internal/handlers/cart"
	sessionhandler "cartsync/internal/handlers/session"
	"cartsync/pkg/lib/urlparser"
	"net/http"
)

type Routes struct {
	cartHandler    *carthandler.Handler
	sessionHandler *sessionhandler.Handler
}

func New(cartHandler *carthandler.Handler, sessionHandler *sessionhandler.Handler) *Routes {
	return &Routes{
		cartHandler:    cartHandler,
		sessionHandler: sessionHandler,
	}
}

func (r *Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/cart", r.pathParser)
	mux.HandleFunc("/cart/", r.pathParser)
	mux.HandleFunc("/session", r.session)
}

func (r *Routes) pathParser(ww http.ResponseWriter, req *http.Request) {
	params, err := urlparser.ParseCartPath(req.URL.Path)
	if err != nil {
		http.NotFound(ww, req)
		return
	}

	switch {
	case params.Target == urlparser.TargetCart && req.Method == http.MethodGet:
		// GET /cart
		r.cartHandler.ViewCart(ww, req)
	case params.Target == urlparser.TargetCart && req.Method == http.MethodDelete:
		// DELETE /cart
		r.cartHandler.ClearCart(ww, req)
	case params.Target == urlparser.TargetItems && req.Method == http.MethodPost:
		// POST /cart/items
		r.cartHandler.AddToCart(ww, req)
	case params.Target == urlparser.TargetCheckout && req.Method == http.MethodPost:
		// POST /cart/checkout
		r.cartHandler.Checkout(ww, req)
	case params.Target == urlparser.TargetItem && req.Method == http.MethodPut:
		// PUT /cart/items/{cartItemId}
		r.cartHandler.UpdateItem(ww, req, params.CartItemId)
	case params.Target == urlparser.TargetItem && req.Method == http.MethodPatch:
		// PATCH /cart/items/{cartItemId}
		r.cartHandler.AdjustItem(ww, req, params.CartItemId)
	case params.Target == urlparser.TargetItem && req.Method == http.MethodDelete:
		// DELETE /cart/items/{cartItemId}
		r.cartHandler.RemoveFromCart(ww, req, params.CartItemId)
	default:
		http.Error(ww, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (r *Routes) session(ww http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.sessionHandler.Login(ww, req)
	case http.MethodGet:
		r.sessionHandler.Current(ww, req)
	case http.MethodDelete:
		r.sessionHandler.Logout(ww, req)
	default:
		http.Error(ww, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}
