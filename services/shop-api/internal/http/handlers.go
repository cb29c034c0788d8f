package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"web-shop/internal/apperr"
	"web-shop/internal/auth"
	"web-shop/internal/authz"
	"web-shop/internal/cart"
	"web-shop/internal/catalog"
	"web-shop/internal/order"
	"web-shop/internal/payment"
)

type Checkout interface {
	StartCheckout(ctx context.Context, items []payment.CheckoutItem) (string, error)
	CompleteCheckout(ctx context.Context, userID, sessionID string) (order.Order, bool, error)
}

type Orders interface {
	Get(ctx context.Context, who auth.Identity, id string) (order.Order, error)
	List(ctx context.Context, who auth.Identity) ([]order.Order, error)
	MarkSent(ctx context.Context, who auth.Identity, id, tracking string) (order.Order, error)
}

type Cart interface {
	Add(ctx context.Context, userID string, productID int64, quantity int) (cart.Item, error)
	List(ctx context.Context, userID string) ([]cart.Item, error)
	Remove(ctx context.Context, userID string, itemID int64) error
}

type Handlers struct {
	Checkout Checkout
	Orders   Orders
	Cart     Cart
	Catalog  catalog.Catalog
	Log      zerolog.Logger
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type checkoutLineReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type startCheckoutReq struct {
	Items []checkoutLineReq `json:"items"`
}

type startCheckoutResp struct {
	SessionID string `json:"session_id"`
}

// StartCheckout prices the requested lines, or the whole cart when the body
// names none, at the current catalog price and opens a payment session.
func (h *Handlers) StartCheckout(w http.ResponseWriter, r *http.Request) {
	who := identity(r)
	if _, err := authz.Allow(who.Role, authz.CreateOrder); err != nil {
		writeError(w, h.Log, err)
		return
	}

	var req startCheckoutReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.Log, apperr.Validation("bad json"))
			return
		}
	}
	if len(req.Items) == 0 {
		entries, err := h.Cart.List(r.Context(), who.UserID)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		for _, e := range entries {
			req.Items = append(req.Items, checkoutLineReq{ProductID: e.ProductID, Quantity: e.Quantity})
		}
	}

	items := make([]payment.CheckoutItem, 0, len(req.Items))
	for _, l := range req.Items {
		p, err := h.Catalog.Resolve(r.Context(), l.ProductID)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		items = append(items, payment.CheckoutItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			PriceCents:  p.PriceCents,
			Quantity:    l.Quantity,
			UserID:      who.UserID,
		})
	}

	sessionID, err := h.Checkout.StartCheckout(r.Context(), items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, startCheckoutResp{SessionID: sessionID})
}

// CreateOrder materializes the caller's cart for a paid session. Repeating
// the call for the same session returns the same order.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	who := identity(r)
	if _, err := authz.Allow(who.Role, authz.CreateOrder); err != nil {
		writeError(w, h.Log, err)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, h.Log, apperr.Validation("sessionId is required"))
		return
	}

	o, dup, err := h.Checkout.CompleteCheckout(r.Context(), who.UserID, sessionID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	status := http.StatusCreated
	if dup {
		status = http.StatusOK
	}
	writeJSON(w, status, o)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) MarkSent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Orders.MarkSent(r.Context(), identity(r), id, r.URL.Query().Get("trackingNumber")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, "order "+id+" marked as sent")
}

type addToCartReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Log, apperr.Validation("bad json"))
		return
	}
	it, err := h.Cart.Add(r.Context(), identity(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *Handlers) ListCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.Cart.List(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if items == nil {
		items = []cart.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		writeError(w, h.Log, apperr.NotFound("cart item %s", chi.URLParam(r, "itemId")))
		return
	}
	if err := h.Cart.Remove(r.Context(), identity(r).UserID, itemID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, "cart item removed")
}
