package checkout

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"web-shop/internal/apperr"
	"web-shop/internal/auth"
	"web-shop/internal/cart"
	"web-shop/internal/catalog"
	"web-shop/internal/order"
	"web-shop/shared/pkg/models"
)

// memDB is an in-memory store that behaves like the Postgres unit of work:
// each statement is atomic and visible to others at once, a unit of work
// holds a per-user lock, and a failed unit of work is undone. Writes made
// through addToCart/removeFromCart bypass the user lock the way the cart
// API does.
type memDB struct {
	mu    sync.Mutex
	state memState

	advisory userLocks

	// beforeClear runs inside a unit of work after the cart was read and
	// before it is cleared. db.mu is not held.
	beforeClear func(userID string)
}

type memState struct {
	sessions map[string]Claim
	carts    map[string][]cart.Item
	orders   map[string]order.Order
	products map[int64]catalog.Product
	users    map[string]auth.Identity
	events   []models.Event[models.OrderCreatedPayload]
	nextItem int64
}

func newMemDB() *memDB {
	return &memDB{state: memState{
		sessions: map[string]Claim{},
		carts:    map[string][]cart.Item{},
		orders:   map[string]order.Order{},
		products: map[int64]catalog.Product{},
		users:    map[string]auth.Identity{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		sessions: make(map[string]Claim, len(s.sessions)),
		carts:    make(map[string][]cart.Item, len(s.carts)),
		orders:   make(map[string]order.Order, len(s.orders)),
		products: make(map[int64]catalog.Product, len(s.products)),
		users:    make(map[string]auth.Identity, len(s.users)),
		events:   append([]models.Event[models.OrderCreatedPayload](nil), s.events...),
		nextItem: s.nextItem,
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]cart.Item(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (db *memDB) Do(ctx context.Context, userID string, fn func(ctx context.Context, s Stores) error) error {
	unlock := db.advisory.Lock(userID)
	defer unlock()

	tx := &memTx{db: db}
	if err := fn(ctx, Stores{
		Sessions: memSessions{tx},
		Carts:    memCarts{tx},
		Orders:   memOrders{tx},
		Catalog:  memCatalog{tx},
		Users:    memUsers{tx},
		Events:   memEvents{tx},
	}); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (db *memDB) addProduct(p catalog.Product) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.products[p.ID] = p
}

func (db *memDB) addUser(id auth.Identity) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.users[id.UserID] = id
}

func (db *memDB) addToCart(userID string, productID int64, qty int) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.nextItem++
	db.state.carts[userID] = append(db.state.carts[userID], cart.Item{
		ID: db.state.nextItem, UserID: userID, ProductID: productID, Quantity: qty,
	})
	return db.state.nextItem
}

func (db *memDB) removeFromCart(userID string, itemID int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	items := db.state.carts[userID]
	for i, it := range items {
		if it.ID == itemID {
			db.state.carts[userID] = append(items[:i:i], items[i+1:]...)
			return
		}
	}
}

func (db *memDB) snapshot() memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

// memTx applies statements directly to the shared state and keeps the
// inverse of each write for rollback.
type memTx struct {
	db   *memDB
	undo []func(st *memState)
}

func (tx *memTx) exec(f func(st *memState) (undo func(st *memState))) {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if u := f(&tx.db.state); u != nil {
		tx.undo = append(tx.undo, u)
	}
}

func (tx *memTx) read(f func(st *memState)) {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	f(&tx.db.state)
}

func (tx *memTx) rollback() {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i](&tx.db.state)
	}
}

type (
	memSessions struct{ tx *memTx }
	memCarts    struct{ tx *memTx }
	memOrders   struct{ tx *memTx }
	memCatalog  struct{ tx *memTx }
	memUsers    struct{ tx *memTx }
	memEvents   struct{ tx *memTx }
)

func (t memSessions) Claim(ctx context.Context, sessionID, userID string) (Claim, error) {
	var c Claim
	t.tx.exec(func(st *memState) func(*memState) {
		if existing, ok := st.sessions[sessionID]; ok {
			c = existing
			return nil
		}
		st.sessions[sessionID] = Claim{UserID: userID}
		c = Claim{New: true, UserID: userID}
		return func(st *memState) { delete(st.sessions, sessionID) }
	})
	return c, nil
}

func (t memSessions) Link(ctx context.Context, sessionID, orderID string) error {
	t.tx.exec(func(st *memState) func(*memState) {
		prev := st.sessions[sessionID]
		c := prev
		c.OrderID = orderID
		st.sessions[sessionID] = c
		return func(st *memState) { st.sessions[sessionID] = prev }
	})
	return nil
}

func (t memCarts) Insert(ctx context.Context, userID string, productID int64, quantity int) (cart.Item, error) {
	var it cart.Item
	t.tx.exec(func(st *memState) func(*memState) {
		st.nextItem++
		it = cart.Item{ID: st.nextItem, UserID: userID, ProductID: productID, Quantity: quantity}
		st.carts[userID] = append(st.carts[userID], it)
		return func(st *memState) { removeItems(st, userID, map[int64]bool{it.ID: true}) }
	})
	return it, nil
}

func (t memCarts) ListByUser(ctx context.Context, userID string) ([]cart.Item, error) {
	var out []cart.Item
	t.tx.read(func(st *memState) {
		out = append([]cart.Item(nil), st.carts[userID]...)
	})
	return out, nil
}

func (t memCarts) Clear(ctx context.Context, userID string, ids []int64) error {
	if t.tx.db.beforeClear != nil {
		t.tx.db.beforeClear(userID)
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var removed []cart.Item
	t.tx.exec(func(st *memState) func(*memState) {
		removed = removeItems(st, userID, want)
		return func(st *memState) {
			st.carts[userID] = append(st.carts[userID], removed...)
			sort.Slice(st.carts[userID], func(i, j int) bool { return st.carts[userID][i].ID < st.carts[userID][j].ID })
		}
	})
	if len(removed) != len(ids) {
		return fmt.Errorf("%w: cleared %d of %d entries", cart.ErrChanged, len(removed), len(ids))
	}
	return nil
}

func removeItems(st *memState, userID string, ids map[int64]bool) []cart.Item {
	var kept, removed []cart.Item
	for _, it := range st.carts[userID] {
		if ids[it.ID] {
			removed = append(removed, it)
			continue
		}
		kept = append(kept, it)
	}
	st.carts[userID] = kept
	return removed
}

func (t memCarts) Remove(ctx context.Context, userID string, itemID int64) error {
	return apperr.NotFound("cart item %d", itemID)
}

func (t memOrders) Create(ctx context.Context, o order.Order) error {
	t.tx.exec(func(st *memState) func(*memState) {
		st.orders[o.ID] = o
		return func(st *memState) { delete(st.orders, o.ID) }
	})
	return nil
}

func (t memOrders) Get(ctx context.Context, id string) (order.Order, error) {
	var (
		o  order.Order
		ok bool
	)
	t.tx.read(func(st *memState) { o, ok = st.orders[id] })
	if !ok {
		return order.Order{}, apperr.NotFound("order %s", id)
	}
	return o, nil
}

func (t memOrders) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	t.tx.read(func(st *memState) {
		for _, o := range st.orders {
			if o.UserID == userID {
				out = append(out, o)
			}
		}
	})
	return out, nil
}

func (t memOrders) ListAll(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	t.tx.read(func(st *memState) {
		for _, o := range st.orders {
			out = append(out, o)
		}
	})
	return out, nil
}

func (t memOrders) MarkSent(ctx context.Context, id, tracking string, rejectResend bool) error {
	return apperr.Validation("not used by checkout")
}

func (t memCatalog) Resolve(ctx context.Context, productID int64) (catalog.Product, error) {
	var (
		p  catalog.Product
		ok bool
	)
	t.tx.read(func(st *memState) { p, ok = st.products[productID] })
	if !ok {
		return catalog.Product{}, apperr.NotFound("product %d", productID)
	}
	return p, nil
}

func (t memUsers) Get(ctx context.Context, userID string) (auth.Identity, error) {
	var (
		u  auth.Identity
		ok bool
	)
	t.tx.read(func(st *memState) { u, ok = st.users[userID] })
	if !ok {
		return auth.Identity{}, apperr.NotFound("user %s", userID)
	}
	return u, nil
}

func (t memEvents) Enqueue(ctx context.Context, aggregateID string, evt models.Event[models.OrderCreatedPayload]) error {
	t.tx.exec(func(st *memState) func(*memState) {
		st.events = append(st.events, evt)
		return func(st *memState) {
			for i, e := range st.events {
				if e.ID == evt.ID {
					st.events = append(st.events[:i:i], st.events[i+1:]...)
					return
				}
			}
		}
	})
	return nil
}
