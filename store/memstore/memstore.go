// Package memstore is an in-process implementation of store.Store.
//
// Every food item row carries its own exclusive lock. A transaction takes the
// lock the first time it touches a row's stock and holds it until commit or
// rollback; stock changes and ledger writes are staged in the transaction and
// become visible together on commit.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"canteen/models"
	"canteen/store"
)

const DefaultLockTimeout = 2 * time.Second

type Options struct {
	// LockTimeout bounds the wait for a row lock. Zero means DefaultLockTimeout.
	LockTimeout time.Duration
}

type row struct {
	item models.FoodItem
	lock chan struct{}
}

type Store struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	emails map[string]int64
	items  map[int64]*row
	names  map[string]int64
	orders map[int64]models.Order

	userSeq      store.Sequence
	itemSeq      store.Sequence
	orderSeq     store.Sequence
	orderItemSeq store.Sequence

	lockTimeout time.Duration
}

var _ store.Store = (*Store)(nil)

func New(opts Options) *Store {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Store{
		users:       make(map[int64]models.User),
		emails:      make(map[string]int64),
		items:       make(map[int64]*row),
		names:       make(map[string]int64),
		orders:      make(map[int64]models.Order),
		lockTimeout: timeout,
	}
}

func (s *Store) Catalog() store.Catalog {
	return autoCatalog{s: s}
}

func (s *Store) Accounts() store.Accounts {
	return accounts{s: s}
}

func (s *Store) Ledger() store.LedgerReader {
	return ledgerReader{s: s}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	t := newTx(s)
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()

	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	return t.commit()
}

func (s *Store) AddFoodItem(ctx context.Context, item models.FoodItem) (models.FoodItem, error) {
	item.Name = models.NormalizeLabel(item.Name)
	item.Category = models.NormalizeLabel(item.Category)
	if item.Name == "" || item.Category == "" {
		return models.FoodItem{}, fmt.Errorf("food item name and category are required: %w", store.ErrInvalid)
	}
	if item.Price < 0 || item.Stock < 0 {
		return models.FoodItem{}, fmt.Errorf("food item %q: price and stock must not be negative: %w", item.Name, store.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NameKey(item.Name)
	if _, exists := s.names[key]; exists {
		return models.FoodItem{}, fmt.Errorf("food item %q: %w", item.Name, store.ErrConflict)
	}
	if item.ID == 0 {
		item.ID = s.itemSeq.Next()
	} else if _, exists := s.items[item.ID]; exists {
		return models.FoodItem{}, fmt.Errorf("food item id %d: %w", item.ID, store.ErrConflict)
	} else {
		s.itemSeq.Observe(item.ID)
	}

	s.items[item.ID] = &row{item: item, lock: make(chan struct{}, 1)}
	s.names[key] = item.ID
	return item, nil
}

func (s *Store) AddUser(ctx context.Context, user models.User) (models.User, error) {
	if strings.TrimSpace(user.Name) == "" || user.Email == "" || user.Password == "" {
		return models.User{}, fmt.Errorf("user name, email and password are required: %w", store.ErrInvalid)
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[user.Email]; exists {
		return models.User{}, fmt.Errorf("email %q: %w", user.Email, store.ErrConflict)
	}
	if user.ID == 0 {
		user.ID = s.userSeq.Next()
	} else if _, exists := s.users[user.ID]; exists {
		return models.User{}, fmt.Errorf("user id %d: %w", user.ID, store.ErrConflict)
	} else {
		s.userSeq.Observe(user.ID)
	}

	s.users[user.ID] = user
	s.emails[user.Email] = user.ID
	return user, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) lookupItem(id int64) (models.FoodItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return models.FoodItem{}, fmt.Errorf("food item %d: %w", id, store.ErrNotFound)
	}
	return r.item, nil
}

func (s *Store) lookupItemByName(name string) (models.FoodItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[models.NameKey(name)]
	if !ok {
		return models.FoodItem{}, fmt.Errorf("food item %q: %w", name, store.ErrNotFound)
	}
	return s.items[id].item, nil
}

func (s *Store) listItems() []models.FoodItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.FoodItem, 0, len(s.items))
	for _, r := range s.items {
		items = append(items, r.item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *Store) getOrder(id int64) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return copyOrder(o), true
}

func (s *Store) listOrders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, copyOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

type accounts struct {
	s *Store
}

func (a accounts) Lookup(ctx context.Context, id int64) (models.User, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	u, ok := a.s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return u, nil
}

func (a accounts) LookupByEmail(ctx context.Context, email string) (models.User, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	id, ok := a.s.emails[email]
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", email, store.ErrNotFound)
	}
	return a.s.users[id], nil
}

// autoCatalog runs every stock change in its own transaction.
type autoCatalog struct {
	s *Store
}

func (c autoCatalog) Lookup(ctx context.Context, id int64) (models.FoodItem, error) {
	return c.s.lookupItem(id)
}

func (c autoCatalog) LookupByName(ctx context.Context, name string) (models.FoodItem, error) {
	return c.s.lookupItemByName(name)
}

func (c autoCatalog) List(ctx context.Context) ([]models.FoodItem, error) {
	return c.s.listItems(), nil
}

func (c autoCatalog) ReserveStock(ctx context.Context, id int64, quantity int) error {
	return c.s.InTx(ctx, func(tx store.Tx) error {
		return tx.Catalog().ReserveStock(ctx, id, quantity)
	})
}

func (c autoCatalog) RestoreStock(ctx context.Context, id int64, quantity int) error {
	return c.s.InTx(ctx, func(tx store.Tx) error {
		return tx.Catalog().RestoreStock(ctx, id, quantity)
	})
}

type ledgerReader struct {
	s *Store
}

func (l ledgerReader) GetOrder(ctx context.Context, orderID int64) (models.Order, error) {
	o, ok := l.s.getOrder(orderID)
	if !ok {
		return models.Order{}, fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	return o, nil
}

func (l ledgerReader) ListOrders(ctx context.Context) ([]models.Order, error) {
	return l.s.listOrders(), nil
}
