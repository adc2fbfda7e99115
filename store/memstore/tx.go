package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"canteen/models"
	"canteen/store"
)

type tx struct {
	s *Store

	held  []*row
	holds map[int64]bool
	delta map[int64]int

	orders    map[int64]*models.Order
	created   []int64
	finalized map[int64]bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:         s,
		holds:     make(map[int64]bool),
		delta:     make(map[int64]int),
		orders:    make(map[int64]*models.Order),
		finalized: make(map[int64]bool),
	}
}

func (t *tx) Catalog() store.Catalog {
	return txCatalog{t: t}
}

func (t *tx) Accounts() store.Accounts {
	return accounts{s: t.s}
}

func (t *tx) Ledger() store.Ledger {
	return txLedger{t: t}
}

// lock takes the row lock for id unless this transaction already holds it.
func (t *tx) lock(id int64) (*row, error) {
	t.s.mu.RLock()
	r, ok := t.s.items[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("food item %d: %w", id, store.ErrNotFound)
	}
	if t.holds[id] {
		return r, nil
	}

	timer := time.NewTimer(t.s.lockTimeout)
	defer timer.Stop()
	select {
	case r.lock <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("food item %d after %s: %w", id, t.s.lockTimeout, store.ErrBusy)
	}

	t.holds[id] = true
	t.held = append(t.held, r)
	return r, nil
}

func (t *tx) committedStock(r *row) int {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return r.item.Stock
}

func (t *tx) commit() error {
	defer t.release()

	for _, id := range t.created {
		if !t.finalized[id] {
			return fmt.Errorf("order %d: %w", id, store.ErrNotFinalized)
		}
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, d := range t.delta {
		if r := t.s.items[id]; r.item.Stock+d < 0 {
			return &store.StockError{FoodItemID: id, Requested: -d, Available: r.item.Stock}
		}
	}
	for id, d := range t.delta {
		t.s.items[id].item.Stock += d
	}
	for _, id := range t.created {
		t.s.orders[id] = copyOrder(*t.orders[id])
	}
	return nil
}

func (t *tx) rollback() {
	t.release()
}

func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		<-t.held[i].lock
	}
	t.held = nil
	t.holds = make(map[int64]bool)
}

type txCatalog struct {
	t *tx
}

// Reads inside the transaction see its own pending stock changes.
func (c txCatalog) overlay(item models.FoodItem) models.FoodItem {
	item.Stock += c.t.delta[item.ID]
	return item
}

func (c txCatalog) Lookup(ctx context.Context, id int64) (models.FoodItem, error) {
	item, err := c.t.s.lookupItem(id)
	if err != nil {
		return models.FoodItem{}, err
	}
	return c.overlay(item), nil
}

func (c txCatalog) LookupByName(ctx context.Context, name string) (models.FoodItem, error) {
	item, err := c.t.s.lookupItemByName(name)
	if err != nil {
		return models.FoodItem{}, err
	}
	return c.overlay(item), nil
}

func (c txCatalog) List(ctx context.Context) ([]models.FoodItem, error) {
	items := c.t.s.listItems()
	for i := range items {
		items[i] = c.overlay(items[i])
	}
	return items, nil
}

func (c txCatalog) ReserveStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve %d of food item %d: %w", quantity, id, store.ErrInvalid)
	}
	r, err := c.t.lock(id)
	if err != nil {
		return err
	}

	available := c.t.committedStock(r) + c.t.delta[id]
	if available < quantity {
		return &store.StockError{FoodItemID: id, Requested: quantity, Available: available}
	}
	c.t.delta[id] -= quantity
	return nil
}

func (c txCatalog) RestoreStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("restore %d of food item %d: %w", quantity, id, store.ErrInvalid)
	}
	if _, err := c.t.lock(id); err != nil {
		return err
	}
	c.t.delta[id] += quantity
	return nil
}

type txLedger struct {
	t *tx
}

// open returns the order staged in this transaction that still takes items.
func (l txLedger) open(orderID int64) (*models.Order, error) {
	o, ok := l.t.orders[orderID]
	if !ok {
		if _, committed := l.t.s.getOrder(orderID); committed {
			return nil, fmt.Errorf("order %d: %w", orderID, store.ErrFinalized)
		}
		return nil, fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	if l.t.finalized[orderID] {
		return nil, fmt.Errorf("order %d: %w", orderID, store.ErrFinalized)
	}
	return o, nil
}

func (l txLedger) CreateOrder(ctx context.Context, userID int64, createdAt time.Time) (int64, error) {
	if _, err := (accounts{s: l.t.s}).Lookup(ctx, userID); err != nil {
		return 0, err
	}
	if createdAt.IsZero() {
		createdAt = store.Now()
	}

	id := l.t.s.orderSeq.Next()
	l.t.orders[id] = &models.Order{
		ID:        id,
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
	}
	l.t.created = append(l.t.created, id)
	return id, nil
}

func (l txLedger) AppendOrderItem(ctx context.Context, orderID, foodItemID int64, quantity int, itemPrice float64) (int64, error) {
	o, err := l.open(orderID)
	if err != nil {
		return 0, err
	}
	if quantity < 1 {
		return 0, fmt.Errorf("order %d: quantity %d: %w", orderID, quantity, store.ErrInvalid)
	}
	if _, err := l.t.s.lookupItem(foodItemID); err != nil {
		return 0, err
	}

	id := l.t.s.orderItemSeq.Next()
	o.Items = append(o.Items, models.OrderItem{
		ID:         id,
		OrderID:    orderID,
		FoodItemID: foodItemID,
		Quantity:   quantity,
		ItemPrice:  itemPrice,
		TotalPrice: models.LineTotal(itemPrice, quantity).InexactFloat64(),
	})
	return id, nil
}

func (l txLedger) FinalizeOrder(ctx context.Context, orderID int64, totalAmount float64) error {
	o, err := l.open(orderID)
	if err != nil {
		return err
	}
	o.TotalAmount = totalAmount
	l.t.finalized[orderID] = true
	return nil
}

func (l txLedger) GetOrder(ctx context.Context, orderID int64) (models.Order, error) {
	if o, ok := l.t.orders[orderID]; ok {
		return copyOrder(*o), nil
	}
	return ledgerReader{s: l.t.s}.GetOrder(ctx, orderID)
}

func (l txLedger) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := l.t.s.listOrders()
	for _, id := range l.t.created {
		orders = append(orders, copyOrder(*l.t.orders[id]))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}
