// Package placement turns a cart into a confirmed order: it validates the
// request, reserves stock, captures prices and writes the order and its items
// in a single transaction.
package placement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"canteen/logger"
	"canteen/models"
	"canteen/store"
)

// CatalogCache is told which food items changed after an order commits.
type CatalogCache interface {
	Refresh(ctx context.Context, ids ...int64) error
}

// Publisher announces committed orders.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order models.Order) error
}

type Option func(*Engine)

func WithCache(cache CatalogCache) Option {
	return func(e *Engine) { e.cache = cache }
}

func WithPublisher(publisher Publisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithClock replaces the source of order creation times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Engine struct {
	store     store.Store
	cache     CatalogCache
	publisher Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func New(s store.Store, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	e := &Engine{
		store:  s,
		logger: log.WithComponent("placement"),
		now:    store.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceOrder places an order for userID. On success the returned order
// carries its items in cart order; on failure nothing is written and stock is
// unchanged. Once the transaction starts it runs to commit or rollback even
// if ctx is cancelled.
func (e *Engine) PlaceOrder(ctx context.Context, userID int64, lines []Line) (models.Order, error) {
	log := e.logger.WithContext("user_id", userID, "lines", len(lines))

	if err := validateCart(lines); err != nil {
		log.Warn("Rejected cart", "error", err)
		return models.Order{}, err
	}

	user, err := e.store.Accounts().Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Unknown user")
			return models.Order{}, &UnknownUserError{UserID: userID}
		}
		log.Error("Failed to look up user", "error", err)
		return models.Order{}, storeError(err)
	}
	if user.OrderingRole() != user.Role {
		log.Debug("Treating unrecognised role as customer", "role", user.Role)
	}

	txCtx := context.WithoutCancel(ctx)
	var order models.Order
	err = e.store.InTx(txCtx, func(tx store.Tx) error {
		priced, err := resolve(txCtx, tx.Catalog(), lines)
		if err != nil {
			return err
		}
		if err := e.reserve(txCtx, tx.Catalog(), priced); err != nil {
			return err
		}
		total, err := totals(priced)
		if err != nil {
			return err
		}
		order, err = e.record(txCtx, tx.Ledger(), userID, priced, total)
		return err
	})
	if err != nil {
		err = placementError(err)
		if errors.Is(err, ErrInternal) {
			log.Error("Order placement failed", "error", err)
		} else {
			log.Warn("Order placement rejected", "error", err)
		}
		return models.Order{}, err
	}

	log.Info("Order placed", "order_id", order.ID, "total_amount", order.TotalAmount)
	e.afterCommit(txCtx, order, lines)
	return order, nil
}

// resolve looks every line up in cart order and captures its current price.
func resolve(ctx context.Context, catalog store.Catalog, lines []Line) ([]pricedLine, error) {
	priced := make([]pricedLine, len(lines))
	for i, line := range lines {
		item, err := catalog.Lookup(ctx, line.FoodItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &UnknownFoodItemError{FoodItemID: line.FoodItemID}
			}
			return nil, err
		}
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			return nil, fmt.Errorf("%w: food item %d has price %v", ErrInternal, item.ID, item.Price)
		}
		priced[i] = pricedLine{Line: line, index: i, itemPrice: item.Price}
	}
	return priced, nil
}

// reserve takes stock for every line in ascending food item order. When a
// reservation fails the earlier ones are given back before the error is
// returned.
func (e *Engine) reserve(ctx context.Context, catalog store.Catalog, lines []pricedLine) error {
	reserved := make([]pricedLine, 0, len(lines))
	for _, line := range lockOrder(lines) {
		err := catalog.ReserveStock(ctx, line.FoodItemID, line.Quantity)
		if err == nil {
			reserved = append(reserved, line)
			continue
		}

		var stockErr *store.StockError
		switch {
		case errors.As(err, &stockErr):
			e.release(ctx, catalog, reserved)
			return &InsufficientStockError{
				FoodItemID: line.FoodItemID,
				Requested:  line.Quantity,
				Available:  stockErr.Available,
			}
		case errors.Is(err, store.ErrNotFound):
			e.release(ctx, catalog, reserved)
			return &UnknownFoodItemError{FoodItemID: line.FoodItemID}
		default:
			// A driver error leaves the transaction unusable; the rollback
			// undoes the reservations.
			return err
		}
	}
	return nil
}

func (e *Engine) release(ctx context.Context, catalog store.Catalog, reserved []pricedLine) {
	for i := len(reserved) - 1; i >= 0; i-- {
		line := reserved[i]
		if err := catalog.RestoreStock(ctx, line.FoodItemID, line.Quantity); err != nil {
			e.logger.Warn("Failed to release reservation", "food_item_id", line.FoodItemID, "quantity", line.Quantity, "error", err)
		}
	}
}

// totals fills in each line total and returns their sum.
func totals(lines []pricedLine) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range lines {
		lines[i].lineTotal = models.LineTotal(lines[i].itemPrice, lines[i].Quantity)
		total = total.Add(lines[i].lineTotal)
	}
	if total.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative order total %s", ErrInternal, total)
	}
	return total, nil
}

func (e *Engine) record(ctx context.Context, ledger store.Ledger, userID int64, lines []pricedLine, total decimal.Decimal) (models.Order, error) {
	orderID, err := ledger.CreateOrder(ctx, userID, e.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Order{}, &UnknownUserError{UserID: userID}
		}
		return models.Order{}, err
	}
	for _, line := range lines {
		if _, err := ledger.AppendOrderItem(ctx, orderID, line.FoodItemID, line.Quantity, line.itemPrice); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.Order{}, &UnknownFoodItemError{FoodItemID: line.FoodItemID}
			}
			return models.Order{}, err
		}
	}
	if err := ledger.FinalizeOrder(ctx, orderID, total.InexactFloat64()); err != nil {
		return models.Order{}, err
	}

	order, err := ledger.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if len(order.Items) != len(lines) {
		return models.Order{}, fmt.Errorf("%w: order %d has %d items, expected %d", ErrInternal, orderID, len(order.Items), len(lines))
	}
	if !models.SumLineTotals(order.Items).Equal(decimal.NewFromFloat(order.TotalAmount)) {
		return models.Order{}, fmt.Errorf("%w: order %d total %v does not match its items", ErrInternal, orderID, order.TotalAmount)
	}
	return order, nil
}

func (e *Engine) afterCommit(ctx context.Context, order models.Order, lines []Line) {
	log := e.logger.WithContext("order_id", order.ID)
	if e.cache != nil {
		if err := e.cache.Refresh(ctx, distinctFoodItems(lines)...); err != nil {
			log.Warn("Failed to refresh catalog cache", "error", err)
		}
	}
	if e.publisher != nil {
		if err := e.publisher.PublishOrderPlaced(ctx, order); err != nil {
			log.Warn("Failed to publish order event", "error", err)
		}
	}
}

// placementError maps whatever came out of the transaction onto the
// placement error set.
func placementError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCart),
		errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrUnknownFoodItem),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInternal):
		return err
	}
	return storeError(err)
}

func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrBusy):
		return fmt.Errorf("%w: %v", ErrBusy, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
