package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canteen/models"
	"canteen/store"
)

type InvoiceItem struct {
	FoodItemID int64   `json:"food_item_id"`
	FoodItem   string  `json:"food_item"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Subtotal   float64 `json:"subtotal"`
}

// Invoice is the customer-facing view of a placed order.
type Invoice struct {
	OrderID      int64         `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	TotalItems   int           `json:"total_items"`
	TotalAmount  float64       `json:"total_amount"`
	OrderDate    time.Time     `json:"order_date"`
	Items        []InvoiceItem `json:"items"`
}

func (e *Engine) Invoice(ctx context.Context, orderID int64) (Invoice, error) {
	order, err := e.store.Ledger().GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Invoice{}, fmt.Errorf("%w: %d", ErrUnknownOrder, orderID)
		}
		return Invoice{}, storeError(err)
	}
	return newInvoiceBuilder(e.store).build(ctx, order)
}

// Invoices lists every order, oldest first.
func (e *Engine) Invoices(ctx context.Context) ([]Invoice, error) {
	orders, err := e.store.Ledger().ListOrders(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	b := newInvoiceBuilder(e.store)
	invoices := make([]Invoice, 0, len(orders))
	for _, order := range orders {
		invoice, err := b.build(ctx, order)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// BuildInvoice renders an order already in hand, such as the one PlaceOrder
// returns.
func (e *Engine) BuildInvoice(ctx context.Context, order models.Order) (Invoice, error) {
	return newInvoiceBuilder(e.store).build(ctx, order)
}

// invoiceBuilder memoises user and food item names across orders.
type invoiceBuilder struct {
	store store.Store
	users map[int64]string
	foods map[int64]string
}

func newInvoiceBuilder(s store.Store) *invoiceBuilder {
	return &invoiceBuilder{
		store: s,
		users: make(map[int64]string),
		foods: make(map[int64]string),
	}
}

func (b *invoiceBuilder) build(ctx context.Context, order models.Order) (Invoice, error) {
	customer, err := b.userName(ctx, order.UserID)
	if err != nil {
		return Invoice{}, err
	}

	invoice := Invoice{
		OrderID:      order.ID,
		CustomerName: customer,
		TotalItems:   len(order.Items),
		TotalAmount:  order.TotalAmount,
		OrderDate:    order.CreatedAt,
		Items:        make([]InvoiceItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		name, err := b.foodName(ctx, item.FoodItemID)
		if err != nil {
			return Invoice{}, err
		}
		invoice.Items = append(invoice.Items, InvoiceItem{
			FoodItemID: item.FoodItemID,
			FoodItem:   name,
			Quantity:   item.Quantity,
			UnitPrice:  item.ItemPrice,
			Subtotal:   item.TotalPrice,
		})
	}
	return invoice, nil
}

func (b *invoiceBuilder) userName(ctx context.Context, id int64) (string, error) {
	if name, ok := b.users[id]; ok {
		return name, nil
	}
	user, err := b.store.Accounts().Lookup(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user.Name = ""
	case err != nil:
		return "", storeError(err)
	}
	b.users[id] = user.Name
	return user.Name, nil
}

func (b *invoiceBuilder) foodName(ctx context.Context, id int64) (string, error) {
	if name, ok := b.foods[id]; ok {
		return name, nil
	}
	item, err := b.store.Catalog().Lookup(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		item.Name = ""
	case err != nil:
		return "", storeError(err)
	}
	b.foods[id] = item.Name
	return item.Name, nil
}
