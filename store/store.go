// Package store defines the access layers the order placement engine runs
// against: the catalog of food items, the account registry and the order
// ledger, plus the transaction boundary that ties stock reservations to
// ledger writes.
package store

import (
	"context"
	"time"

	"canteen/models"
)

// CatalogReader is the read side of the catalog.
type CatalogReader interface {
	Lookup(ctx context.Context, id int64) (models.FoodItem, error)
	LookupByName(ctx context.Context, name string) (models.FoodItem, error)
	List(ctx context.Context) ([]models.FoodItem, error)
}

// Catalog adds the stock counter operations. ReserveStock checks
// stock >= quantity and decrements under an exclusive row lock; it returns a
// *StockError when the check fails. RestoreStock is its compensation.
type Catalog interface {
	CatalogReader
	ReserveStock(ctx context.Context, id int64, quantity int) error
	RestoreStock(ctx context.Context, id int64, quantity int) error
}

type Accounts interface {
	Lookup(ctx context.Context, id int64) (models.User, error)
	// LookupByEmail matches the email exactly, case included.
	LookupByEmail(ctx context.Context, email string) (models.User, error)
}

type LedgerReader interface {
	GetOrder(ctx context.Context, orderID int64) (models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// Ledger is only available inside a transaction. An order created in a
// transaction must be finalized before the transaction commits, and takes no
// further items once finalized.
type Ledger interface {
	LedgerReader
	CreateOrder(ctx context.Context, userID int64, createdAt time.Time) (int64, error)
	AppendOrderItem(ctx context.Context, orderID, foodItemID int64, quantity int, itemPrice float64) (int64, error)
	FinalizeOrder(ctx context.Context, orderID int64, totalAmount float64) error
}

type Tx interface {
	Catalog() Catalog
	Accounts() Accounts
	Ledger() Ledger
}

// Store is a complete persistence backend.
type Store interface {
	Catalog() Catalog
	Accounts() Accounts
	Ledger() LedgerReader

	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on panic.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// AddFoodItem and AddUser load reference data. Names and emails are
	// checked for uniqueness here as well as by the schema.
	AddFoodItem(ctx context.Context, item models.FoodItem) (models.FoodItem, error)
	AddUser(ctx context.Context, user models.User) (models.User, error)

	Ping(ctx context.Context) error
	Close() error
}

// Now is the creation instant used for orders that do not carry one.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
