package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/models"
	"canteen/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(Options{LockTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, err := s.AddUser(ctx, models.User{ID: 3, Name: "Asha", Email: "asha@canteen.local", Password: "x"})
	require.NoError(t, err)
	_, err = s.AddFoodItem(ctx, models.FoodItem{ID: 9, Name: "paneer roll", Price: 80, Category: "snacks", Stock: 0})
	require.NoError(t, err)
	_, err = s.AddFoodItem(ctx, models.FoodItem{ID: 14, Name: "veg thali", Price: 100, Category: "meals", Stock: 21})
	require.NoError(t, err)
	return s
}

func TestAddFoodItemNormalisesAndRejectsDuplicateNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item, err := s.Catalog().Lookup(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, "Veg Thali", item.Name)
	assert.Equal(t, "Meals", item.Category)

	_, err = s.AddFoodItem(ctx, models.FoodItem{Name: "  VEG THALI ", Price: 90, Category: "meals"})
	assert.ErrorIs(t, err, store.ErrConflict)

	byName, err := s.Catalog().LookupByName(ctx, "vEg ThAlI")
	require.NoError(t, err)
	assert.Equal(t, int64(14), byName.ID)
}

func TestAddFoodItemRejectsInvalidValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddFoodItem(ctx, models.FoodItem{Name: "tea", Price: -1, Category: "beverages"})
	assert.ErrorIs(t, err, store.ErrInvalid)
	_, err = s.AddFoodItem(ctx, models.FoodItem{Name: " ", Price: 1, Category: "beverages"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestGeneratedIDsStartAfterSeededIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item, err := s.AddFoodItem(ctx, models.FoodItem{Name: "masala chai", Price: 12.5, Category: "beverages", Stock: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(15), item.ID)

	user, err := s.AddUser(ctx, models.User{Name: "Ravi", Email: "ravi@canteen.local", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), user.ID)
	assert.Equal(t, models.RoleCustomer, user.Role)
}

func TestLookupByEmailIsCaseSensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.Accounts().LookupByEmail(ctx, "asha@canteen.local")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)

	_, err = s.Accounts().LookupByEmail(ctx, "ASHA@canteen.local")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.AddUser(ctx, models.User{Name: "Asha 2", Email: "asha@canteen.local", Password: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestReserveStockInsufficient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Catalog().ReserveStock(ctx, 9, 1)
	var stockErr *store.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, store.StockError{FoodItemID: 9, Requested: 1, Available: 0}, *stockErr)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	assert.ErrorIs(t, s.Catalog().ReserveStock(ctx, 999, 1), store.ErrNotFound)
}

func TestTransactionCommitsStockAndOrderTogether(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var orderID int64
	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.Catalog().ReserveStock(ctx, 14, 2); err != nil {
			return err
		}
		item, err := tx.Catalog().Lookup(ctx, 14)
		require.NoError(t, err)
		assert.Equal(t, 19, item.Stock)

		outside, err := s.Catalog().Lookup(ctx, 14)
		require.NoError(t, err)
		assert.Equal(t, 21, outside.Stock)

		orderID, err = tx.Ledger().CreateOrder(ctx, 3, time.Time{})
		if err != nil {
			return err
		}
		if _, err := tx.Ledger().AppendOrderItem(ctx, orderID, 14, 2, 100); err != nil {
			return err
		}
		return tx.Ledger().FinalizeOrder(ctx, orderID, 200)
	})
	require.NoError(t, err)

	item, err := s.Catalog().Lookup(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 19, item.Stock)

	order, err := s.Ledger().GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, order.TotalAmount)
	assert.False(t, order.CreatedAt.IsZero())
	require.Len(t, order.Items, 1)
	assert.Equal(t, 200.0, order.Items[0].TotalPrice)
}

func TestTransactionRollbackLeavesNoTrace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Catalog().ReserveStock(ctx, 14, 5))
		orderID, err := tx.Ledger().CreateOrder(ctx, 3, time.Time{})
		require.NoError(t, err)
		_, err = tx.Ledger().AppendOrderItem(ctx, orderID, 14, 5, 100)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	item, err := s.Catalog().Lookup(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 21, item.Stock)

	orders, err := s.Ledger().ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.Catalog().ReserveStock(ctx, 14, 1))
			panic("boom")
		})
	})

	// The row lock was released: a new reservation does not time out.
	require.NoError(t, s.Catalog().ReserveStock(ctx, 14, 1))
	item, err := s.Catalog().Lookup(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 20, item.Stock)
}

func TestCommitRequiresFinalizedOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.Ledger().CreateOrder(ctx, 3, time.Time{})
		return err
	})
	assert.ErrorIs(t, err, store.ErrNotFinalized)

	orders, err := s.Ledger().ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFinalizedOrderTakesNoItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		orderID, err := tx.Ledger().CreateOrder(ctx, 3, time.Time{})
		require.NoError(t, err)
		require.NoError(t, tx.Ledger().FinalizeOrder(ctx, orderID, 0))

		_, err = tx.Ledger().AppendOrderItem(ctx, orderID, 14, 1, 100)
		assert.ErrorIs(t, err, store.ErrFinalized)
		assert.ErrorIs(t, tx.Ledger().FinalizeOrder(ctx, orderID, 1), store.ErrFinalized)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateOrderUnknownUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.Ledger().CreateOrder(ctx, 42, time.Time{})
		return err
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLockWaitIsBounded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.InTx(ctx, func(tx store.Tx) error {
			if err := tx.Catalog().ReserveStock(ctx, 14, 1); err != nil {
				return err
			}
			close(locked)
			<-done
			return errors.New("release")
		})
	}()
	<-locked

	err := s.Catalog().ReserveStock(ctx, 14, 1)
	close(done)
	assert.ErrorIs(t, err, store.ErrBusy)
}
