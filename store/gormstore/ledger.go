package gormstore

import (
	"context"
	"fmt"
	"time"

	"canteen/models"
	"canteen/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledger struct {
	db *gorm.DB
	// open tracks orders created in the current transaction that are not
	// finalized yet. Nil outside a transaction.
	open map[int64]bool
}

func (l ledger) checkOpen(ctx context.Context, orderID int64) error {
	if l.open[orderID] {
		return nil
	}
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return fmt.Errorf("order %d: %w", orderID, classify(err))
	}
	if count == 0 {
		return fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	return fmt.Errorf("order %d: %w", orderID, store.ErrFinalized)
}

func (l ledger) CreateOrder(ctx context.Context, userID int64, createdAt time.Time) (int64, error) {
	if createdAt.IsZero() {
		createdAt = store.Now()
	}

	order := models.Order{
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
	}
	if err := l.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return 0, fmt.Errorf("create order for user %d: %w", userID, classify(err))
	}
	l.open[order.ID] = true
	return order.ID, nil
}

func (l ledger) AppendOrderItem(ctx context.Context, orderID, foodItemID int64, quantity int, itemPrice float64) (int64, error) {
	if err := l.checkOpen(ctx, orderID); err != nil {
		return 0, err
	}
	if quantity < 1 {
		return 0, fmt.Errorf("order %d: quantity %d: %w", orderID, quantity, store.ErrInvalid)
	}

	item := models.OrderItem{
		OrderID:    orderID,
		FoodItemID: foodItemID,
		Quantity:   quantity,
		ItemPrice:  itemPrice,
		TotalPrice: models.LineTotal(itemPrice, quantity).InexactFloat64(),
	}
	if err := l.db.WithContext(ctx).Create(&item).Error; err != nil {
		return 0, fmt.Errorf("append item to order %d: %w", orderID, classify(err))
	}
	return item.ID, nil
}

func (l ledger) FinalizeOrder(ctx context.Context, orderID int64, totalAmount float64) error {
	if err := l.checkOpen(ctx, orderID); err != nil {
		return err
	}

	err := l.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("total_amount", totalAmount).
		Error
	if err != nil {
		return fmt.Errorf("finalize order %d: %w", orderID, classify(err))
	}
	delete(l.open, orderID)
	return nil
}

func (l ledger) GetOrder(ctx context.Context, orderID int64) (models.Order, error) {
	var order models.Order
	err := l.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Take(&order, "id = ?", orderID).
		Error
	if err != nil {
		return models.Order{}, fmt.Errorf("order %d: %w", orderID, classify(err))
	}
	return order, nil
}

func (l ledger) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := l.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&orders).
		Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", classify(err))
	}
	return orders, nil
}
