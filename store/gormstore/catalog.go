package gormstore

import (
	"context"
	"errors"
	"fmt"

	"canteen/models"
	"canteen/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type catalog struct {
	db *gorm.DB
}

func (c catalog) Lookup(ctx context.Context, id int64) (models.FoodItem, error) {
	var item models.FoodItem
	if err := c.db.WithContext(ctx).Take(&item, "id = ?", id).Error; err != nil {
		return models.FoodItem{}, fmt.Errorf("food item %d: %w", id, classify(err))
	}
	return item, nil
}

func (c catalog) LookupByName(ctx context.Context, name string) (models.FoodItem, error) {
	var item models.FoodItem
	err := c.db.WithContext(ctx).
		Where("lower(name) = ?", models.NameKey(name)).
		Take(&item).
		Error
	if err != nil {
		return models.FoodItem{}, fmt.Errorf("food item %q: %w", name, classify(err))
	}
	return item, nil
}

func (c catalog) List(ctx context.Context) ([]models.FoodItem, error) {
	var items []models.FoodItem
	if err := c.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list food items: %w", classify(err))
	}
	return items, nil
}

// ReserveStock decrements with a guarded UPDATE so the check and the write
// happen under the row lock the database takes for the statement.
func (c catalog) ReserveStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve %d of food item %d: %w", quantity, id, store.ErrInvalid)
	}

	result := c.db.WithContext(ctx).
		Model(&models.FoodItem{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("reserve food item %d: %w", id, classify(result.Error))
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// Nothing matched: either the row is gone or the stock is short.
	query := c.db.WithContext(ctx)
	if c.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.FoodItem
	err := query.Take(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("food item %d: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("reserve food item %d: %w", id, classify(err))
	}
	return &store.StockError{FoodItemID: id, Requested: quantity, Available: item.Stock}
}

func (c catalog) RestoreStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("restore %d of food item %d: %w", quantity, id, store.ErrInvalid)
	}

	result := c.db.WithContext(ctx).
		Model(&models.FoodItem{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("restore food item %d: %w", id, classify(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("food item %d: %w", id, store.ErrNotFound)
	}
	return nil
}
