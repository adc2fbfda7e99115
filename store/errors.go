package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrBusy              = errors.New("lock wait timed out")
	ErrConflict          = errors.New("unique constraint violated")
	ErrFinalized         = errors.New("order already finalized")
	ErrNotFinalized      = errors.New("order not finalized")
	ErrInvalid           = errors.New("invalid value")
)

// StockError reports a failed reservation.
type StockError struct {
	FoodItemID int64
	Requested  int
	Available  int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("food item %d: requested %d, available %d", e.FoodItemID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
