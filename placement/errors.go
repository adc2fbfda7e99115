package placement

import (
	"errors"
	"fmt"
)

// Sentinels for every placement failure. The typed errors below unwrap to
// them, so callers can switch with errors.Is and pull detail with errors.As.
var (
	ErrInvalidCart       = errors.New("invalid cart")
	ErrUnknownUser       = errors.New("unknown user")
	ErrUnknownFoodItem   = errors.New("unknown food item")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrBusy              = errors.New("catalog busy, retry later")
	ErrConflict          = errors.New("conflicting catalog update")
	ErrInternal          = errors.New("internal error")
	ErrUnknownOrder      = errors.New("unknown order")
)

type InvalidCartError struct {
	// Line is the 1-based cart line at fault, 0 for the cart as a whole.
	Line   int
	Reason string
}

func (e *InvalidCartError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("invalid cart: %s", e.Reason)
	}
	return fmt.Sprintf("invalid cart: item %d: %s", e.Line, e.Reason)
}

func (e *InvalidCartError) Unwrap() error { return ErrInvalidCart }

type UnknownUserError struct {
	UserID int64
}

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("user %d not found", e.UserID)
}

func (e *UnknownUserError) Unwrap() error { return ErrUnknownUser }

type UnknownFoodItemError struct {
	FoodItemID int64
}

func (e *UnknownFoodItemError) Error() string {
	return fmt.Sprintf("food item %d not found", e.FoodItemID)
}

func (e *UnknownFoodItemError) Unwrap() error { return ErrUnknownFoodItem }

type InsufficientStockError struct {
	FoodItemID int64
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("food item %d is out of stock", e.FoodItemID)
	}
	return fmt.Sprintf("only %d units available for food item %d, requested %d", e.Available, e.FoodItemID, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Shortfall is how many units are missing.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}
