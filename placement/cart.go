package placement

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the widest quantity the order_items.quantity column holds.
const MaxQuantity = math.MaxInt32

// Line is one requested (food item, quantity) pair.
type Line struct {
	FoodItemID int64 `json:"food_item_id"`
	Quantity   int   `json:"quantity"`
}

type pricedLine struct {
	Line
	index     int
	itemPrice float64
	lineTotal decimal.Decimal
}

func validateCart(lines []Line) error {
	if len(lines) == 0 {
		return &InvalidCartError{Reason: "order must contain at least one item"}
	}
	for i, line := range lines {
		if line.Quantity < 1 {
			return &InvalidCartError{Line: i + 1, Reason: fmt.Sprintf("quantity must be at least 1, got %d", line.Quantity)}
		}
		if line.Quantity > MaxQuantity {
			return &InvalidCartError{Line: i + 1, Reason: fmt.Sprintf("quantity must not exceed %d", MaxQuantity)}
		}
	}
	return nil
}

// lockOrder returns the lines sorted by food item id. Lines for the same item
// keep their cart order. Taking row locks in this order keeps two placements
// over overlapping items from waiting on each other in a cycle.
func lockOrder(lines []pricedLine) []pricedLine {
	sorted := append([]pricedLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FoodItemID < sorted[j].FoodItemID
	})
	return sorted
}

func distinctFoodItems(lines []Line) []int64 {
	seen := make(map[int64]bool, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if !seen[line.FoodItemID] {
			seen[line.FoodItemID] = true
			ids = append(ids, line.FoodItemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
