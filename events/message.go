package events

import (
	"time"

	"canteen/models"
)

const RoutingKeyOrderPlaced = "order.placed"

type OrderPlacedItem struct {
	FoodItemID int64   `json:"food_item_id"`
	Quantity   int     `json:"quantity"`
	ItemPrice  float64 `json:"item_price"`
	TotalPrice float64 `json:"total_price"`
}

// OrderPlaced is the body published once an order commits.
type OrderPlaced struct {
	OrderID     int64             `json:"order_id"`
	UserID      int64             `json:"user_id"`
	TotalAmount float64           `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderPlacedItem `json:"items"`
}

func NewOrderPlaced(order models.Order) OrderPlaced {
	msg := OrderPlaced{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
		Items:       make([]OrderPlacedItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		msg.Items = append(msg.Items, OrderPlacedItem{
			FoodItemID: item.FoodItemID,
			Quantity:   item.Quantity,
			ItemPrice:  item.ItemPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return msg
}
