package models

type OrderItem struct {
	ID         int64   `gorm:"primaryKey;column:id" json:"id"`
	OrderID    int64   `gorm:"column:order_id;not null" json:"order_id"`
	FoodItemID int64   `gorm:"column:food_item_id;not null" json:"food_item_id"`
	Quantity   int     `gorm:"column:quantity;not null" json:"quantity"`
	ItemPrice  float64 `gorm:"column:item_price" json:"item_price"`
	TotalPrice float64 `gorm:"column:total_price" json:"total_price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
