package models

import "time"

type Order struct {
	ID          int64       `gorm:"primaryKey;column:id" json:"id"`
	UserID      int64       `gorm:"column:user_id" json:"user_id"`
	TotalAmount float64     `gorm:"column:total_amount;not null" json:"total_amount"`
	CreatedAt   time.Time   `gorm:"column:created_at" json:"created_at"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}
