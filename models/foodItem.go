package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type FoodItem struct {
	ID       int64   `gorm:"primaryKey;column:id" json:"id" yaml:"id"`
	Name     string  `gorm:"column:name;size:100;not null" json:"name" yaml:"name"`
	Price    float64 `gorm:"column:price;not null" json:"price" yaml:"price"`
	Category string  `gorm:"column:category;size:50;not null" json:"category" yaml:"category"`
	Stock    int     `gorm:"column:stock;not null;default:0" json:"stock" yaml:"stock"`
}

func (FoodItem) TableName() string {
	return "food_items"
}

// NameKey is the key food item names are unique on.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeLabel trims and title-cases a food item name or category.
func NormalizeLabel(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}
