package gormstore

import (
	"context"
	"fmt"

	"canteen/models"

	"gorm.io/gorm"
)

type accounts struct {
	db *gorm.DB
}

func (a accounts) Lookup(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	if err := a.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		return models.User{}, fmt.Errorf("user %d: %w", id, classify(err))
	}
	return user, nil
}

func (a accounts) LookupByEmail(ctx context.Context, email string) (models.User, error) {
	// MySQL compares with a case-insensitive collation by default.
	cond := "email = ?"
	if a.db.Dialector.Name() == "mysql" {
		cond = "BINARY email = ?"
	}

	var user models.User
	if err := a.db.WithContext(ctx).Where(cond, email).Take(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("user %q: %w", email, classify(err))
	}
	return user, nil
}
