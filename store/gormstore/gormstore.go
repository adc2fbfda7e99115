// Package gormstore implements store.Store on a relational database through
// gorm. MySQL, PostgreSQL and SQLite are supported.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"canteen/logger"
	"canteen/models"
	"canteen/store"

	"gorm.io/gorm"
)

const DefaultLockTimeout = 2 * time.Second

type Options struct {
	LockTimeout time.Duration
	Logger      *logger.Logger
}

type Store struct {
	db          *gorm.DB
	lockTimeout time.Duration
	logger      *logger.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, opts Options) *Store {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		db:          db,
		lockTimeout: timeout,
		logger:      log.WithComponent("gorm_store"),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) dialect() string {
	return s.db.Dialector.Name()
}

func (s *Store) Catalog() store.Catalog {
	return catalog{db: s.db}
}

func (s *Store) Accounts() store.Accounts {
	return accounts{db: s.db}
}

func (s *Store) Ledger() store.LedgerReader {
	return ledger{db: s.db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		s.logger.Error("Failed to begin transaction", "error", db.Error)
		return classify(db.Error)
	}

	t := &tx{db: db, open: make(map[int64]bool)}
	defer func() {
		if p := recover(); p != nil {
			db.Rollback()
			s.logger.Error("Transaction panic, rolling back", "panic", p)
			panic(p)
		}
		if err != nil {
			if rbErr := db.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Failed to roll back transaction", "error", rbErr)
			}
			s.logger.Debug("Transaction rolled back", "error", err)
		}
	}()

	if err = s.applyLockTimeout(db); err != nil {
		return err
	}
	if err = fn(t); err != nil {
		return err
	}
	for id := range t.open {
		err = fmt.Errorf("order %d: %w", id, store.ErrNotFinalized)
		return err
	}
	if err = db.Commit().Error; err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		err = classify(err)
		return err
	}
	return nil
}

// applyLockTimeout bounds row lock waits for the rest of the transaction.
func (s *Store) applyLockTimeout(db *gorm.DB) error {
	var stmt string
	switch s.dialect() {
	case "postgres":
		stmt = fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	case "mysql":
		seconds := int(math.Ceil(s.lockTimeout.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		stmt = fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", seconds)
	default:
		return nil
	}
	if err := db.Exec(stmt).Error; err != nil {
		s.logger.Error("Failed to set lock timeout", "error", err)
		return classify(err)
	}
	return nil
}

func (s *Store) AddFoodItem(ctx context.Context, item models.FoodItem) (models.FoodItem, error) {
	item.Name = models.NormalizeLabel(item.Name)
	item.Category = models.NormalizeLabel(item.Category)
	if item.Name == "" || item.Category == "" {
		return models.FoodItem{}, fmt.Errorf("food item name and category are required: %w", store.ErrInvalid)
	}
	if item.Price < 0 || item.Stock < 0 {
		return models.FoodItem{}, fmt.Errorf("food item %q: price and stock must not be negative: %w", item.Name, store.ErrInvalid)
	}

	_, err := s.Catalog().LookupByName(ctx, item.Name)
	switch {
	case err == nil:
		return models.FoodItem{}, fmt.Errorf("food item %q: %w", item.Name, store.ErrConflict)
	case !errors.Is(err, store.ErrNotFound):
		return models.FoodItem{}, err
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		s.logger.Warn("Failed to add food item", "name", item.Name, "error", err)
		return models.FoodItem{}, fmt.Errorf("food item %q: %w", item.Name, classify(err))
	}
	s.logger.Debug("Added food item", "food_item_id", item.ID, "name", item.Name)
	return item, nil
}

func (s *Store) AddUser(ctx context.Context, user models.User) (models.User, error) {
	if user.Name == "" || user.Email == "" || user.Password == "" {
		return models.User{}, fmt.Errorf("user name, email and password are required: %w", store.ErrInvalid)
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}

	_, err := s.Accounts().LookupByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return models.User{}, fmt.Errorf("email %q: %w", user.Email, store.ErrConflict)
	case !errors.Is(err, store.ErrNotFound):
		return models.User{}, err
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Warn("Failed to add user", "email", user.Email, "error", err)
		return models.User{}, fmt.Errorf("email %q: %w", user.Email, classify(err))
	}
	return user, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type tx struct {
	db   *gorm.DB
	open map[int64]bool
}

func (t *tx) Catalog() store.Catalog {
	return catalog{db: t.db}
}

func (t *tx) Accounts() store.Accounts {
	return accounts{db: t.db}
}

func (t *tx) Ledger() store.Ledger {
	return ledger{db: t.db, open: t.open}
}
