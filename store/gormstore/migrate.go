package gormstore

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

//go:embed schema/*.sql
var schemaFS embed.FS

var sequencedTables = []string{"users", "food_items", "orders", "order_items"}

// Migrate creates the canteen tables for the connected dialect. It is safe
// to run against an already migrated database.
func (s *Store) Migrate(ctx context.Context) error {
	data, err := schemaFS.ReadFile("schema/" + s.dialect() + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for dialect %q: %w", s.dialect(), err)
	}

	db := s.db.WithContext(ctx)
	for _, stmt := range strings.Split(string(data), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			s.logger.Error("Migration statement failed", "error", err, "statement", stmt)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.logger.Info("Schema migrated", "dialect", s.dialect())
	return nil
}

// SyncSequences moves every table's id sequence past the highest stored id,
// so rows loaded with explicit ids do not collide with generated ones.
// MySQL and SQLite track this on their own.
func (s *Store) SyncSequences(ctx context.Context) error {
	if s.dialect() != "postgres" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range sequencedTables {
			stmt := fmt.Sprintf(
				"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
				table)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("sync sequence for %s: %w", table, err)
			}
		}
		return nil
	})
}
