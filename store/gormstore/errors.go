package gormstore

import (
	"errors"
	"fmt"
	"strings"

	"canteen/store"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MySQL server error numbers.
const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlock         = 1213
	mysqlNoReferencedRow  = 1452
	mysqlLockNowaitFailed = 3572
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgQueryCanceled        = "57014"
)

// classify maps driver errors onto the store sentinels. Unknown errors are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case mysqlLockWaitTimeout, mysqlDeadlock, mysqlLockNowaitFailed:
			return fmt.Errorf("%w: %v", store.ErrBusy, err)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure, pgQueryCanceled:
			return fmt.Errorf("%w: %v", store.ErrBusy, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		}
		return err
	}

	// SQLite reports constraint and locking failures only in the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %v", store.ErrBusy, err)
	}
	return err
}
