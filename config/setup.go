package config

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"canteen/logger"
	"canteen/store"
	"canteen/store/gormstore"
	"canteen/store/memstore"
)

// DSNString builds the driver connection string from the individual fields unless
// an explicit dsn is configured.
func (d DatabaseConfig) DSNString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.Username,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			d.Host,
			d.Port,
			d.Username,
			d.Password,
			d.Database,
		)
	}
	return ""
}

func dialector(d DatabaseConfig) (gorm.Dialector, error) {
	dsn := d.DSNString()
	switch d.Driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("no SQL dialect for driver %q", d.Driver)
}

// SetupDatabaseConnection opens the configured SQL database.
func SetupDatabaseConnection(cfg DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(log.GormLevel()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// SetupStore returns the store for the configured driver, migrating the
// schema first when asked to.
func SetupStore(ctx context.Context, config Config, log *logger.Logger) (store.Store, error) {
	if config.Database.Driver == "memory" {
		return memstore.New(memstore.Options{LockTimeout: config.Engine.LockTimeout}), nil
	}

	db, err := SetupDatabaseConnection(config.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.Database.Driver, err)
	}
	s := gormstore.New(db, gormstore.Options{
		LockTimeout: config.Engine.LockTimeout,
		Logger:      log,
	})
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ping %s: %w", config.Database.Driver, err)
	}
	if config.Database.Migrate {
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func SetupRedisConnection(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, err
	}
	return redisClient, nil
}
