package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/config"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	pgMaxOpenConns    = 10
	pgMaxIdleConns    = 2
	pgConnMaxLifetime = 30 * time.Minute
	pgPingTimeout     = 5 * time.Second
)

var (
	db     *gorm.DB
	dbErr  error
	dbOnce sync.Once
)

// PostgresDSN renders the libpq keyword/value connection string for cfg.
func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser,
		cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode)
}

// GetPostgres opens the shared run/prediction log database on first use.
// Training runs and prediction logs are small, so the pool stays narrow.
func GetPostgres() (*gorm.DB, error) {
	dbOnce.Do(func() {
		cfg := config.Load()
		conn, err := gorm.Open(postgres.Open(PostgresDSN(cfg)), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			dbErr = fmt.Errorf("open postgres: %w", err)
			return
		}
		sqlDB, err := conn.DB()
		if err != nil {
			dbErr = fmt.Errorf("postgres pool: %w", err)
			return
		}
		sqlDB.SetMaxOpenConns(pgMaxOpenConns)
		sqlDB.SetMaxIdleConns(pgMaxIdleConns)
		sqlDB.SetConnMaxLifetime(pgConnMaxLifetime)

		ctx, cancel := context.WithTimeout(context.Background(), pgPingTimeout)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			dbErr = fmt.Errorf("ping postgres %s:%s: %w", cfg.PostgresHost, cfg.PostgresPort, err)
			return
		}

		db = conn
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.PostgresHost,
			"database": cfg.PostgresDB,
		}).Info("Connected to PostgreSQL")
	})
	if dbErr != nil {
		logger.Log.WithError(dbErr).Error("PostgreSQL unavailable")
	}
	return db, dbErr
}

func ClosePostgres() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
