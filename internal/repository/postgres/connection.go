package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions параметры пула соединений
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolOptions значения по умолчанию для пула журнала платежей
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewConnection создает новое подключение к PostgreSQL
func NewConnection(ctx context.Context, connString string, opts PoolOptions, log *logger.Logger) (*pgxpool.Pool, error) {
	log.Infow("Connecting to PostgreSQL pool", "maxConns", opts.MaxConns)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns
	poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Infow("Successfully connected to PostgreSQL pool")
	return pool, nil
}
