package db

import (
	"context"
	"fmt"

	"github.com/Dhoini/Entitlement-service/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// DBClient представляет клиент для работы с базой данных.
type DBClient struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewDBClient создает новый экземпляр DBClient.
func NewDBClient(ctx context.Context, dsn string, log *logger.Logger) (*DBClient, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		log.Errorw("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DBClient{db: db, log: log}, nil
}

// NewFromDB оборачивает уже открытое соединение (используется в тестах со sqlmock).
func NewFromDB(db *sqlx.DB, log *logger.Logger) *DBClient {
	return &DBClient{db: db, log: log}
}

// DB возвращает sqlx-подключение для репозиториев.
func (dc *DBClient) DB() *sqlx.DB {
	return dc.db
}

// Ping проверяет доступность базы.
func (dc *DBClient) Ping(ctx context.Context) error {
	if err := dc.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (dc *DBClient) Close() error {
	if err := dc.db.Close(); err != nil {
		dc.log.Errorw("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// WithTx выполняет fn в транзакции: коммит при nil, иначе откат.
func (dc *DBClient) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return WithTx(ctx, dc.db, dc.log, fn)
}

// WithTx — то же для произвольного *sqlx.DB.
func WithTx(ctx context.Context, db *sqlx.DB, log *logger.Logger, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		log.Errorw("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorw("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Errorw("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
