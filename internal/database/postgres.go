package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dispatchsim/internal/config"
	"dispatchsim/internal/logging"

	"github.com/lib/pq"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresDB wraps sql.DB with logging. Used only by the optional
// Postgres-backed event sink (internal/eventlog); the core never
// requires a database connection.
type PostgresDB struct {
	*sql.DB
	config *config.DatabaseConfig
	logger *logging.Logger
}

// NewPostgresConnection creates a new PostgreSQL database connection
func NewPostgresConnection(cfg *config.DatabaseConfig, logger *logging.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{
		DB:     db,
		config: cfg,
		logger: logger,
	}

	logger.WithComponent("database").Info("PostgreSQL connection established")

	return pgDB, nil
}

// Close closes the database connection
func (db *PostgresDB) Close() error {
	db.logger.WithComponent("database").Info("Closing PostgreSQL connection")
	return db.DB.Close()
}

// Ping checks if the database connection is alive
func (db *PostgresDB) Ping(ctx context.Context) error {
	start := time.Now()
	err := db.DB.PingContext(ctx)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("ping", "", duration, err, nil)
	return err
}

// ExecContext executes a query with context and logging
func (db *PostgresDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("exec", extractTableName(query), duration, err, nil)

	return result, err
}

// QueryContext executes a query with context and logging
func (db *PostgresDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("query", extractTableName(query), duration, err, nil)

	return rows, err
}

// GetStats returns database connection statistics
func (db *PostgresDB) GetStats() sql.DBStats {
	return db.DB.Stats()
}

// HealthCheck performs a comprehensive health check
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	err := db.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("simple query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}

	return nil
}

// IsConnectionError checks if an error is a connection-related error
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "08000", "08003", "08006", "08001", "08004":
			return true
		}
	}

	errorMsg := err.Error()
	connectionErrors := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"no such host",
		"network is unreachable",
		"connection lost",
	}

	for _, connErr := range connectionErrors {
		if contains(errorMsg, connErr) {
			return true
		}
	}

	return false
}

// IsDuplicateKeyError checks if an error is a duplicate key constraint violation
func IsDuplicateKeyError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}

func extractTableName(query string) string {
	if len(query) < 10 {
		return "unknown"
	}

	q := query
	if len(q) > 100 {
		q = q[:100]
	}

	if contains(q, "event_logs") {
		return "event_logs"
	}

	return "unknown"
}
