// pkg/db/postgres.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds database connection configuration.
type Config struct {
	Host          string `envconfig:"HOST" default:"localhost"`
	Port          int    `envconfig:"PORT" default:"5432"`
	User          string `envconfig:"USER" default:"user"`
	Password      string `envconfig:"PASSWORD" default:"password"`
	DBName        string `envconfig:"NAME" default:"tcoindb"`
	SSLMode       string `envconfig:"SSLMODE" default:"disable"`
	MaxOpenConns  int    `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns  int    `envconfig:"MAX_IDLE_CONNS" default:"10"`
	RetryAttempts int    `envconfig:"RETRY_ATTEMPTS" default:"3"`
}

// DSN returns the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewPostgresDB initializes and returns a new PostgreSQL database connection.
// It uses sqlx for enhanced database operations.
func NewPostgresDB(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return db, nil
}
