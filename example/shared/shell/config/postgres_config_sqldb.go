package config

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresSQLDB creates a configured and connected *sql.DB from the given settings.
func PostgresSQLDB(ctx context.Context, settings PostgresSettings) (*sql.DB, error) {
	db, err := sql.Open("postgres", settings.DSN())
	if err != nil {
		return nil, err
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(settings.MaxOpenConns)
	db.SetMaxIdleConns(settings.MaxIdleConns)
	db.SetConnMaxLifetime(settings.ConnMaxLifetime)
	db.SetConnMaxIdleTime(settings.ConnMaxIdleTime)

	// Test the connection
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}
