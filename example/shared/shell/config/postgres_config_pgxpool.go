package config

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPGXPoolConfig creates a pgxpool.Config from the given settings.
func PostgresPGXPoolConfig(settings PostgresSettings) *pgxpool.Config {
	dbConfig, err := pgxpool.ParseConfig(settings.DSN())
	if err != nil {
		log.Fatal("Failed to create a config, error: ", err)
	}

	dbConfig.MaxConns = int32(settings.MaxOpenConns)
	dbConfig.MinConns = int32(settings.MaxIdleConns)
	dbConfig.MaxConnLifetime = settings.ConnMaxLifetime
	dbConfig.MaxConnIdleTime = settings.ConnMaxIdleTime
	dbConfig.ConnConfig.ConnectTimeout = settings.ConnectTimeout

	return dbConfig
}

// PostgresPGXPool creates a connected pgxpool.Pool from the given settings.
func PostgresPGXPool(ctx context.Context, settings PostgresSettings) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, PostgresPGXPoolConfig(settings))
	if err != nil {
		return nil, err
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, pingErr
	}

	return pool, nil
}
