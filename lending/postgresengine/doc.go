// Package postgresengine provides the PostgreSQL implementation of the lending engine.
//
// This package enforces the lending invariants against relational tables,
// supporting multiple database adapters (pgx, sql.DB, sqlx) with atomic
// operations and per-copy concurrency control.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Loan write and copy status flip committed as one transaction
//   - Per-copy serialization through conditional updates taking the row lock
//   - Rows-affected conflict detection classified into the typed error taxonomy
//   - Configurable table names, loan limit, and dual-logger support
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	engine, _ := postgresengine.NewEngineFromPGXPool(db)
//
//	// With operational logging and a custom loan limit
//	engine, _ := postgresengine.NewEngineFromPGXPool(
//		db,
//		postgresengine.WithLogger(logger),
//		postgresengine.WithLoanLimit(3),
//	)
//
//	loan, err := engine.CreateLoan(ctx, patronID, copyID, borrowDate, nil)
package postgresengine
