// Package adapters provides database adapter implementations for the PostgreSQL lending engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the lending engine to work seamlessly with any
// supported database connection type.
//
// On top of plain query execution, the adapters expose transactions: the
// engine's loan operations combine a loan write with a copy status flip and
// must commit both as one all-or-nothing unit while holding the row locks
// acquired inside the transaction.
package adapters
