// Package config provides database configuration helpers for PostgreSQL
// connections to the lending database.
//
// Settings are read from the environment (prefix LENDING); factory functions
// create ready-to-use connections for the supported drivers (pgxpool.Pool,
// sql.DB, sqlx.DB).
package config
