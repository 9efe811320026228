package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/liblend/lending-engine-go/example/shared/shell/config"
	"github.com/liblend/lending-engine-go/lending/postgresengine"
	"github.com/liblend/lending-engine-go/lending/postgresengine/schema"
)

// Engine type constants, selected via the ADAPTER_TYPE environment variable.
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper abstracts over the different database adapter types so the same
// engine tests run against pgxpool, sql.DB and sqlx.DB.
type Wrapper interface {
	GetEngine() postgresengine.Engine
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	engine postgresengine.Engine
}

func (w *PGXPoolWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db     *sql.DB
	engine postgresengine.Engine
}

func (w *SQLDBWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing.
type SQLXWrapper struct {
	db     *sqlx.DB
	engine postgresengine.Engine
}

func (w *SQLXWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the
// ADAPTER_TYPE environment variable and ensures the schema is migrated.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	settings := loadSettings(t)
	ensureSchema(t, settings)

	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		pool, err := config.PostgresPGXPool(context.Background(), settings)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		engine, err := postgresengine.NewEngineFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating lending engine")

		return &PGXPoolWrapper{pool: pool, engine: engine}

	case typeSQLDB:
		db, err := config.PostgresSQLDB(context.Background(), settings)
		require.NoError(t, err, "error connecting to DB in test setup")

		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		require.NoError(t, err, "error creating lending engine")

		return &SQLDBWrapper{db: db, engine: engine}

	case typeSQLXDB:
		db, err := config.PostgresSQLX(context.Background(), settings)
		require.NoError(t, err, "error connecting to DB in test setup")

		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		require.NoError(t, err, "error creating lending engine")

		return &SQLXWrapper{db: db, engine: engine}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// CleanUp truncates all lending tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	const truncate = "TRUNCATE TABLE loans, copies, patrons, titles RESTART IDENTITY CASCADE"

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), truncate)
		require.NoError(t, err, "error cleaning up the lending tables")

	case *SQLDBWrapper:
		_, err := w.db.Exec(truncate)
		require.NoError(t, err, "error cleaning up the lending tables")

	case *SQLXWrapper:
		_, err := w.db.Exec(truncate)
		require.NoError(t, err, "error cleaning up the lending tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}

// CopyStatusInDB reads the raw status column of a copy, bypassing the engine.
func CopyStatusInDB(t testing.TB, wrapper Wrapper, copyID int64) string {
	t.Helper()

	query := fmt.Sprintf("SELECT status FROM copies WHERE id = %d", copyID)

	var (
		status string
		err    error
	)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		err = w.pool.QueryRow(context.Background(), query).Scan(&status)

	case *SQLDBWrapper:
		err = w.db.QueryRow(query).Scan(&status)

	case *SQLXWrapper:
		err = w.db.QueryRow(query).Scan(&status)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	require.NoError(t, err, "error reading copy status")

	return status
}

// OpenLoanCountInDB counts the open loan rows for a copy, bypassing the engine.
func OpenLoanCountInDB(t testing.TB, wrapper Wrapper, copyID int64) int {
	t.Helper()

	query := fmt.Sprintf("SELECT count(*) FROM loans WHERE copy_id = %d AND return_date IS NULL", copyID)

	var (
		count int
		err   error
	)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		err = w.pool.QueryRow(context.Background(), query).Scan(&count)

	case *SQLDBWrapper:
		err = w.db.QueryRow(query).Scan(&count)

	case *SQLXWrapper:
		err = w.db.QueryRow(query).Scan(&count)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	require.NoError(t, err, "error counting open loans")

	return count
}

func loadSettings(t testing.TB) config.PostgresSettings {
	t.Helper()

	settings, err := config.LoadPostgresSettings()
	require.NoError(t, err, "error loading postgres settings")

	return settings
}

// ensureSchema applies the migrations once through a short-lived sql.DB.
func ensureSchema(t testing.TB, settings config.PostgresSettings) {
	t.Helper()

	db, err := config.PostgresSQLDB(context.Background(), settings)
	require.NoError(t, err, "error connecting for schema migration")

	defer func() { _ = db.Close() }()

	require.NoError(t, schema.Up(db), "error applying schema migrations")
}
