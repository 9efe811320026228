package postgresengine

import (
	"database/sql"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/liblend/lending-engine-go/lending"
	"github.com/liblend/lending-engine-go/lending/postgresengine/internal/adapters"
)

const (
	defaultLoansTableName   = "loans"
	defaultCopiesTableName  = "copies"
	defaultPatronsTableName = "patrons"
	defaultTitlesTableName  = "titles"

	dialectPostgres = "postgres"
	dateFormat      = "2006-01-02"

	colID         = "id"
	colPatronID   = "patron_id"
	colCopyID     = "copy_id"
	colBorrowDate = "borrow_date"
	colReturnDate = "return_date"
	colTitleID    = "title_id"
	colCopyNumber = "copy_number"
	colStatus     = "status"
	colCode       = "code"
	colName       = "name"
	colAuthor     = "author"
	colEmail      = "email"
	colRole       = "role"

	logMsgBuildQueryFailed    = "failed to build sql query"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database execution failed"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitTxFailed      = "failed to commit transaction"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgLoanCreated         = "loan created"
	logMsgLoanClosed          = "loan closed"
	logMsgLoanEdited          = "loan edited"
	logMsgLoanDeleted         = "loan deleted"
	logMsgCopyConflict        = "copy availability conflict detected"
	logMsgLimitRejected       = "loan limit rejection"
	logMsgTitleAdded          = "title added"
	logMsgPatronAdded         = "patron added"
	logMsgCopyAdded           = "copy added"
	logMsgCopyRemoved         = "copy removed"
	logMsgPatronRemoved       = "patron removed"
	logMsgQueryCompleted      = "query completed"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "lending engine operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrLoanID             = "loan_id"
	logAttrPatronID           = "patron_id"
	logAttrCopyID             = "copy_id"
	logAttrTitleID            = "title_id"
	logAttrSessionID          = "session_id"
	logAttrResultCount        = "result_count"
	logAttrDurationMS         = "duration_ms"
	logActionQuery            = "query"
	logActionCreateLoan       = "create_loan"
	logActionCloseLoan        = "close_loan"
	logActionEditLoan         = "edit_loan"
	logActionDeleteLoan       = "delete_loan"
	logActionAddTitle         = "add_title"
	logActionAddPatron        = "add_patron"
	logActionAddCopy          = "add_copy"
	logActionRemoveCopy       = "remove_copy"
	logActionRemovePatron     = "remove_patron"
	logActionRemoveTitle      = "remove_title"
	metricLoanConflicts       = "lending_copy_conflicts_total"
	metricLimitRejections     = "lending_limit_rejections_total"
	metricOperationDuration   = "lending_operation_duration_seconds"
	metricOperationErrors     = "lending_operation_errors_total"
	spanNamePrefix            = "lending."
	spanAttrOperation         = "operation"
	spanAttrTable             = "table"
	statusOK                  = "ok"
	statusError               = "error"
	statusConflict            = "conflict"
)

type sqlQueryString = string

// TableNames configures which tables the engine reads and writes.
// Empty fields fall back to the defaults.
type TableNames struct {
	Loans   string
	Copies  string
	Patrons string
	Titles  string
}

// Engine is the PostgreSQL lending engine. It is the only legal writer of
// copy availability: every loan operation commits the loan change and the
// copy status flip as one transaction, serialized per copy via the row lock
// taken by the conditional status update.
type Engine struct {
	db               adapters.DBAdapter
	tables           TableNames
	loanLimit        int
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metricsCollector lending.MetricsCollector
	tracingCollector lending.TracingCollector
}

// NewEngineFromPGXPool creates a new Engine using a pgx pool with optional configuration.
func NewEngineFromPGXPool(pool *pgxpool.Pool, options ...Option) (Engine, error) {
	if pool == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(pool), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (Engine, error) {
	engine := Engine{
		db: db,
		tables: TableNames{
			Loans:   defaultLoansTableName,
			Copies:  defaultCopiesTableName,
			Patrons: defaultPatronsTableName,
			Titles:  defaultTitlesTableName,
		},
		loanLimit: lending.DefaultLoanLimit,
	}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return Engine{}, err
		}
	}

	return engine, nil
}

// LoanLimit returns the configured maximum number of open loans per patron.
func (e Engine) LoanLimit() int {
	return e.loanLimit
}
