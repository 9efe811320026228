package lending

import "errors"

// Business-rule errors. Every precondition failure is reported synchronously
// to the caller as one of these sentinels; the engines never retry internally.
var (
	// ErrLoanNotFound is returned when a referenced loan does not exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrCopyNotFound is returned when a referenced copy does not exist.
	ErrCopyNotFound = errors.New("copy not found")

	// ErrPatronNotFound is returned when a referenced patron does not exist.
	ErrPatronNotFound = errors.New("patron not found")

	// ErrTitleNotFound is returned when a referenced title does not exist.
	ErrTitleNotFound = errors.New("title not found")

	// ErrCopyUnavailable is returned when the target copy is already borrowed,
	// including the case where a reopen would conflict with another open loan.
	ErrCopyUnavailable = errors.New("copy is not available")

	// ErrLimitExceeded is returned when the patron is already at the maximum
	// number of concurrently open loans.
	ErrLimitExceeded = errors.New("patron has reached the open loan limit")

	// ErrReferentialConflict is returned when a patron or copy cannot be
	// removed because loans still reference it.
	ErrReferentialConflict = errors.New("record is still referenced by loans")

	// ErrDuplicateCode is returned when a title code, patron email or copy
	// number within a title would collide with an existing record.
	ErrDuplicateCode = errors.New("identifying code already in use")

	// ErrBusy is returned when lock acquisition exceeded its deadline.
	// It is the only retryable error; callers decide whether to retry.
	ErrBusy = errors.New("lending engine busy, lock acquisition timed out")
)

// Validation errors for loan construction.
var (
	ErrMissingBorrowDate  = errors.New("borrow date must be provided")
	ErrMissingReturnDate  = errors.New("return date must be provided")
	ErrReturnBeforeBorrow = errors.New("return date must not precede the borrow date")
	ErrUnknownCopyStatus  = errors.New("unknown copy status")
	ErrUnknownRole        = errors.New("unknown patron role")
)

// Infrastructure and configuration errors. ErrStorageUnavailable is always
// joined with the underlying driver error so that callers can distinguish
// infrastructure failures from business-rule rejections with a single check.
var (
	ErrStorageUnavailable        = errors.New("lending storage unavailable")
	ErrBuildingQueryFailed       = errors.New("building the sql query failed")
	ErrScanningRowFailed         = errors.New("scanning the database row failed")
	ErrRowsAffectedFailed        = errors.New("getting the rows affected count failed")
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTableName            = errors.New("empty table name supplied")
	ErrInvalidLoanLimit          = errors.New("loan limit must be positive")
	ErrInvalidLockTimeout        = errors.New("lock timeout must be positive")
	ErrTransactionNotCommittable = errors.New("committing the transaction failed")
)
