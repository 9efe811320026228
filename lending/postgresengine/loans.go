package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/liblend/lending-engine-go/lending"
	"github.com/liblend/lending-engine-go/lending/postgresengine/internal/adapters"
)

// dbRunner is the common query surface of the pool adapter and an open transaction.
type dbRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// CreateLoan validates the lending business rules and, as one atomic unit,
// creates the loan record and flips the target copy to Borrowed.
//
// Preconditions checked inside the same transaction, serialized per patron
// (limit check) and per copy (availability check) via row locks:
//   - the patron exists, else lending.ErrPatronNotFound
//   - the patron holds fewer open loans than the limit, else lending.ErrLimitExceeded
//   - the copy exists, else lending.ErrCopyNotFound
//   - the copy is Available, else lending.ErrCopyUnavailable
//
// When two concurrent calls target the same copy, exactly one commits; the
// other observes Borrowed state and fails with lending.ErrCopyUnavailable.
// No serialization order between racing callers is guaranteed.
//
// A non-nil returnDate records a completed historical loan: the copy must
// still be Available, but its status is left untouched since only open loans
// mark a copy as Borrowed.
func (e Engine) CreateLoan(
	ctx context.Context,
	patronID lending.PatronIDInt,
	copyID lending.CopyIDInt,
	borrowDate time.Time,
	returnDate *time.Time,
) (lending.Loan, error) {

	loan, buildErr := lending.BuildLoan(patronID, copyID, borrowDate, returnDate)
	if buildErr != nil {
		return lending.Loan{}, buildErr
	}

	ctx, span := e.startSpan(ctx, logActionCreateLoan)
	start := time.Now()

	created, err := e.createLoanInTx(ctx, loan)

	e.recordOperationDuration(logActionCreateLoan, statusForError(err), time.Since(start))
	e.finishSpan(span, err)

	if err != nil {
		return lending.Loan{}, err
	}

	e.logOperation(ctx, logMsgLoanCreated,
		logAttrLoanID, created.ID,
		logAttrPatronID, created.PatronID,
		logAttrCopyID, created.CopyID,
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return created, nil
}

func (e Engine) createLoanInTx(ctx context.Context, loan lending.Loan) (lending.Loan, error) {
	tx, err := e.beginTx(ctx)
	if err != nil {
		return lending.Loan{}, err
	}

	committed := false
	defer func() {
		if !committed {
			e.rollback(ctx, tx)
		}
	}()

	if err = e.lockPatronRow(ctx, tx, loan.PatronID); err != nil {
		return lending.Loan{}, err
	}

	if loan.IsOpen() {
		openCount, countErr := e.countOpenLoans(ctx, tx, loan.PatronID)
		if countErr != nil {
			return lending.Loan{}, countErr
		}

		if openCount >= e.loanLimit {
			e.incrementCounter(metricLimitRejections, logActionCreateLoan)
			e.logOperation(ctx, logMsgLimitRejected, logAttrPatronID, loan.PatronID)

			return lending.Loan{}, lending.ErrLimitExceeded
		}

		if err = e.claimCopy(ctx, tx, loan.CopyID); err != nil {
			return lending.Loan{}, err
		}
	} else {
		if err = e.lockAvailableCopyRow(ctx, tx, loan.CopyID); err != nil {
			return lending.Loan{}, err
		}
	}

	loanID, insertErr := e.insertLoan(ctx, tx, loan)
	if insertErr != nil {
		return lending.Loan{}, insertErr
	}

	if err = e.commit(ctx, tx); err != nil {
		return lending.Loan{}, err
	}
	committed = true

	loan.ID = loanID

	return loan, nil
}

// CloseLoan records the return of the borrowed copy: it sets the loan's
// return date and flips the copy back to Available as one atomic unit.
//
// Closing an already closed loan overwrites the return date (edit semantics)
// and leaves the copy untouched; closing and revising the return date are
// deliberately the same operation.
func (e Engine) CloseLoan(ctx context.Context, loanID lending.LoanIDInt, returnDate time.Time) (lending.Loan, error) {
	if returnDate.IsZero() {
		return lending.Loan{}, lending.ErrMissingReturnDate
	}

	ctx, span := e.startSpan(ctx, logActionCloseLoan)
	start := time.Now()

	closed, err := e.closeLoanInTx(ctx, loanID, lending.ToLoanDate(returnDate))

	e.recordOperationDuration(logActionCloseLoan, statusForError(err), time.Since(start))
	e.finishSpan(span, err)

	if err != nil {
		return lending.Loan{}, err
	}

	e.logOperation(ctx, logMsgLoanClosed,
		logAttrLoanID, closed.ID,
		logAttrCopyID, closed.CopyID,
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return closed, nil
}

func (e Engine) closeLoanInTx(ctx context.Context, loanID lending.LoanIDInt, returnDate time.Time) (lending.Loan, error) {
	tx, err := e.beginTx(ctx)
	if err != nil {
		return lending.Loan{}, err
	}

	committed := false
	defer func() {
		if !committed {
			e.rollback(ctx, tx)
		}
	}()

	loan, err := e.lockLoanRow(ctx, tx, loanID)
	if err != nil {
		return lending.Loan{}, err
	}

	if returnDate.Before(loan.BorrowDate) {
		return lending.Loan{}, lending.ErrReturnBeforeBorrow
	}

	wasOpen := loan.IsOpen()
	loan.ReturnDate = &returnDate

	if err = e.updateLoanDates(ctx, tx, loan); err != nil {
		return lending.Loan{}, err
	}

	if wasOpen {
		if err = e.releaseCopy(ctx, tx, loan.CopyID); err != nil {
			return lending.Loan{}, err
		}
	}

	if err = e.commit(ctx, tx); err != nil {
		return lending.Loan{}, err
	}
	committed = true

	return loan, nil
}

// EditLoan revises both dates of an existing loan.
//
// Copy status follows the open/closed transition: setting a return date on an
// open loan behaves like CloseLoan; clearing the return date of a closed loan
// is a conflict-checked reopen that fails with lending.ErrCopyUnavailable when
// the copy is meanwhile held by another open loan.
func (e Engine) EditLoan(
	ctx context.Context,
	loanID lending.LoanIDInt,
	borrowDate time.Time,
	returnDate *time.Time,
) (lending.Loan, error) {

	if borrowDate.IsZero() {
		return lending.Loan{}, lending.ErrMissingBorrowDate
	}

	newBorrowDate := lending.ToLoanDate(borrowDate)

	var newReturnDate *time.Time
	if returnDate != nil {
		normalized := lending.ToLoanDate(*returnDate)
		if normalized.Before(newBorrowDate) {
			return lending.Loan{}, lending.ErrReturnBeforeBorrow
		}
		newReturnDate = &normalized
	}

	ctx, span := e.startSpan(ctx, logActionEditLoan)
	start := time.Now()

	edited, err := e.editLoanInTx(ctx, loanID, newBorrowDate, newReturnDate)

	e.recordOperationDuration(logActionEditLoan, statusForError(err), time.Since(start))
	e.finishSpan(span, err)

	if err != nil {
		return lending.Loan{}, err
	}

	e.logOperation(ctx, logMsgLoanEdited,
		logAttrLoanID, edited.ID,
		logAttrCopyID, edited.CopyID,
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return edited, nil
}

func (e Engine) editLoanInTx(
	ctx context.Context,
	loanID lending.LoanIDInt,
	borrowDate time.Time,
	returnDate *time.Time,
) (lending.Loan, error) {

	tx, err := e.beginTx(ctx)
	if err != nil {
		return lending.Loan{}, err
	}

	committed := false
	defer func() {
		if !committed {
			e.rollback(ctx, tx)
		}
	}()

	loan, err := e.lockLoanRow(ctx, tx, loanID)
	if err != nil {
		return lending.Loan{}, err
	}

	wasOpen := loan.IsOpen()
	willBeOpen := returnDate == nil

	switch {
	case !wasOpen && willBeOpen:
		// reopen: the copy must not be concurrently borrowed through another loan
		if err = e.claimCopy(ctx, tx, loan.CopyID); err != nil {
			return lending.Loan{}, err
		}

	case wasOpen && !willBeOpen:
		if err = e.releaseCopy(ctx, tx, loan.CopyID); err != nil {
			return lending.Loan{}, err
		}
	}

	loan.BorrowDate = borrowDate
	loan.ReturnDate = returnDate

	if err = e.updateLoanDates(ctx, tx, loan); err != nil {
		return lending.Loan{}, err
	}

	if err = e.commit(ctx, tx); err != nil {
		return lending.Loan{}, err
	}
	committed = true

	return loan, nil
}

// DeleteLoan removes a loan record. Deleting an open loan reverts the copy to
// Available as part of the same atomic unit; deleting a closed loan has no
// copy-status side effect.
func (e Engine) DeleteLoan(ctx context.Context, loanID lending.LoanIDInt) error {
	ctx, span := e.startSpan(ctx, logActionDeleteLoan)
	start := time.Now()

	err := e.deleteLoanInTx(ctx, loanID)

	e.recordOperationDuration(logActionDeleteLoan, statusForError(err), time.Since(start))
	e.finishSpan(span, err)

	if err != nil {
		return err
	}

	e.logOperation(ctx, logMsgLoanDeleted,
		logAttrLoanID, loanID,
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return nil
}

func (e Engine) deleteLoanInTx(ctx context.Context, loanID lending.LoanIDInt) error {
	tx, err := e.beginTx(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			e.rollback(ctx, tx)
		}
	}()

	loan, err := e.lockLoanRow(ctx, tx, loanID)
	if err != nil {
		return err
	}

	if loan.IsOpen() {
		if err = e.releaseCopy(ctx, tx, loan.CopyID); err != nil {
			return err
		}
	}

	sqlQuery, buildErr := e.buildDeleteLoanQuery(loanID)
	if buildErr != nil {
		return buildErr
	}

	if _, err = e.runExec(ctx, tx, sqlQuery, logActionDeleteLoan); err != nil {
		return err
	}

	if err = e.commit(ctx, tx); err != nil {
		return err
	}
	committed = true

	return nil
}

// lockPatronRow takes the patron row lock, serializing concurrent loan
// creations for the same patron so the limit check cannot be bypassed.
func (e Engine) lockPatronRow(ctx context.Context, tx adapters.DBTx, patronID lending.PatronIDInt) error {
	sqlQuery, buildErr := e.buildLockPatronQuery(patronID)
	if buildErr != nil {
		return buildErr
	}

	_, found, err := e.queryOptionalInt64(ctx, tx, sqlQuery, logActionCreateLoan)
	if err != nil {
		return err
	}

	if !found {
		return lending.ErrPatronNotFound
	}

	return nil
}

// countOpenLoans counts the patron's open loans under the patron row lock.
func (e Engine) countOpenLoans(ctx context.Context, runner dbRunner, patronID lending.PatronIDInt) (int, error) {
	sqlQuery, buildErr := e.buildCountOpenLoansQuery(patronID)
	if buildErr != nil {
		return 0, buildErr
	}

	count, _, err := e.queryOptionalInt64(ctx, runner, sqlQuery, logActionCreateLoan)
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// claimCopy flips the copy from Available to Borrowed. The conditional update
// takes the copy row lock; zero rows affected means the precondition failed
// and is classified against committed state.
func (e Engine) claimCopy(ctx context.Context, tx adapters.DBTx, copyID lending.CopyIDInt) error {
	sqlQuery, buildErr := e.buildClaimCopyQuery(copyID)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, err := e.runExec(ctx, tx, sqlQuery, logActionCreateLoan)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return e.classifyCopyConflict(ctx, tx, copyID)
	}

	return nil
}

// lockAvailableCopyRow verifies availability and takes the row lock without
// changing the status. Used when recording a loan that is already closed.
func (e Engine) lockAvailableCopyRow(ctx context.Context, tx adapters.DBTx, copyID lending.CopyIDInt) error {
	sqlQuery, buildErr := e.buildLockAvailableCopyQuery(copyID)
	if buildErr != nil {
		return buildErr
	}

	_, found, err := e.queryOptionalInt64(ctx, tx, sqlQuery, logActionCreateLoan)
	if err != nil {
		return err
	}

	if !found {
		return e.classifyCopyConflict(ctx, tx, copyID)
	}

	return nil
}

// releaseCopy flips the copy back to Available.
func (e Engine) releaseCopy(ctx context.Context, tx adapters.DBTx, copyID lending.CopyIDInt) error {
	sqlQuery, buildErr := e.buildReleaseCopyQuery(copyID)
	if buildErr != nil {
		return buildErr
	}

	_, err := e.runExec(ctx, tx, sqlQuery, logActionCloseLoan)

	return err
}

// classifyCopyConflict turns a zero-rows-affected copy guard into the typed
// taxonomy: a missing copy is NotFound, anything else lost the race.
func (e Engine) classifyCopyConflict(ctx context.Context, tx adapters.DBTx, copyID lending.CopyIDInt) error {
	sqlQuery, buildErr := e.buildSelectCopyStatusQuery(copyID)
	if buildErr != nil {
		return buildErr
	}

	_, found, err := e.queryOptionalString(ctx, tx, sqlQuery, logActionCreateLoan)
	if err != nil {
		return err
	}

	if !found {
		return lending.ErrCopyNotFound
	}

	e.incrementCounter(metricLoanConflicts, logActionCreateLoan)
	e.logOperation(ctx, logMsgCopyConflict, logAttrCopyID, copyID)

	return lending.ErrCopyUnavailable
}

// insertLoan persists the loan record and returns its generated identity.
func (e Engine) insertLoan(ctx context.Context, tx adapters.DBTx, loan lending.Loan) (lending.LoanIDInt, error) {
	sqlQuery, buildErr := e.buildInsertLoanQuery(loan)
	if buildErr != nil {
		return 0, buildErr
	}

	loanID, found, err := e.queryOptionalInt64(ctx, tx, sqlQuery, logActionCreateLoan)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, errors.Join(lending.ErrStorageUnavailable, errors.New("insert returned no id"))
	}

	return loanID, nil
}

// lockLoanRow reads the loan under FOR UPDATE so that concurrent close, edit
// and delete calls for the same loan serialize.
func (e Engine) lockLoanRow(ctx context.Context, tx adapters.DBTx, loanID lending.LoanIDInt) (lending.Loan, error) {
	sqlQuery, buildErr := e.buildLockLoanQuery(loanID)
	if buildErr != nil {
		return lending.Loan{}, buildErr
	}

	rows, err := e.runQuery(ctx, tx, sqlQuery, logActionEditLoan)
	if err != nil {
		return lending.Loan{}, err
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		return lending.Loan{}, lending.ErrLoanNotFound
	}

	var (
		patronID   int64
		copyID     int64
		borrowDate time.Time
		returnDate sql.NullTime
	)

	if scanErr := rows.Scan(&patronID, &copyID, &borrowDate, &returnDate); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return lending.Loan{}, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	loan := lending.Loan{
		ID:         loanID,
		PatronID:   patronID,
		CopyID:     copyID,
		BorrowDate: lending.ToLoanDate(borrowDate),
	}

	if returnDate.Valid {
		normalized := lending.ToLoanDate(returnDate.Time)
		loan.ReturnDate = &normalized
	}

	return loan, nil
}

// updateLoanDates writes both dates of the loan.
func (e Engine) updateLoanDates(ctx context.Context, tx adapters.DBTx, loan lending.Loan) error {
	sqlQuery, buildErr := e.buildUpdateLoanDatesQuery(loan)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, err := e.runExec(ctx, tx, sqlQuery, logActionEditLoan)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrLoanNotFound
	}

	return nil
}

func (e Engine) buildLockPatronQuery(patronID lending.PatronIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Patrons).
		Select(colID).
		Where(goqu.Ex{colID: patronID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildCountOpenLoansQuery(patronID lending.PatronIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Loans).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{colPatronID: patronID}, goqu.C(colReturnDate).IsNull()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildClaimCopyQuery(copyID lending.CopyIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(e.tables.Copies).
		Set(goqu.Record{colStatus: lending.CopyBorrowed.String()}).
		Where(goqu.Ex{
			colID:     copyID,
			colStatus: lending.CopyAvailable.String(),
		}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildLockAvailableCopyQuery(copyID lending.CopyIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Copies).
		Select(colID).
		Where(goqu.Ex{
			colID:     copyID,
			colStatus: lending.CopyAvailable.String(),
		}).
		ForUpdate(exp.Wait).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildReleaseCopyQuery(copyID lending.CopyIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(e.tables.Copies).
		Set(goqu.Record{colStatus: lending.CopyAvailable.String()}).
		Where(goqu.Ex{colID: copyID}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildSelectCopyStatusQuery(copyID lending.CopyIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Copies).
		Select(colStatus).
		Where(goqu.Ex{colID: copyID}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildInsertLoanQuery(loan lending.Loan) (sqlQueryString, error) {
	record := goqu.Record{
		colPatronID:   loan.PatronID,
		colCopyID:     loan.CopyID,
		colBorrowDate: loan.BorrowDate.Format(dateFormat),
		colReturnDate: nil,
	}

	if loan.ReturnDate != nil {
		record[colReturnDate] = loan.ReturnDate.Format(dateFormat)
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(e.tables.Loans).
		Rows(record).
		Returning(colID).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildLockLoanQuery(loanID lending.LoanIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Loans).
		Select(colPatronID, colCopyID, colBorrowDate, colReturnDate).
		Where(goqu.Ex{colID: loanID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildUpdateLoanDatesQuery(loan lending.Loan) (sqlQueryString, error) {
	record := goqu.Record{
		colBorrowDate: loan.BorrowDate.Format(dateFormat),
		colReturnDate: nil,
	}

	if loan.ReturnDate != nil {
		record[colReturnDate] = loan.ReturnDate.Format(dateFormat)
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(e.tables.Loans).
		Set(record).
		Where(goqu.Ex{colID: loan.ID}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildDeleteLoanQuery(loanID lending.LoanIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(e.tables.Loans).
		Where(goqu.Ex{colID: loanID}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// beginTx starts a transaction and maps driver failures into the typed taxonomy.
func (e Engine) beginTx(ctx context.Context) (adapters.DBTx, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		e.logError(ctx, logMsgBeginTxFailed, err)
		return nil, asStorageError(err)
	}

	return tx, nil
}

// commit commits the transaction; only after a successful commit does the
// combined loan and copy state change become visible to other callers.
func (e Engine) commit(ctx context.Context, tx adapters.DBTx) error {
	if err := tx.Commit(ctx); err != nil {
		e.logError(ctx, logMsgCommitTxFailed, err)
		return errors.Join(lending.ErrTransactionNotCommittable, asStorageError(err))
	}

	return nil
}

// rollback aborts the transaction; failures are non-critical and only logged.
func (e Engine) rollback(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(ctx); err != nil {
		e.logWarn(ctx, logMsgCommitTxFailed, err)
	}
}

// runExec executes a statement with timing and returns the rows affected.
func (e Engine) runExec(ctx context.Context, runner dbRunner, sqlQuery string, action string) (int64, error) {
	start := time.Now()
	result, execErr := runner.Exec(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if execErr != nil {
		e.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return 0, asStorageError(execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		e.logError(ctx, logMsgDBExecFailed, rowsAffectedErr)
		return 0, errors.Join(lending.ErrRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// runQuery executes a query with timing and returns the raw rows.
func (e Engine) runQuery(ctx context.Context, runner dbRunner, sqlQuery string, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := runner.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, asStorageError(queryErr)
	}

	return rows, nil
}

// closeRows safely closes database rows and logs any errors.
func (e Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// queryOptionalInt64 runs a single-column query expected to yield zero or one int64.
func (e Engine) queryOptionalInt64(ctx context.Context, runner dbRunner, sqlQuery string, action string) (int64, bool, error) {
	rows, err := e.runQuery(ctx, runner, sqlQuery, action)
	if err != nil {
		return 0, false, err
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		return 0, false, nil
	}

	var value int64
	if scanErr := rows.Scan(&value); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return 0, false, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	return value, true, nil
}

// queryOptionalString runs a single-column query expected to yield zero or one string.
func (e Engine) queryOptionalString(ctx context.Context, runner dbRunner, sqlQuery string, action string) (string, bool, error) {
	rows, err := e.runQuery(ctx, runner, sqlQuery, action)
	if err != nil {
		return "", false, err
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		return "", false, nil
	}

	var value string
	if scanErr := rows.Scan(&value); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return "", false, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	return value, true, nil
}

// statusForError maps an operation outcome to a metrics status label.
func statusForError(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, lending.ErrCopyUnavailable), errors.Is(err, lending.ErrLimitExceeded):
		return statusConflict
	default:
		return statusError
	}
}
