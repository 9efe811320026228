package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/liblend/lending-engine-go/lending"
	"github.com/liblend/lending-engine-go/lending/postgresengine/internal/adapters"
)

// GetLoan returns the loan with the given id or lending.ErrLoanNotFound.
func (e Engine) GetLoan(ctx context.Context, loanID lending.LoanIDInt) (lending.Loan, error) {
	sqlQuery, buildErr := e.buildSelectLoansQuery(goqu.Ex{colID: loanID})
	if buildErr != nil {
		return lending.Loan{}, buildErr
	}

	loans, err := e.queryLoans(ctx, sqlQuery)
	if err != nil {
		return lending.Loan{}, err
	}

	if len(loans) == 0 {
		return lending.Loan{}, lending.ErrLoanNotFound
	}

	return loans[0], nil
}

// ListLoans returns all loans ordered by borrow date, then id.
// Results reflect committed state only: a concurrent in-flight CreateLoan is
// either fully visible or not visible at all.
func (e Engine) ListLoans(ctx context.Context) ([]lending.Loan, error) {
	sqlQuery, buildErr := e.buildSelectLoansQuery(nil)
	if buildErr != nil {
		return nil, buildErr
	}

	return e.queryLoans(ctx, sqlQuery)
}

// ListLoansByPatron returns the patron's loans ordered by borrow date, then id.
// A patron without loans yields an empty slice, not an error.
func (e Engine) ListLoansByPatron(ctx context.Context, patronID lending.PatronIDInt) ([]lending.Loan, error) {
	sqlQuery, buildErr := e.buildSelectLoansQuery(goqu.Ex{colPatronID: patronID})
	if buildErr != nil {
		return nil, buildErr
	}

	return e.queryLoans(ctx, sqlQuery)
}

// CountOpenLoansForPatron returns the number of the patron's loans without a
// return date. This is the same count CreateLoan checks against the limit,
// but taken here without locks, so it can be stale by the time it is used.
func (e Engine) CountOpenLoansForPatron(ctx context.Context, patronID lending.PatronIDInt) (int, error) {
	sqlQuery, buildErr := e.buildCountOpenLoansQuery(patronID)
	if buildErr != nil {
		return 0, buildErr
	}

	count, _, err := e.queryOptionalInt64(ctx, e.db, sqlQuery, logActionQuery)
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// GetCopy returns the copy with the given id or lending.ErrCopyNotFound.
func (e Engine) GetCopy(ctx context.Context, copyID lending.CopyIDInt) (lending.Copy, error) {
	sqlQuery, buildErr := e.buildSelectCopiesQuery(goqu.Ex{colID: copyID})
	if buildErr != nil {
		return lending.Copy{}, buildErr
	}

	copies, err := e.queryCopies(ctx, sqlQuery)
	if err != nil {
		return lending.Copy{}, err
	}

	if len(copies) == 0 {
		return lending.Copy{}, lending.ErrCopyNotFound
	}

	return copies[0], nil
}

// ListAvailableCopies returns all copies currently in Available status,
// ordered by title id and copy number.
func (e Engine) ListAvailableCopies(ctx context.Context) ([]lending.Copy, error) {
	sqlQuery, buildErr := e.buildSelectCopiesQuery(goqu.Ex{colStatus: lending.CopyAvailable.String()})
	if buildErr != nil {
		return nil, buildErr
	}

	return e.queryCopies(ctx, sqlQuery)
}

// ListCopiesByTitle returns all copies of a title ordered by copy number.
func (e Engine) ListCopiesByTitle(ctx context.Context, titleID lending.TitleIDInt) ([]lending.Copy, error) {
	sqlQuery, buildErr := e.buildSelectCopiesQuery(goqu.Ex{colTitleID: titleID})
	if buildErr != nil {
		return nil, buildErr
	}

	return e.queryCopies(ctx, sqlQuery)
}

// GetPatron returns the patron with the given id or lending.ErrPatronNotFound.
func (e Engine) GetPatron(ctx context.Context, patronID lending.PatronIDInt) (lending.Patron, error) {
	sqlQuery, buildErr := e.buildSelectPatronQuery(patronID)
	if buildErr != nil {
		return lending.Patron{}, buildErr
	}

	rows, err := e.runQuery(ctx, e.db, sqlQuery, logActionQuery)
	if err != nil {
		return lending.Patron{}, err
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		return lending.Patron{}, lending.ErrPatronNotFound
	}

	var (
		patron  lending.Patron
		roleStr string
	)

	if scanErr := rows.Scan(&patron.ID, &patron.Name, &patron.Email, &roleStr); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return lending.Patron{}, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	role, roleErr := lending.ParseRole(roleStr)
	if roleErr != nil {
		return lending.Patron{}, roleErr
	}
	patron.Role = role

	return patron, nil
}

// GetTitle returns the title with the given id or lending.ErrTitleNotFound.
func (e Engine) GetTitle(ctx context.Context, titleID lending.TitleIDInt) (lending.Title, error) {
	sqlQuery, buildErr := e.buildSelectTitleQuery(titleID)
	if buildErr != nil {
		return lending.Title{}, buildErr
	}

	rows, err := e.runQuery(ctx, e.db, sqlQuery, logActionQuery)
	if err != nil {
		return lending.Title{}, err
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		return lending.Title{}, lending.ErrTitleNotFound
	}

	var title lending.Title
	if scanErr := rows.Scan(&title.ID, &title.Code, &title.Name, &title.Author); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return lending.Title{}, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	return title, nil
}

func (e Engine) queryLoans(ctx context.Context, sqlQuery string) ([]lending.Loan, error) {
	start := time.Now()

	rows, err := e.runQuery(ctx, e.db, sqlQuery, logActionQuery)
	if err != nil {
		return nil, err
	}
	defer e.closeRows(ctx, rows)

	loans := make([]lending.Loan, 0)

	for rows.Next() {
		loan, scanErr := e.scanLoan(ctx, rows)
		if scanErr != nil {
			return nil, scanErr
		}

		loans = append(loans, loan)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, asStorageError(rowsErr)
	}

	e.logOperation(ctx, logMsgQueryCompleted,
		logAttrResultCount, len(loans),
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return loans, nil
}

func (e Engine) scanLoan(ctx context.Context, rows adapters.DBRows) (lending.Loan, error) {
	var (
		loan       lending.Loan
		borrowDate time.Time
		returnDate sql.NullTime
	)

	if scanErr := rows.Scan(&loan.ID, &loan.PatronID, &loan.CopyID, &borrowDate, &returnDate); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return lending.Loan{}, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	loan.BorrowDate = lending.ToLoanDate(borrowDate)

	if returnDate.Valid {
		normalized := lending.ToLoanDate(returnDate.Time)
		loan.ReturnDate = &normalized
	}

	return loan, nil
}

func (e Engine) queryCopies(ctx context.Context, sqlQuery string) ([]lending.Copy, error) {
	rows, err := e.runQuery(ctx, e.db, sqlQuery, logActionQuery)
	if err != nil {
		return nil, err
	}
	defer e.closeRows(ctx, rows)

	copies := make([]lending.Copy, 0)

	for rows.Next() {
		var (
			item      lending.Copy
			statusStr string
		)

		if scanErr := rows.Scan(&item.ID, &item.TitleID, &item.CopyNumber, &statusStr); scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(lending.ErrScanningRowFailed, scanErr)
		}

		status, statusErr := lending.ParseCopyStatus(statusStr)
		if statusErr != nil {
			return nil, statusErr
		}
		item.Status = status

		copies = append(copies, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, asStorageError(rowsErr)
	}

	return copies, nil
}

func (e Engine) buildSelectLoansQuery(where goqu.Ex) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectPostgres).
		From(e.tables.Loans).
		Select(colID, colPatronID, colCopyID, colBorrowDate, colReturnDate).
		Order(goqu.C(colBorrowDate).Asc(), goqu.C(colID).Asc())

	if where != nil {
		builder = builder.Where(where)
	}

	sqlQuery, _, toSQLErr := builder.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildSelectCopiesQuery(where goqu.Ex) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Copies).
		Select(colID, colTitleID, colCopyNumber, colStatus).
		Where(where).
		Order(goqu.C(colTitleID).Asc(), goqu.C(colCopyNumber).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildSelectPatronQuery(patronID lending.PatronIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Patrons).
		Select(colID, colName, colEmail, colRole).
		Where(goqu.Ex{colID: patronID}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildSelectTitleQuery(titleID lending.TitleIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(e.tables.Titles).
		Select(colID, colCode, colName, colAuthor).
		Where(goqu.Ex{colID: titleID}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}
