package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/liblend/lending-engine-go/lending"
)

// AddTitle creates a catalog entry. The title code must be unique;
// a collision yields lending.ErrDuplicateCode.
func (e Engine) AddTitle(ctx context.Context, code string, name string, author string) (lending.Title, error) {
	sqlQuery, buildErr := e.buildInsertReturningIDQuery(e.tables.Titles, goqu.Record{
		colCode:   code,
		colName:   name,
		colAuthor: author,
	})
	if buildErr != nil {
		return lending.Title{}, buildErr
	}

	titleID, err := e.insertReturningID(ctx, sqlQuery, logActionAddTitle)
	if err != nil {
		return lending.Title{}, err
	}

	e.logOperation(ctx, logMsgTitleAdded, logAttrTitleID, titleID)

	return lending.Title{ID: titleID, Code: code, Name: name, Author: author}, nil
}

// AddPatron registers a library member. The email must be unique;
// a collision yields lending.ErrDuplicateCode.
func (e Engine) AddPatron(ctx context.Context, name string, email string, role lending.Role) (lending.Patron, error) {
	sqlQuery, buildErr := e.buildInsertReturningIDQuery(e.tables.Patrons, goqu.Record{
		colName:  name,
		colEmail: email,
		colRole:  role.String(),
	})
	if buildErr != nil {
		return lending.Patron{}, buildErr
	}

	patronID, err := e.insertReturningID(ctx, sqlQuery, logActionAddPatron)
	if err != nil {
		return lending.Patron{}, err
	}

	e.logOperation(ctx, logMsgPatronAdded, logAttrPatronID, patronID)

	return lending.Patron{ID: patronID, Name: name, Email: email, Role: role}, nil
}

// AddCopy registers a new physical copy of a title. New copies always start
// Available. The copy number must be unique within the title; a collision
// yields lending.ErrDuplicateCode, a missing title lending.ErrTitleNotFound.
func (e Engine) AddCopy(ctx context.Context, titleID lending.TitleIDInt, copyNumber int) (lending.Copy, error) {
	sqlQuery, buildErr := e.buildInsertReturningIDQuery(e.tables.Copies, goqu.Record{
		colTitleID:    titleID,
		colCopyNumber: copyNumber,
		colStatus:     lending.CopyAvailable.String(),
	})
	if buildErr != nil {
		return lending.Copy{}, buildErr
	}

	copyID, err := e.insertReturningID(ctx, sqlQuery, logActionAddCopy)
	if err != nil {
		if errors.Is(err, lending.ErrReferentialConflict) {
			return lending.Copy{}, lending.ErrTitleNotFound
		}

		return lending.Copy{}, err
	}

	e.logOperation(ctx, logMsgCopyAdded, logAttrCopyID, copyID, logAttrTitleID, titleID)

	return lending.Copy{
		ID:         copyID,
		TitleID:    titleID,
		CopyNumber: copyNumber,
		Status:     lending.CopyAvailable,
	}, nil
}

// RemoveCopy deletes an Available copy with no loan history.
//
// A Borrowed copy yields lending.ErrCopyUnavailable, a copy still referenced
// by loan records lending.ErrReferentialConflict. Deleting loan history first
// via DeleteLoan is the supported path for purging a copy entirely.
func (e Engine) RemoveCopy(ctx context.Context, copyID lending.CopyIDInt) error {
	sqlQuery, buildErr := e.buildDeleteAvailableCopyQuery(copyID)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, err := e.runExec(ctx, e.db, sqlQuery, logActionRemoveCopy)
	if err != nil {
		if isForeignKeyViolation(err) {
			return lending.ErrReferentialConflict
		}

		return err
	}

	if rowsAffected == 0 {
		_, found, statusErr := e.queryCopyStatus(ctx, copyID)
		if statusErr != nil {
			return statusErr
		}

		if !found {
			return lending.ErrCopyNotFound
		}

		return lending.ErrCopyUnavailable
	}

	e.logOperation(ctx, logMsgCopyRemoved, logAttrCopyID, copyID)

	return nil
}

// RemovePatron deletes a patron with no loan history. A patron still
// referenced by loan records yields lending.ErrReferentialConflict.
func (e Engine) RemovePatron(ctx context.Context, patronID lending.PatronIDInt) error {
	sqlQuery, buildErr := e.buildDeleteByIDQuery(e.tables.Patrons, patronID)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, err := e.runExec(ctx, e.db, sqlQuery, logActionRemovePatron)
	if err != nil {
		if isForeignKeyViolation(err) {
			return lending.ErrReferentialConflict
		}

		return err
	}

	if rowsAffected == 0 {
		return lending.ErrPatronNotFound
	}

	e.logOperation(ctx, logMsgPatronRemoved, logAttrPatronID, patronID)

	return nil
}

// RemoveTitle deletes a title with no copies. A title that still has copies
// yields lending.ErrReferentialConflict.
func (e Engine) RemoveTitle(ctx context.Context, titleID lending.TitleIDInt) error {
	sqlQuery, buildErr := e.buildDeleteByIDQuery(e.tables.Titles, titleID)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, err := e.runExec(ctx, e.db, sqlQuery, logActionRemoveTitle)
	if err != nil {
		if isForeignKeyViolation(err) {
			return lending.ErrReferentialConflict
		}

		return err
	}

	if rowsAffected == 0 {
		return lending.ErrTitleNotFound
	}

	return nil
}

// insertReturningID executes an insert and maps constraint violations into
// the typed taxonomy before returning the generated identity.
func (e Engine) insertReturningID(ctx context.Context, sqlQuery string, action string) (int64, error) {
	start := time.Now()

	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		switch {
		case isUniqueViolation(queryErr):
			return 0, lending.ErrDuplicateCode
		case isForeignKeyViolation(queryErr):
			return 0, lending.ErrReferentialConflict
		default:
			e.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
			return 0, asStorageError(queryErr)
		}
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			switch {
			case isUniqueViolation(rowsErr):
				return 0, lending.ErrDuplicateCode
			case isForeignKeyViolation(rowsErr):
				return 0, lending.ErrReferentialConflict
			default:
				return 0, asStorageError(rowsErr)
			}
		}

		return 0, errors.Join(lending.ErrStorageUnavailable, errors.New("insert returned no id"))
	}

	var id int64
	if scanErr := rows.Scan(&id); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return 0, errors.Join(lending.ErrScanningRowFailed, scanErr)
	}

	return id, nil
}

func (e Engine) queryCopyStatus(ctx context.Context, copyID lending.CopyIDInt) (string, bool, error) {
	sqlQuery, buildErr := e.buildSelectCopyStatusQuery(copyID)
	if buildErr != nil {
		return "", false, buildErr
	}

	return e.queryOptionalString(ctx, e.db, sqlQuery, logActionRemoveCopy)
}

func (e Engine) buildInsertReturningIDQuery(table string, record goqu.Record) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(table).
		Rows(record).
		Returning(colID).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (e Engine) buildDeleteAvailableCopyQuery(copyID lending.CopyIDInt) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(e.tables.Copies).
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

func (e Engine) buildDeleteByIDQuery(table string, id int64) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(table).
		Where(goqu.Ex{colID: id}).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}
