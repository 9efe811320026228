// Package memoryengine provides an in-memory lending engine with the same
// operation surface and error taxonomy as the PostgreSQL engine.
//
// It is intended for tests and local experiments: no persistence, no
// external dependencies, but the same per-copy mutual exclusion and
// per-patron limit serialization, built on a keyed mutex table instead of
// database row locks.
package memoryengine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/liblend/lending-engine-go/lending"
)

const defaultLockTimeout = 5 * time.Second

const (
	logMsgLoanCreated   = "loan created"
	logMsgLoanClosed    = "loan closed"
	logMsgLoanEdited    = "loan edited"
	logMsgLoanDeleted   = "loan deleted"
	logAttrLoanID       = "loan_id"
	logAttrPatronID     = "patron_id"
	logAttrCopyID       = "copy_id"
)

type copyNumberKey struct {
	titleID    lending.TitleIDInt
	copyNumber int
}

// Engine is the in-memory lending engine. The zero value is not usable;
// construct it with NewEngine.
//
// A short-held RWMutex guards the map structure; the keyed mutex tables
// provide the per-copy and per-patron serialization the lending rules need.
type Engine struct {
	mu           sync.RWMutex
	titles       map[lending.TitleIDInt]lending.Title
	patrons      map[lending.PatronIDInt]lending.Patron
	copies       map[lending.CopyIDInt]lending.Copy
	loans        map[lending.LoanIDInt]lending.Loan
	titleCodes   map[string]lending.TitleIDInt
	patronEmails map[string]lending.PatronIDInt
	copyNumbers  map[copyNumberKey]lending.CopyIDInt
	nextTitleID  lending.TitleIDInt
	nextPatronID lending.PatronIDInt
	nextCopyID   lending.CopyIDInt
	nextLoanID   lending.LoanIDInt

	copyLocks   *keyedMutex
	patronLocks *keyedMutex
	loanLocks   *keyedMutex

	loanLimit   int
	lockTimeout time.Duration
	logger      lending.Logger
}

// NewEngine creates an in-memory lending engine with optional configuration.
func NewEngine(options ...Option) (*Engine, error) {
	engine := &Engine{
		titles:       make(map[lending.TitleIDInt]lending.Title),
		patrons:      make(map[lending.PatronIDInt]lending.Patron),
		copies:       make(map[lending.CopyIDInt]lending.Copy),
		loans:        make(map[lending.LoanIDInt]lending.Loan),
		titleCodes:   make(map[string]lending.TitleIDInt),
		patronEmails: make(map[string]lending.PatronIDInt),
		copyNumbers:  make(map[copyNumberKey]lending.CopyIDInt),
		copyLocks:    newKeyedMutex(),
		patronLocks:  newKeyedMutex(),
		loanLocks:    newKeyedMutex(),
		loanLimit:    lending.DefaultLoanLimit,
		lockTimeout:  defaultLockTimeout,
	}

	for _, option := range options {
		if err := option(engine); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// LoanLimit returns the configured maximum number of open loans per patron.
func (e *Engine) LoanLimit() int {
	return e.loanLimit
}

// CreateLoan validates the lending business rules and atomically creates the
// loan record and flips the target copy to Borrowed. The patron lock
// serializes the limit check, the copy lock serializes availability; when two
// concurrent calls target the same copy exactly one succeeds and the other
// fails with lending.ErrCopyUnavailable.
//
// A non-nil returnDate records a completed historical loan: the copy must be
// Available but its status is left untouched.
func (e *Engine) CreateLoan(
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

	// lock order is patron before copy, everywhere
	if err := e.patronLocks.lock(ctx, patronID, e.lockTimeout); err != nil {
		return lending.Loan{}, err
	}
	defer e.patronLocks.unlock(patronID)

	if err := e.copyLocks.lock(ctx, copyID, e.lockTimeout); err != nil {
		return lending.Loan{}, err
	}
	defer e.copyLocks.unlock(copyID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.patrons[patronID]; !ok {
		return lending.Loan{}, lending.ErrPatronNotFound
	}

	targetCopy, ok := e.copies[copyID]
	if !ok {
		return lending.Loan{}, lending.ErrCopyNotFound
	}

	if targetCopy.Status != lending.CopyAvailable {
		return lending.Loan{}, lending.ErrCopyUnavailable
	}

	if loan.IsOpen() {
		if e.openLoanCountLocked(patronID) >= e.loanLimit {
			return lending.Loan{}, lending.ErrLimitExceeded
		}

		targetCopy.Status = lending.CopyBorrowed
		e.copies[copyID] = targetCopy
	}

	e.nextLoanID++
	loan.ID = e.nextLoanID
	e.loans[loan.ID] = loan

	e.logInfo(logMsgLoanCreated, logAttrLoanID, loan.ID, logAttrPatronID, patronID, logAttrCopyID, copyID)

	return loan, nil
}

// CloseLoan sets the loan's return date and flips the copy back to Available
// as one atomic unit. Closing an already closed loan overwrites the return
// date and leaves the copy untouched.
func (e *Engine) CloseLoan(ctx context.Context, loanID lending.LoanIDInt, returnDate time.Time) (lending.Loan, error) {
	if returnDate.IsZero() {
		return lending.Loan{}, lending.ErrMissingReturnDate
	}

	normalized := lending.ToLoanDate(returnDate)

	return e.withLockedLoan(ctx, loanID, func(loan lending.Loan) (lending.Loan, error) {
		if normalized.Before(loan.BorrowDate) {
			return lending.Loan{}, lending.ErrReturnBeforeBorrow
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		if loan.IsOpen() {
			e.releaseCopyLocked(loan.CopyID)
		}

		loan.ReturnDate = &normalized
		e.loans[loanID] = loan

		e.logInfo(logMsgLoanClosed, logAttrLoanID, loanID, logAttrCopyID, loan.CopyID)

		return loan, nil
	})
}

// EditLoan revises both dates of an existing loan. Copy status follows the
// open/closed transition; clearing the return date of a closed loan is a
// conflict-checked reopen.
func (e *Engine) EditLoan(
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

	return e.withLockedLoan(ctx, loanID, func(loan lending.Loan) (lending.Loan, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		wasOpen := loan.IsOpen()
		willBeOpen := newReturnDate == nil

		switch {
		case !wasOpen && willBeOpen:
			targetCopy, ok := e.copies[loan.CopyID]
			if !ok {
				return lending.Loan{}, lending.ErrCopyNotFound
			}

			if targetCopy.Status != lending.CopyAvailable {
				return lending.Loan{}, lending.ErrCopyUnavailable
			}

			targetCopy.Status = lending.CopyBorrowed
			e.copies[loan.CopyID] = targetCopy

		case wasOpen && !willBeOpen:
			e.releaseCopyLocked(loan.CopyID)
		}

		loan.BorrowDate = newBorrowDate
		loan.ReturnDate = newReturnDate
		e.loans[loanID] = loan

		e.logInfo(logMsgLoanEdited, logAttrLoanID, loanID, logAttrCopyID, loan.CopyID)

		return loan, nil
	})
}

// DeleteLoan removes a loan record. Deleting an open loan reverts the copy
// to Available as part of the same atomic unit.
func (e *Engine) DeleteLoan(ctx context.Context, loanID lending.LoanIDInt) error {
	_, err := e.withLockedLoan(ctx, loanID, func(loan lending.Loan) (lending.Loan, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if loan.IsOpen() {
			e.releaseCopyLocked(loan.CopyID)
		}

		delete(e.loans, loanID)

		e.logInfo(logMsgLoanDeleted, logAttrLoanID, loanID)

		return loan, nil
	})

	return err
}

// withLockedLoan runs mutate under the loan lock and the copy lock of the
// loan's copy. Lock order is loan before copy, never the reverse.
func (e *Engine) withLockedLoan(
	ctx context.Context,
	loanID lending.LoanIDInt,
	mutate func(loan lending.Loan) (lending.Loan, error),
) (lending.Loan, error) {

	if err := e.loanLocks.lock(ctx, loanID, e.lockTimeout); err != nil {
		return lending.Loan{}, err
	}
	defer e.loanLocks.unlock(loanID)

	e.mu.RLock()
	loan, ok := e.loans[loanID]
	e.mu.RUnlock()

	if !ok {
		return lending.Loan{}, lending.ErrLoanNotFound
	}

	if err := e.copyLocks.lock(ctx, loan.CopyID, e.lockTimeout); err != nil {
		return lending.Loan{}, err
	}
	defer e.copyLocks.unlock(loan.CopyID)

	return mutate(loan)
}

func (e *Engine) openLoanCountLocked(patronID lending.PatronIDInt) int {
	count := 0
	for _, loan := range e.loans {
		if loan.PatronID == patronID && loan.IsOpen() {
			count++
		}
	}

	return count
}

func (e *Engine) releaseCopyLocked(copyID lending.CopyIDInt) {
	if targetCopy, ok := e.copies[copyID]; ok {
		targetCopy.Status = lending.CopyAvailable
		e.copies[copyID] = targetCopy
	}
}

func (e *Engine) logInfo(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

// GetLoan returns the loan with the given id or lending.ErrLoanNotFound.
func (e *Engine) GetLoan(_ context.Context, loanID lending.LoanIDInt) (lending.Loan, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	loan, ok := e.loans[loanID]
	if !ok {
		return lending.Loan{}, lending.ErrLoanNotFound
	}

	return loan, nil
}

// ListLoans returns all loans ordered by borrow date, then id.
func (e *Engine) ListLoans(_ context.Context) ([]lending.Loan, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.collectLoansLocked(func(lending.Loan) bool { return true }), nil
}

// ListLoansByPatron returns the patron's loans ordered by borrow date, then id.
func (e *Engine) ListLoansByPatron(_ context.Context, patronID lending.PatronIDInt) ([]lending.Loan, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.collectLoansLocked(func(loan lending.Loan) bool { return loan.PatronID == patronID }), nil
}

// CountOpenLoansForPatron returns the number of the patron's open loans.
func (e *Engine) CountOpenLoansForPatron(_ context.Context, patronID lending.PatronIDInt) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.openLoanCountLocked(patronID), nil
}

func (e *Engine) collectLoansLocked(keep func(lending.Loan) bool) []lending.Loan {
	loans := make([]lending.Loan, 0)
	for _, loan := range e.loans {
		if keep(loan) {
			loans = append(loans, loan)
		}
	}

	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].BorrowDate.Equal(loans[j].BorrowDate) {
			return loans[i].BorrowDate.Before(loans[j].BorrowDate)
		}
		return loans[i].ID < loans[j].ID
	})

	return loans
}

// GetCopy returns the copy with the given id or lending.ErrCopyNotFound.
func (e *Engine) GetCopy(_ context.Context, copyID lending.CopyIDInt) (lending.Copy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	targetCopy, ok := e.copies[copyID]
	if !ok {
		return lending.Copy{}, lending.ErrCopyNotFound
	}

	return targetCopy, nil
}

// ListAvailableCopies returns all copies currently in Available status,
// ordered by title id and copy number.
func (e *Engine) ListAvailableCopies(_ context.Context) ([]lending.Copy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.collectCopiesLocked(func(c lending.Copy) bool { return c.Status == lending.CopyAvailable }), nil
}

// ListCopiesByTitle returns all copies of a title ordered by copy number.
func (e *Engine) ListCopiesByTitle(_ context.Context, titleID lending.TitleIDInt) ([]lending.Copy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.collectCopiesLocked(func(c lending.Copy) bool { return c.TitleID == titleID }), nil
}

func (e *Engine) collectCopiesLocked(keep func(lending.Copy) bool) []lending.Copy {
	copies := make([]lending.Copy, 0)
	for _, c := range e.copies {
		if keep(c) {
			copies = append(copies, c)
		}
	}

	sort.Slice(copies, func(i, j int) bool {
		if copies[i].TitleID != copies[j].TitleID {
			return copies[i].TitleID < copies[j].TitleID
		}
		return copies[i].CopyNumber < copies[j].CopyNumber
	})

	return copies
}

// GetPatron returns the patron with the given id or lending.ErrPatronNotFound.
func (e *Engine) GetPatron(_ context.Context, patronID lending.PatronIDInt) (lending.Patron, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	patron, ok := e.patrons[patronID]
	if !ok {
		return lending.Patron{}, lending.ErrPatronNotFound
	}

	return patron, nil
}

// GetTitle returns the title with the given id or lending.ErrTitleNotFound.
func (e *Engine) GetTitle(_ context.Context, titleID lending.TitleIDInt) (lending.Title, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	title, ok := e.titles[titleID]
	if !ok {
		return lending.Title{}, lending.ErrTitleNotFound
	}

	return title, nil
}

// AddTitle creates a catalog entry. The title code must be unique.
func (e *Engine) AddTitle(_ context.Context, code string, name string, author string) (lending.Title, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, taken := e.titleCodes[code]; taken {
		return lending.Title{}, lending.ErrDuplicateCode
	}

	e.nextTitleID++
	title := lending.Title{ID: e.nextTitleID, Code: code, Name: name, Author: author}
	e.titles[title.ID] = title
	e.titleCodes[code] = title.ID

	return title, nil
}

// AddPatron registers a library member. The email must be unique.
func (e *Engine) AddPatron(_ context.Context, name string, email string, role lending.Role) (lending.Patron, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, taken := e.patronEmails[email]; taken {
		return lending.Patron{}, lending.ErrDuplicateCode
	}

	e.nextPatronID++
	patron := lending.Patron{ID: e.nextPatronID, Name: name, Email: email, Role: role}
	e.patrons[patron.ID] = patron
	e.patronEmails[email] = patron.ID

	return patron, nil
}

// AddCopy registers a new physical copy of a title, starting Available.
// The copy number must be unique within the title.
func (e *Engine) AddCopy(_ context.Context, titleID lending.TitleIDInt, copyNumber int) (lending.Copy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.titles[titleID]; !ok {
		return lending.Copy{}, lending.ErrTitleNotFound
	}

	key := copyNumberKey{titleID: titleID, copyNumber: copyNumber}
	if _, taken := e.copyNumbers[key]; taken {
		return lending.Copy{}, lending.ErrDuplicateCode
	}

	e.nextCopyID++
	newCopy := lending.Copy{
		ID:         e.nextCopyID,
		TitleID:    titleID,
		CopyNumber: copyNumber,
		Status:     lending.CopyAvailable,
	}
	e.copies[newCopy.ID] = newCopy
	e.copyNumbers[key] = newCopy.ID

	return newCopy, nil
}

// RemoveCopy deletes an Available copy with no loan history. A Borrowed copy
// yields lending.ErrCopyUnavailable, a copy still referenced by loan records
// lending.ErrReferentialConflict.
func (e *Engine) RemoveCopy(ctx context.Context, copyID lending.CopyIDInt) error {
	if err := e.copyLocks.lock(ctx, copyID, e.lockTimeout); err != nil {
		return err
	}
	defer e.copyLocks.unlock(copyID)

	e.mu.Lock()
	defer e.mu.Unlock()

	targetCopy, ok := e.copies[copyID]
	if !ok {
		return lending.ErrCopyNotFound
	}

	if targetCopy.Status != lending.CopyAvailable {
		return lending.ErrCopyUnavailable
	}

	for _, loan := range e.loans {
		if loan.CopyID == copyID {
			return lending.ErrReferentialConflict
		}
	}

	delete(e.copies, copyID)
	delete(e.copyNumbers, copyNumberKey{titleID: targetCopy.TitleID, copyNumber: targetCopy.CopyNumber})

	return nil
}

// RemovePatron deletes a patron with no loan history. A patron still
// referenced by loan records yields lending.ErrReferentialConflict.
func (e *Engine) RemovePatron(ctx context.Context, patronID lending.PatronIDInt) error {
	if err := e.patronLocks.lock(ctx, patronID, e.lockTimeout); err != nil {
		return err
	}
	defer e.patronLocks.unlock(patronID)

	e.mu.Lock()
	defer e.mu.Unlock()

	patron, ok := e.patrons[patronID]
	if !ok {
		return lending.ErrPatronNotFound
	}

	for _, loan := range e.loans {
		if loan.PatronID == patronID {
			return lending.ErrReferentialConflict
		}
	}

	delete(e.patrons, patronID)
	delete(e.patronEmails, patron.Email)

	return nil
}

// RemoveTitle deletes a title with no copies.
func (e *Engine) RemoveTitle(_ context.Context, titleID lending.TitleIDInt) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	title, ok := e.titles[titleID]
	if !ok {
		return lending.ErrTitleNotFound
	}

	for _, c := range e.copies {
		if c.TitleID == titleID {
			return lending.ErrReferentialConflict
		}
	}

	delete(e.titles, titleID)
	delete(e.titleCodes, title.Code)

	return nil
}
