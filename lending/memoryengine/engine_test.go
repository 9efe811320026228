package memoryengine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liblend/lending-engine-go/lending"
	"github.com/liblend/lending-engine-go/lending/memoryengine"
	. "github.com/liblend/lending-engine-go/testutil/helper"
)

func newEngine(t *testing.T, options ...memoryengine.Option) *memoryengine.Engine {
	t.Helper()

	engine, err := memoryengine.NewEngine(options...)
	require.NoError(t, err, "error creating engine in test setup")

	return engine
}

func Test_CreateLoan_When_CopyIsAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	loan, err := engine.CreateLoan(ctx, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15), nil)

	// assert
	assert.NoError(t, err)
	assert.NotZero(t, loan.ID)
	assert.True(t, loan.IsOpen())

	reloaded, err := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, err)
	assert.Equal(t, lending.CopyBorrowed, reloaded.Status)
}

func Test_CreateLoan_When_CopyIsAlreadyBorrowed(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	first := GivenPatron(t, ctx, engine)
	second := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, first.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	_, err := engine.CreateLoan(ctx, second.ID, bookCopy.ID, lending.Date(2024, time.March, 16), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrCopyUnavailable)
}

func Test_CreateLoan_When_PatronDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	_, err := engine.CreateLoan(ctx, 9999, bookCopy.ID, lending.Date(2024, time.March, 15), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrPatronNotFound)
}

func Test_CreateLoan_When_CopyDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)

	// act
	_, err := engine.CreateLoan(ctx, patron.ID, 9999, lending.Date(2024, time.March, 15), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrCopyNotFound)
}

func Test_CreateLoan_When_PatronIsAtTheLoanLimit(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	first := GivenCopy(t, ctx, engine)
	second := GivenCopy(t, ctx, engine)
	third := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, patron.ID, first.ID, lending.Date(2024, time.March, 10))
	GivenOpenLoan(t, ctx, engine, patron.ID, second.ID, lending.Date(2024, time.March, 11))

	// act
	_, err := engine.CreateLoan(ctx, patron.ID, third.ID, lending.Date(2024, time.March, 12), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrLimitExceeded)

	reloaded, getErr := engine.GetCopy(ctx, third.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status, "a rejected loan must not flip the copy")
}

func Test_CreateLoan_When_ClosedLoans_DoNotCountTowardTheLimit(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	first := GivenCopy(t, ctx, engine)
	second := GivenCopy(t, ctx, engine)
	third := GivenCopy(t, ctx, engine)
	openLoan := GivenOpenLoan(t, ctx, engine, patron.ID, first.ID, lending.Date(2024, time.March, 10))
	GivenOpenLoan(t, ctx, engine, patron.ID, second.ID, lending.Date(2024, time.March, 11))

	_, err := engine.CloseLoan(ctx, openLoan.ID, lending.Date(2024, time.March, 12))
	require.NoError(t, err)

	// act
	_, err = engine.CreateLoan(ctx, patron.ID, third.ID, lending.Date(2024, time.March, 13), nil)

	// assert
	assert.NoError(t, err, "closing a loan frees a slot under the limit")
}

func Test_CreateLoan_With_HistoricalReturnDate_LeavesCopyAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	loan, err := engine.CreateLoan(ctx, patron.ID, bookCopy.ID,
		lending.Date(2024, time.January, 5), lending.DateRef(2024, time.January, 12))

	// assert
	assert.NoError(t, err)
	assert.False(t, loan.IsOpen())

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status, "only open loans mark a copy as borrowed")
}

func Test_CreateLoan_Enforces_TheConfiguredLoanLimit(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t, memoryengine.WithLoanLimit(1))

	// arrange
	patron := GivenPatron(t, ctx, engine)
	first := GivenCopy(t, ctx, engine)
	second := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, patron.ID, first.ID, lending.Date(2024, time.March, 10))

	// act
	_, err := engine.CreateLoan(ctx, patron.ID, second.ID, lending.Date(2024, time.March, 11), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrLimitExceeded)
	assert.Equal(t, 1, engine.LoanLimit())
}

func Test_CreateLoan_When_TwoCallers_RaceForTheSameCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	first := GivenPatron(t, ctx, engine)
	second := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	var wg sync.WaitGroup
	results := make([]error, 2)

	for i, patronID := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(slot int, id int64) {
			defer wg.Done()
			_, results[slot] = engine.CreateLoan(ctx, id, bookCopy.ID, lending.Date(2024, time.March, 15), nil)
		}(i, patronID)
	}
	wg.Wait()

	// assert
	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, lending.ErrCopyUnavailable):
			conflicts++
		}
	}

	assert.Equal(t, 1, successes, "exactly one racing caller must win the copy")
	assert.Equal(t, 1, conflicts, "the losing caller must observe the conflict")

	count, err := engine.CountOpenLoansForPatron(ctx, first.ID)
	require.NoError(t, err)
	count2, err := engine.CountOpenLoansForPatron(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count+count2, "only one open loan may reference the copy")
}

func Test_LendingFlow_Borrow_Limit_Return_BorrowAgain(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	copy1 := GivenCopy(t, ctx, engine)
	copy2 := GivenCopy(t, ctx, engine)
	copy3 := GivenCopy(t, ctx, engine)

	// act + assert, step by step
	firstLoan, err := engine.CreateLoan(ctx, patron.ID, copy1.ID, lending.Date(2024, time.January, 10), nil)
	require.NoError(t, err)

	reloaded, err := engine.GetCopy(ctx, copy1.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.CopyBorrowed, reloaded.Status)

	_, err = engine.CreateLoan(ctx, patron.ID, copy2.ID, lending.Date(2024, time.January, 11), nil)
	require.NoError(t, err)

	_, err = engine.CreateLoan(ctx, patron.ID, copy3.ID, lending.Date(2024, time.January, 12), nil)
	assert.ErrorIs(t, err, lending.ErrLimitExceeded)

	reloaded, err = engine.GetCopy(ctx, copy3.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status)

	closed, err := engine.CloseLoan(ctx, firstLoan.ID, lending.Date(2024, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, lending.Date(2024, time.January, 20), *closed.ReturnDate)

	reloaded, err = engine.GetCopy(ctx, copy1.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status)

	openCount, err := engine.CountOpenLoansForPatron(ctx, patron.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, openCount)

	_, err = engine.CreateLoan(ctx, patron.ID, copy3.ID, lending.Date(2024, time.January, 21), nil)
	assert.NoError(t, err, "a freed slot allows borrowing again")

	firstListing, err := engine.ListLoansByPatron(ctx, patron.ID)
	require.NoError(t, err)
	secondListing, err := engine.ListLoansByPatron(ctx, patron.ID)
	require.NoError(t, err)
	assert.Equal(t, firstListing, secondListing, "reads without intervening writes are stable")
}

func Test_CloseLoan_ReleasesTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	closed, err := engine.CloseLoan(ctx, loan.ID, lending.Date(2024, time.March, 20))

	// assert
	assert.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, lending.Date(2024, time.March, 20), *closed.ReturnDate)

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status)
}

func Test_CloseLoan_When_LoanIsAlreadyClosed_OverwritesTheReturnDate(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	_, err := engine.CloseLoan(ctx, loan.ID, lending.Date(2024, time.March, 20))
	require.NoError(t, err)

	// act
	closed, err := engine.CloseLoan(ctx, loan.ID, lending.Date(2024, time.March, 22))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, lending.Date(2024, time.March, 22), *closed.ReturnDate)

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status)
}

func Test_CloseLoan_When_ReturnDate_Precedes_BorrowDate(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	_, err := engine.CloseLoan(ctx, loan.ID, lending.Date(2024, time.March, 10))

	// assert
	assert.ErrorIs(t, err, lending.ErrReturnBeforeBorrow)

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyBorrowed, reloaded.Status, "a rejected close must not release the copy")
}

func Test_CloseLoan_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// act
	_, err := engine.CloseLoan(ctx, 9999, lending.Date(2024, time.March, 20))

	// assert
	assert.ErrorIs(t, err, lending.ErrLoanNotFound)
}

func Test_EditLoan_ChangesBothDates(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	edited, err := engine.EditLoan(ctx, loan.ID, lending.Date(2024, time.March, 14), lending.DateRef(2024, time.March, 21))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, lending.Date(2024, time.March, 14), edited.BorrowDate)
	assert.Equal(t, lending.Date(2024, time.March, 21), *edited.ReturnDate)

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status, "setting a return date behaves like closing")
}

func Test_EditLoan_Reopen_When_CopyIsAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenClosedLoan(t, ctx, engine, patron.ID, bookCopy.ID,
		lending.Date(2024, time.March, 15), lending.Date(2024, time.March, 20))

	// act
	reopened, err := engine.EditLoan(ctx, loan.ID, lending.Date(2024, time.March, 15), nil)

	// assert
	assert.NoError(t, err)
	assert.True(t, reopened.IsOpen())

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyBorrowed, reloaded.Status, "reopening claims the copy again")
}

func Test_EditLoan_Reopen_When_CopyIsMeanwhileBorrowed(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	first := GivenPatron(t, ctx, engine)
	second := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	closedLoan := GivenClosedLoan(t, ctx, engine, first.ID, bookCopy.ID,
		lending.Date(2024, time.March, 1), lending.Date(2024, time.March, 5))
	GivenOpenLoan(t, ctx, engine, second.ID, bookCopy.ID, lending.Date(2024, time.March, 10))

	// act
	_, err := engine.EditLoan(ctx, closedLoan.ID, lending.Date(2024, time.March, 1), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrCopyUnavailable)
}

func Test_EditLoan_When_ReturnDate_Precedes_BorrowDate(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	_, err := engine.EditLoan(ctx, loan.ID, lending.Date(2024, time.March, 15), lending.DateRef(2024, time.March, 10))

	// assert
	assert.ErrorIs(t, err, lending.ErrReturnBeforeBorrow)
}

func Test_DeleteLoan_When_LoanIsOpen_RevertsTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	err := engine.DeleteLoan(ctx, loan.ID)

	// assert
	assert.NoError(t, err)

	_, err = engine.GetLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, lending.ErrLoanNotFound)

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyAvailable, reloaded.Status)
}

func Test_DeleteLoan_When_LoanIsClosed_DoesNotTouchTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	first := GivenPatron(t, ctx, engine)
	second := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	closedLoan := GivenClosedLoan(t, ctx, engine, first.ID, bookCopy.ID,
		lending.Date(2024, time.March, 1), lending.Date(2024, time.March, 5))
	GivenOpenLoan(t, ctx, engine, second.ID, bookCopy.ID, lending.Date(2024, time.March, 10))

	// act
	err := engine.DeleteLoan(ctx, closedLoan.ID)

	// assert
	assert.NoError(t, err)

	reloaded, getErr := engine.GetCopy(ctx, bookCopy.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, lending.CopyBorrowed, reloaded.Status, "the other patron's open loan still holds the copy")
}

func Test_DeleteLoan_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// act
	err := engine.DeleteLoan(ctx, 9999)

	// assert
	assert.ErrorIs(t, err, lending.ErrLoanNotFound)
}

func Test_ListLoans_OrdersByBorrowDateThenID(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	first := GivenCopy(t, ctx, engine)
	second := GivenCopy(t, ctx, engine)
	late := GivenOpenLoan(t, ctx, engine, patron.ID, first.ID, lending.Date(2024, time.March, 20))
	early := GivenOpenLoan(t, ctx, engine, patron.ID, second.ID, lending.Date(2024, time.March, 10))

	// act
	loans, err := engine.ListLoans(ctx)

	// assert
	assert.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, early.ID, loans[0].ID)
	assert.Equal(t, late.ID, loans[1].ID)
}

func Test_ListLoansByPatron_When_PatronHasNoLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)

	// act
	loans, err := engine.ListLoansByPatron(ctx, patron.ID)

	// assert
	assert.NoError(t, err)
	assert.Empty(t, loans)
}

func Test_ListAvailableCopies_ExcludesBorrowedCopies(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	borrowed := GivenCopy(t, ctx, engine)
	available := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, patron.ID, borrowed.ID, lending.Date(2024, time.March, 15))

	// act
	copies, err := engine.ListAvailableCopies(ctx)

	// assert
	assert.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, available.ID, copies[0].ID)
}

func Test_AddTitle_When_CodeIsAlreadyTaken(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	title := GivenTitle(t, ctx, engine)

	// act
	_, err := engine.AddTitle(ctx, title.Code, "Another Name", "Another Author")

	// assert
	assert.ErrorIs(t, err, lending.ErrDuplicateCode)
}

func Test_AddPatron_When_EmailIsAlreadyTaken(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)

	// act
	_, err := engine.AddPatron(ctx, "Someone Else", patron.Email, lending.RoleRegular)

	// assert
	assert.ErrorIs(t, err, lending.ErrDuplicateCode)
}

func Test_AddCopy_When_TitleDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// act
	_, err := engine.AddCopy(ctx, 9999, 1)

	// assert
	assert.ErrorIs(t, err, lending.ErrTitleNotFound)
}

func Test_AddCopy_When_CopyNumberIsTakenWithinTheTitle(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	title := GivenTitle(t, ctx, engine)
	_, err := engine.AddCopy(ctx, title.ID, 1)
	require.NoError(t, err)

	// act
	_, err = engine.AddCopy(ctx, title.ID, 1)

	// assert
	assert.ErrorIs(t, err, lending.ErrDuplicateCode)
}

func Test_RemoveCopy_When_CopyIsBorrowed(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	err := engine.RemoveCopy(ctx, bookCopy.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrCopyUnavailable)
}

func Test_RemoveCopy_When_LoanHistoryReferencesTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	GivenClosedLoan(t, ctx, engine, patron.ID, bookCopy.ID,
		lending.Date(2024, time.March, 1), lending.Date(2024, time.March, 5))

	// act
	err := engine.RemoveCopy(ctx, bookCopy.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrReferentialConflict)
}

func Test_RemoveCopy_When_CopyHasNoHistory(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	err := engine.RemoveCopy(ctx, bookCopy.ID)

	// assert
	assert.NoError(t, err)

	_, err = engine.GetCopy(ctx, bookCopy.ID)
	assert.ErrorIs(t, err, lending.ErrCopyNotFound)
}

func Test_RemovePatron_When_LoanHistoryReferencesThePatron(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	GivenClosedLoan(t, ctx, engine, patron.ID, bookCopy.ID,
		lending.Date(2024, time.March, 1), lending.Date(2024, time.March, 5))

	// act
	err := engine.RemovePatron(ctx, patron.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrReferentialConflict)
}

func Test_RemovePatron_When_PatronHasNoHistory(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	patron := GivenPatron(t, ctx, engine)

	// act
	err := engine.RemovePatron(ctx, patron.ID)

	// assert
	assert.NoError(t, err)

	_, err = engine.GetPatron(ctx, patron.ID)
	assert.ErrorIs(t, err, lending.ErrPatronNotFound)
}

func Test_RemoveTitle_When_CopiesStillExist(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := newEngine(t)

	// arrange
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	err := engine.RemoveTitle(ctx, bookCopy.TitleID)

	// assert
	assert.ErrorIs(t, err, lending.ErrReferentialConflict)
}

func Test_NewEngine_With_InvalidOptions(t *testing.T) {
	// act + assert
	_, err := memoryengine.NewEngine(memoryengine.WithLoanLimit(0))
	assert.ErrorIs(t, err, lending.ErrInvalidLoanLimit)

	_, err = memoryengine.NewEngine(memoryengine.WithLockTimeout(0))
	assert.ErrorIs(t, err, lending.ErrInvalidLockTimeout)
}
