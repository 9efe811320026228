package postgresengine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liblend/lending-engine-go/lending"
	"github.com/liblend/lending-engine-go/lending/postgresengine"
	. "github.com/liblend/lending-engine-go/testutil/helper"
	"github.com/liblend/lending-engine-go/testutil/helper/postgreswrapper"
)

func Test_CreateLoan_When_CopyIsAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	loan, err := engine.CreateLoan(ctx, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15), nil)

	// assert
	assert.NoError(t, err)
	assert.NotZero(t, loan.ID)
	assert.True(t, loan.IsOpen())
	assert.Equal(t, lending.CopyBorrowed.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID))
}

func Test_CreateLoan_When_CopyIsAlreadyBorrowed(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	first := GivenPatron(t, ctx, engine)
	second := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, first.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	_, err := engine.CreateLoan(ctx, second.ID, bookCopy.ID, lending.Date(2024, time.March, 16), nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrCopyUnavailable)
	assert.Equal(t, 1, postgreswrapper.OpenLoanCountInDB(t, wrapper, bookCopy.ID))
}

func Test_CreateLoan_When_PatronDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyAvailable.String(), postgreswrapper.CopyStatusInDB(t, wrapper, third.ID),
		"a rejected loan must not flip the copy")
}

func Test_CreateLoan_When_ClosingALoan_FreesASlotUnderTheLimit(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.NoError(t, err)
}

func Test_CreateLoan_With_HistoricalReturnDate_LeavesCopyAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)

	// act
	loan, err := engine.CreateLoan(ctx, patron.ID, bookCopy.ID,
		lending.Date(2024, time.January, 5), lending.DateRef(2024, time.January, 12))

	// assert
	assert.NoError(t, err)
	assert.False(t, loan.IsOpen())
	assert.Equal(t, lending.CopyAvailable.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID),
		"only open loans mark a copy as borrowed")
}

func Test_CreateLoan_With_ConfiguredLoanLimit(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t, postgresengine.WithLoanLimit(1))
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, 1, postgreswrapper.OpenLoanCountInDB(t, wrapper, bookCopy.ID))
	assert.Equal(t, lending.CopyBorrowed.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID))
}

func Test_CloseLoan_ReleasesTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyAvailable.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID))
}

func Test_CloseLoan_When_LoanIsAlreadyClosed_OverwritesTheReturnDate(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyAvailable.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID))
}

func Test_CloseLoan_When_ReturnDate_Precedes_BorrowDate(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenOpenLoan(t, ctx, engine, patron.ID, bookCopy.ID, lending.Date(2024, time.March, 15))

	// act
	_, err := engine.CloseLoan(ctx, loan.ID, lending.Date(2024, time.March, 10))

	// assert
	assert.ErrorIs(t, err, lending.ErrReturnBeforeBorrow)
	assert.Equal(t, lending.CopyBorrowed.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID),
		"a rejected close must not release the copy")
}

func Test_CloseLoan_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// act
	_, err := engine.CloseLoan(ctx, 9999, lending.Date(2024, time.March, 20))

	// assert
	assert.ErrorIs(t, err, lending.ErrLoanNotFound)
}

func Test_EditLoan_ChangesBothDates(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyAvailable.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID),
		"setting a return date behaves like closing")
}

func Test_EditLoan_Reopen_When_CopyIsAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyBorrowed.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID),
		"reopening claims the copy again")
}

func Test_EditLoan_Reopen_When_CopyIsMeanwhileBorrowed(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, 1, postgreswrapper.OpenLoanCountInDB(t, wrapper, bookCopy.ID),
		"the failed reopen must not create a second open loan")
}

func Test_EditLoan_When_ReturnDate_Precedes_BorrowDate(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyAvailable.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID))
}

func Test_DeleteLoan_When_LoanIsClosed_DoesNotTouchTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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
	assert.Equal(t, lending.CopyBorrowed.String(), postgreswrapper.CopyStatusInDB(t, wrapper, bookCopy.ID),
		"the other patron's open loan still holds the copy")
}

func Test_DeleteLoan_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// act
	err := engine.DeleteLoan(ctx, 9999)

	// assert
	assert.ErrorIs(t, err, lending.ErrLoanNotFound)
}

func Test_GetLoan_ReturnsNormalizedDates(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	patron := GivenPatron(t, ctx, engine)
	bookCopy := GivenCopy(t, ctx, engine)
	loan := GivenClosedLoan(t, ctx, engine, patron.ID, bookCopy.ID,
		lending.Date(2024, time.March, 1), lending.Date(2024, time.March, 5))

	// act
	reloaded, err := engine.GetLoan(ctx, loan.ID)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, loan.ID, reloaded.ID)
	assert.Equal(t, lending.Date(2024, time.March, 1), reloaded.BorrowDate)
	assert.Equal(t, lending.Date(2024, time.March, 5), *reloaded.ReturnDate)
	assert.Equal(t, time.UTC, reloaded.BorrowDate.Location())
}

func Test_ListLoansByPatron_OrdersByBorrowDateThenID(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	patron := GivenPatron(t, ctx, engine)
	other := GivenPatron(t, ctx, engine)
	first := GivenCopy(t, ctx, engine)
	second := GivenCopy(t, ctx, engine)
	third := GivenCopy(t, ctx, engine)
	late := GivenOpenLoan(t, ctx, engine, patron.ID, first.ID, lending.Date(2024, time.March, 20))
	early := GivenOpenLoan(t, ctx, engine, patron.ID, second.ID, lending.Date(2024, time.March, 10))
	GivenOpenLoan(t, ctx, engine, other.ID, third.ID, lending.Date(2024, time.March, 1))

	// act
	loans, err := engine.ListLoansByPatron(ctx, patron.ID)

	// assert
	assert.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, early.ID, loans[0].ID)
	assert.Equal(t, late.ID, loans[1].ID)
}

func Test_CountOpenLoansForPatron_IgnoresClosedLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	patron := GivenPatron(t, ctx, engine)
	first := GivenCopy(t, ctx, engine)
	second := GivenCopy(t, ctx, engine)
	GivenOpenLoan(t, ctx, engine, patron.ID, first.ID, lending.Date(2024, time.March, 10))
	GivenClosedLoan(t, ctx, engine, patron.ID, second.ID,
		lending.Date(2024, time.February, 1), lending.Date(2024, time.February, 10))

	// act
	count, err := engine.CountOpenLoansForPatron(ctx, patron.ID)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_ListAvailableCopies_ExcludesBorrowedCopies(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

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

func Test_ListCopiesByTitle_OrdersByCopyNumber(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	postgreswrapper.CleanUp(t, wrapper)
	engine := wrapper.GetEngine()

	// arrange
	title := GivenTitle(t, ctx, engine)
	_, err := engine.AddCopy(ctx, title.ID, 2)
	require.NoError(t, err)
	_, err = engine.AddCopy(ctx, title.ID, 1)
	require.NoError(t, err)

	// act
	copies, err := engine.ListCopiesByTitle(ctx, title.ID)

	// assert
	assert.NoError(t, err)
	require.Len(t, copies, 2)
	assert.Equal(t, 1, copies[0].CopyNumber)
	assert.Equal(t, 2, copies[1].CopyNumber)
}
