package helper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/liblend/lending-engine-go/lending"
)

// catalogWriter is the subset of engine operations the fixtures need.
type catalogWriter interface {
	AddTitle(ctx context.Context, code string, name string, author string) (lending.Title, error)
	AddPatron(ctx context.Context, name string, email string, role lending.Role) (lending.Patron, error)
	AddCopy(ctx context.Context, titleID lending.TitleIDInt, copyNumber int) (lending.Copy, error)
	CreateLoan(ctx context.Context, patronID lending.PatronIDInt, copyID lending.CopyIDInt, borrowDate time.Time, returnDate *time.Time) (lending.Loan, error)
}

// GivenTitle creates a title with a unique catalog code.
func GivenTitle(t testing.TB, ctx context.Context, engine catalogWriter) lending.Title {
	t.Helper()

	code := "CODE-" + uuid.NewString()[:8]

	title, err := engine.AddTitle(ctx, code, "The Go Programming Language", "Donovan & Kernighan")
	require.NoError(t, err, "error in arranging test data")

	return title
}

// GivenPatron creates a regular patron with a unique email.
func GivenPatron(t testing.TB, ctx context.Context, engine catalogWriter) lending.Patron {
	t.Helper()

	email := uuid.NewString()[:8] + "@example.com"

	patron, err := engine.AddPatron(ctx, "Some Reader", email, lending.RoleRegular)
	require.NoError(t, err, "error in arranging test data")

	return patron
}

// GivenStaffPatron creates a staff patron with a unique email.
func GivenStaffPatron(t testing.TB, ctx context.Context, engine catalogWriter) lending.Patron {
	t.Helper()

	email := uuid.NewString()[:8] + "@staff.example.com"

	patron, err := engine.AddPatron(ctx, "Some Librarian", email, lending.RoleStaff)
	require.NoError(t, err, "error in arranging test data")

	return patron
}

// GivenCopy creates a fresh copy of a new title, starting Available.
func GivenCopy(t testing.TB, ctx context.Context, engine catalogWriter) lending.Copy {
	t.Helper()

	title := GivenTitle(t, ctx, engine)

	newCopy, err := engine.AddCopy(ctx, title.ID, 1)
	require.NoError(t, err, "error in arranging test data")

	return newCopy
}

// GivenOpenLoan creates an open loan for the given patron and copy.
func GivenOpenLoan(
	t testing.TB,
	ctx context.Context,
	engine catalogWriter,
	patronID lending.PatronIDInt,
	copyID lending.CopyIDInt,
	borrowDate time.Time,
) lending.Loan {
	t.Helper()

	loan, err := engine.CreateLoan(ctx, patronID, copyID, borrowDate, nil)
	require.NoError(t, err, "error in arranging test data")

	return loan
}

// GivenClosedLoan creates an already closed historical loan; the copy stays Available.
func GivenClosedLoan(
	t testing.TB,
	ctx context.Context,
	engine catalogWriter,
	patronID lending.PatronIDInt,
	copyID lending.CopyIDInt,
	borrowDate time.Time,
	returnDate time.Time,
) lending.Loan {
	t.Helper()

	loan, err := engine.CreateLoan(ctx, patronID, copyID, borrowDate, &returnDate)
	require.NoError(t, err, "error in arranging test data")

	return loan
}
