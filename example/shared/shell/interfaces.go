package shell

import (
	"context"
	"time"

	"github.com/liblend/lending-engine-go/lending"
)

// LendingEngine is the full operation surface frontends program against.
// Both the PostgreSQL engine and the in-memory engine satisfy it.
type LendingEngine interface {
	CreateLoan(ctx context.Context, patronID lending.PatronIDInt, copyID lending.CopyIDInt, borrowDate time.Time, returnDate *time.Time) (lending.Loan, error)
	CloseLoan(ctx context.Context, loanID lending.LoanIDInt, returnDate time.Time) (lending.Loan, error)
	EditLoan(ctx context.Context, loanID lending.LoanIDInt, borrowDate time.Time, returnDate *time.Time) (lending.Loan, error)
	DeleteLoan(ctx context.Context, loanID lending.LoanIDInt) error

	GetLoan(ctx context.Context, loanID lending.LoanIDInt) (lending.Loan, error)
	ListLoans(ctx context.Context) ([]lending.Loan, error)
	ListLoansByPatron(ctx context.Context, patronID lending.PatronIDInt) ([]lending.Loan, error)
	CountOpenLoansForPatron(ctx context.Context, patronID lending.PatronIDInt) (int, error)

	GetCopy(ctx context.Context, copyID lending.CopyIDInt) (lending.Copy, error)
	ListAvailableCopies(ctx context.Context) ([]lending.Copy, error)
	ListCopiesByTitle(ctx context.Context, titleID lending.TitleIDInt) ([]lending.Copy, error)
	GetPatron(ctx context.Context, patronID lending.PatronIDInt) (lending.Patron, error)
	GetTitle(ctx context.Context, titleID lending.TitleIDInt) (lending.Title, error)

	AddTitle(ctx context.Context, code string, name string, author string) (lending.Title, error)
	AddPatron(ctx context.Context, name string, email string, role lending.Role) (lending.Patron, error)
	AddCopy(ctx context.Context, titleID lending.TitleIDInt, copyNumber int) (lending.Copy, error)
	RemoveCopy(ctx context.Context, copyID lending.CopyIDInt) error
	RemovePatron(ctx context.Context, patronID lending.PatronIDInt) error
	RemoveTitle(ctx context.Context, titleID lending.TitleIDInt) error

	LoanLimit() int
}
