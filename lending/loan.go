package lending

import (
	"time"
)

// Loan represents one borrow transaction linking a patron to a copy.
//
// PatronID and CopyID are immutable once created. A nil ReturnDate marks the
// loan as open; setting it closes the loan. Dates are calendar dates,
// normalized to midnight UTC.
//
// While its properties are exported, a Loan should only be constructed with
// the BuildLoan factory, which validates the date invariants.
type Loan struct {
	ID         LoanIDInt
	PatronID   PatronIDInt
	CopyID     CopyIDInt
	BorrowDate time.Time
	ReturnDate *time.Time
}

// BuildLoan is a factory method for Loan.
//
// It normalizes both dates to calendar dates and validates that a borrow date
// is present and that the return date, when given, does not precede it.
// The ID is zero until the engine has persisted the loan.
func BuildLoan(patronID PatronIDInt, copyID CopyIDInt, borrowDate time.Time, returnDate *time.Time) (Loan, error) {
	if borrowDate.IsZero() {
		return Loan{}, ErrMissingBorrowDate
	}

	loan := Loan{
		PatronID:   patronID,
		CopyID:     copyID,
		BorrowDate: ToLoanDate(borrowDate),
	}

	if returnDate != nil {
		normalized := ToLoanDate(*returnDate)
		if normalized.Before(loan.BorrowDate) {
			return Loan{}, ErrReturnBeforeBorrow
		}

		loan.ReturnDate = &normalized
	}

	return loan, nil
}

// IsOpen reports whether the loan has no return date recorded.
func (l Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// ToLoanDate truncates a timestamp to its calendar date in UTC.
func ToLoanDate(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date, the unit all loan dates are expressed in.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateRef is a convenience for the optional return date parameters.
func DateRef(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}
