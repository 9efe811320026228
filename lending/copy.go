package lending

import "fmt"

// CopyStatus is the closed set of availability states for a Copy.
//
// The only legal transitions are Available -> Borrowed via a successful
// CreateLoan (or a conflict-checked reopen) and Borrowed -> Available via
// CloseLoan or the deletion of an open loan. No other component may flip it.
type CopyStatus int

const (
	CopyAvailable CopyStatus = iota
	CopyBorrowed
)

const (
	copyStatusAvailableString = "Available"
	copyStatusBorrowedString  = "Borrowed"
)

// String provides the canonical storage representation of a CopyStatus.
func (s CopyStatus) String() string {
	switch s {
	case CopyAvailable:
		return copyStatusAvailableString
	case CopyBorrowed:
		return copyStatusBorrowedString
	default:
		return "unknown"
	}
}

// ParseCopyStatus converts a stored status string back into a CopyStatus.
func ParseCopyStatus(value string) (CopyStatus, error) {
	switch value {
	case copyStatusAvailableString:
		return CopyAvailable, nil
	case copyStatusBorrowedString:
		return CopyBorrowed, nil
	default:
		return CopyAvailable, fmt.Errorf("%w: %q", ErrUnknownCopyStatus, value)
	}
}

// Copy represents one physical, individually trackable instance of a Title.
//
// TitleID is immutable once the copy is created and CopyNumber is unique
// within a title. Status is owned exclusively by the lending engine.
type Copy struct {
	ID         CopyIDInt
	TitleID    TitleIDInt
	CopyNumber int
	Status     CopyStatus
}
