package lending

// LoanIDInt is a type alias for int64, representing the storage-generated identity of a Loan.
type LoanIDInt = int64

// CopyIDInt is a type alias for int64, representing the storage-generated identity of a Copy.
type CopyIDInt = int64

// PatronIDInt is a type alias for int64, representing the storage-generated identity of a Patron.
type PatronIDInt = int64

// TitleIDInt is a type alias for int64, representing the storage-generated identity of a Title.
type TitleIDInt = int64

// DefaultLoanLimit is the maximum number of concurrently open loans permitted
// per patron unless an engine is configured with a different limit.
const DefaultLoanLimit = 2
