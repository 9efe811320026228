// Package lending provides the core abstractions and types for a library
// lending transaction engine.
//
// This package defines the record types, status enumerations, error taxonomy
// and session handling shared by the different engine implementations. The
// engines themselves live in sub-packages:
//   - lending/postgresengine: PostgreSQL-backed engine with per-copy row locking
//   - lending/memoryengine: in-process engine with a keyed per-copy mutex table
//
// Key types:
//   - Loan: one borrow transaction linking a patron to a copy over a date range
//   - Copy: one physical instance of a title, Available or Borrowed
//   - Session: the explicit caller identity passed via context
//
// The central invariant both engines guarantee under concurrent access:
// a copy is Borrowed if and only if exactly one open loan (no return date)
// references it, and a patron never holds more than the configured number of
// open loans at once.
//
// Common usage pattern:
//
//	loan, err := engine.CreateLoan(ctx, patronID, copyID, lending.Date(2024, 1, 10), nil)
//	if errors.Is(err, lending.ErrCopyUnavailable) {
//		// somebody else was faster
//	}
//
//	_, err = engine.CloseLoan(ctx, loan.ID, lending.Date(2024, 1, 20))
package lending
