// Package shell contains the application-side glue around the lending
// engine: the engine-facing interface frontends program against and the
// retry policy for busy-lock failures.
//
// The engine itself never retries; retrying is a caller decision and lives
// here, outside the storage layer.
package shell
