// Package helper provides shared test fixtures and observability test
// doubles for lending engine tests.
package helper
