package postgresengine

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/liblend/lending-engine-go/lending"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (e Engine) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
// When the context carries a session, the session id is attached for audit purposes.
func (e Engine) logOperation(ctx context.Context, action string, args ...any) {
	if session, ok := lending.SessionFrom(ctx); ok {
		args = append(args, logAttrSessionID, session.ID.String())
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (e Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if e.logger != nil {
		e.logger.Error(message, allArgs...)
	}
}

// logWarn logs non-critical issues at the warn level if a logger is configured.
func (e Engine) logWarn(ctx context.Context, message string, err error) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
		return
	}

	if e.logger != nil {
		e.logger.Warn(message, logAttrError, err.Error())
	}
}

// recordOperationDuration records the duration of one engine operation if a collector is configured.
func (e Engine) recordOperationDuration(operation string, status string, duration time.Duration) {
	if e.metricsCollector != nil {
		e.metricsCollector.RecordDuration(metricOperationDuration, duration, map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		})
	}
}

// incrementCounter increments an operation counter if a collector is configured.
func (e Engine) incrementCounter(metric string, operation string) {
	if e.metricsCollector != nil {
		e.metricsCollector.IncrementCounter(metric, map[string]string{
			spanAttrOperation: operation,
		})
	}
}

// startSpan opens a tracing span for one engine operation if a collector is configured.
func (e Engine) startSpan(ctx context.Context, operation string) (context.Context, lending.SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
		spanAttrOperation: operation,
		spanAttrTable:     e.tables.Loans,
	})
}

// finishSpan closes a tracing span with the outcome status.
func (e Engine) finishSpan(span lending.SpanContext, err error) {
	if e.tracingCollector == nil || span == nil {
		return
	}

	status := statusOK
	if err != nil {
		status = statusError
	}

	e.tracingCollector.FinishSpan(span, status, nil)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// asStorageError wraps a driver error into the typed taxonomy. Lock waits that
// exceeded their deadline become the retryable ErrBusy; everything else is an
// infrastructure failure and is never conflated with business-rule rejections.
func asStorageError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(lending.ErrBusy, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "55P03") || strings.Contains(msg, "lock timeout") || strings.Contains(msg, "could not obtain lock") {
		return errors.Join(lending.ErrBusy, err)
	}

	return errors.Join(lending.ErrStorageUnavailable, err)
}

// isUniqueViolation reports whether a driver error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key value")
}

// isForeignKeyViolation reports whether a driver error is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "23503") || strings.Contains(msg, "foreign key constraint")
}
