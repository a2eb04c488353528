// Package operations wraps service operations with tracing, metrics, logging,
// panic recovery and transactions.
package operations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/baysaa41/mmo-ranking/app/observability"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/baysaa41/mmo-ranking/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the instrumentation a service hands to WithTelemetry.
type Telemetry struct {
	Service string
	Logger  *slog.Logger
	Metrics observability.Metrics
	Tracer  trace.Tracer
}

// Func is the generic signature for service operation functions.
type Func[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// TxFunc is an operation body that runs against a transaction handle.
type TxFunc[S any, F any] func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error)

// WithTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func WithTelemetry[S any, F any](
	t Telemetry,
	ctx context.Context,
	operationName string,
	identifier string,
	op Func[S, F],
) (result results.OperationResult[S, F], err error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var span trace.Span
	if t.Tracer != nil {
		ctx, span = t.Tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
			attribute.String("service", t.Service),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if t.Metrics != nil {
		t.Metrics.RecordOperationAttempt(ctx, operationName, t.Service)
	}

	startTime := time.Now()
	defer func() {
		if t.Metrics != nil {
			t.Metrics.RecordOperationDuration(ctx, operationName, t.Service, time.Since(startTime))
		}
	}()

	logger.InfoContext(ctx, "Operation triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if t.Metrics != nil {
				t.Metrics.RecordOperationFailure(ctx, operationName, t.Service)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if t.Metrics != nil {
			t.Metrics.RecordOperationFailure(ctx, operationName, t.Service)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
		if t.Metrics != nil {
			t.Metrics.RecordOperationFailure(ctx, operationName, t.Service)
		}
		return result, nil
	}

	logger.InfoContext(ctx, "Operation completed successfully",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
	)
	if t.Metrics != nil {
		t.Metrics.RecordOperationSuccess(ctx, operationName, t.Service)
	}

	return result, nil
}

// RunInTx runs fn inside a transaction on db. A nil db runs fn without one,
// which is what unit tests with fake repositories rely on.
func RunInTx[S any, F any](ctx context.Context, db *bun.DB, fn TxFunc[S, F]) (results.OperationResult[S, F], error) {
	if db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

// Unwrap turns an operation outcome into the (value, error) pair callers
// expect, surfacing a domain failure as its error.
func Unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, fmt.Errorf("operation returned no result")
	}
	return *result.Success, nil
}
