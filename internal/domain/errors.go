package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMetric marks a metric identifier the registry does not know.
// It fails only the requesting metric's fetch.
var ErrUnsupportedMetric = errors.New("unsupported metric")

// AuthorizationError reports that the store denied access or is
// unavailable. It aborts the whole aggregation; no partial result is
// returned.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "health store authorization failed: " + e.Reason
}

// QueryError wraps a failed fetch for a single metric. The aggregator
// converts it to absent data for that metric only.
type QueryError struct {
	Metric MetricID
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Metric, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
