// Package spec contains constants for the edgebench benchmark protocol.
package spec

import "time"

const (
	// DefaultRunCount is the default number of rounds in a benchmark run.
	DefaultRunCount = 5

	// DefaultInterRoundDelay is the default pause between rounds. It gives
	// short-lived edge caches a chance to settle or expire and avoids
	// hammering remote endpoints back-to-back.
	DefaultInterRoundDelay = 2 * time.Second

	// DefaultMeasureTimeout is the default HTTP client timeout for a single
	// measurement. The orchestration layer imposes no timeout of its own.
	DefaultMeasureTimeout = 30 * time.Second

	// MaxErrorBodyLength is the maximum number of characters of a non-2xx
	// response body carried into an error result.
	MaxErrorBodyLength = 200

	// QueryPath is the server path serving the benchmark query.
	QueryPath = "/edgebench/v1/query"

	// BindingParam is the query parameter naming the database binding to use.
	BindingParam = "binding"

	// CacheParam is the query parameter requesting a CDN-cacheable response
	// with the given TTL in seconds. When absent, responses are marked
	// no-store.
	CacheParam = "cache"
)

// Sentinel binding values reported in a MeasurementResult while no
// server-reported binding is available.
const (
	// BindingPending marks a measurement that has not completed yet.
	BindingPending = "Pending..."

	// BindingError marks a measurement that failed before a binding could be
	// reported.
	BindingError = "Error"
)
