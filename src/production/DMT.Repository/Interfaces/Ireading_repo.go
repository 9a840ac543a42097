package interfaces

import (
	"context"

	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

// ReadingRepository owns persistence of telemetry readings. Implementations
// must be safe for concurrent use: both ingestion adapters and the query
// service share one instance.
type ReadingRepository interface {
	// UpsertReading writes the reading keyed by deviceId, overwriting the
	// mutable fields of an existing row or inserting a new one. createdAt
	// is preserved across overwrites.
	UpsertReading(ctx context.Context, rd dmtmodels.Reading) error

	// InsertReading appends the reading as a new time-series point.
	InsertReading(ctx context.Context, rd dmtmodels.Reading) error

	// FindAll returns every reading, newest createdAt first. An empty
	// result is an empty slice, not an error.
	FindAll(ctx context.Context) ([]dmtmodels.Reading, error)

	// FindLatestByArea returns the most recent limit readings whose area
	// matches the given label exactly, ordered oldest first for direct
	// chart consumption.
	FindLatestByArea(ctx context.Context, areaLabel string, limit int) ([]dmtmodels.Reading, error)
}
