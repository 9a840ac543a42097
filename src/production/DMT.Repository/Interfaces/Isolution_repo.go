package interfaces

import (
	"context"

	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

// SolutionRepository owns persistence of solution application events.
type SolutionRepository interface {
	// InsertSolution stores a new solution application and returns the
	// stored record with its generated ID and server createdAt.
	InsertSolution(ctx context.Context, sol dmtmodels.SolutionApplication) (*dmtmodels.SolutionApplication, error)

	// FindAllSolutions returns every solution application, newest
	// application date first.
	FindAllSolutions(ctx context.Context) ([]dmtmodels.SolutionApplication, error)
}
