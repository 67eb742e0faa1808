package collectors

import (
	"context"

	"github.com/homesentry/homesentry/internal/models"
)

// Collector probes one class of targets and reports an observation per
// target. Collectors are black-box producers from the alert engine's point of
// view: a collector error fails that collector's pass only, never the
// scheduler loop.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]models.Observation, error)
}
