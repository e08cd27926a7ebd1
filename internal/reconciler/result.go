package reconciler

import (
	"fmt"
	"time"

	"targetsync/internal/telemetry"
)

// Result summarizes one reconciliation sweep.
type Result struct {
	Processed  int
	Created    int
	Updated    int
	Unchanged  int
	Removed    int
	Failed     int
	Duplicates int
	Duration   time.Duration
}

// Changed reports whether the sweep modified the registry.
func (r Result) Changed() bool {
	return r.Created+r.Updated+r.Removed > 0
}

func (r Result) String() string {
	return fmt.Sprintf("processed=%d created=%d updated=%d unchanged=%d removed=%d failed=%d duplicates=%d duration=%s",
		r.Processed, r.Created, r.Updated, r.Unchanged, r.Removed, r.Failed, r.Duplicates, r.Duration.Round(time.Millisecond))
}

func (r Result) counts() telemetry.SweepCounts {
	return telemetry.SweepCounts{
		Created:   r.Created,
		Updated:   r.Updated,
		Unchanged: r.Unchanged,
		Removed:   r.Removed,
	}
}

// RefreshResult summarizes a pass over started workers.
type RefreshResult struct {
	Refreshed int
	Failed    int
}
