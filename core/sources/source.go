package sources

import (
	"context"
	"time"
)

// Sample is one measured deviation of a secondary event stream from its
// reference event stream. The unit of Deviation is defined by whatever
// produces the samples; it only has to match the allowed deviation the
// consuming filter was configured with.
type Sample struct {
	Timestamp time.Time
	Deviation int64
}

// Source supplies deviation measurements, one per reference event.
type Source interface {
	SampleDeviation(ctx context.Context) (Sample, error)
}
