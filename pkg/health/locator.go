package health

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/metrics"
)

// LocatorChecker verifies that the position source yields a fix
type LocatorChecker struct {
	Locator geo.Locator
}

// Check reads a fix without checking it against any fence
func (l *LocatorChecker) Check(ctx context.Context) Result {
	start := time.Now()

	fix, err := l.Locator.Locate(ctx)
	if err != nil {
		return failed(start, "%s: %v", geo.Reason(err), err)
	}
	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("fix %.6f, %.6f", fix.Latitude, fix.Longitude),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Component returns the metrics component name
func (l *LocatorChecker) Component() string {
	return metrics.ComponentLocator
}
