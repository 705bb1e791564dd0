package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/propertyhub/internal/app/engine/reconcile"
	"go.uber.org/zap"
)

// ReconcileJob creates the periodic drift-repair sweep. It treats leases as
// the source of truth and repairs property-side occupancy pointers across
// every landlord; a quiet pass (zero corrections) is the healthy outcome.
func ReconcileJob(svc *reconcile.Service, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "assignment-reconcile",
		Interval: interval,
		Run: func(ctx context.Context) error {
			synced, err := svc.SyncAll(ctx)
			if err != nil {
				return err
			}
			if synced > 0 {
				logger.Warn("reconcile sweep corrected drifted properties",
					zap.Int("synced", synced))
			}
			return nil
		},
	}
}
