// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper is the periodic maintenance surface of the promotion store. Sweeps
// are idempotent functions of now, so running one twice in an interval is
// harmless and a missed interval self-heals on the next run.
type Sweeper interface {
	SweepFlashSales(ctx context.Context, now time.Time) error
	SweepExpiredCoupons(ctx context.Context, now time.Time) error
}

// Scheduler drives the promotion sweeps on a fixed interval
type Scheduler struct {
	interval time.Duration
	sweeper  Sweeper
	log      *logrus.Logger
	now      func() time.Time
}

// New creates a scheduler
func New(interval time.Duration, sweeper Sweeper, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		sweeper:  sweeper,
		log:      log,
		now:      time.Now,
	}
}

// Run blocks, sweeping once immediately and then on every tick until the
// context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := s.now().UTC()

	if err := s.sweeper.SweepFlashSales(ctx, now); err != nil {
		s.log.WithError(err).Error("Flash sale sweep failed")
	}
	if err := s.sweeper.SweepExpiredCoupons(ctx, now); err != nil {
		s.log.WithError(err).Error("Coupon expiry sweep failed")
	}
}
