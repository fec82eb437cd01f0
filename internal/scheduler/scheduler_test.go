// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	flashSweeps  atomic.Int32
	couponSweeps atomic.Int32
	flashErr     error
}

func (c *countingSweeper) SweepFlashSales(ctx context.Context, now time.Time) error {
	c.flashSweeps.Add(1)
	return c.flashErr
}

func (c *countingSweeper) SweepExpiredCoupons(ctx context.Context, now time.Time) error {
	c.couponSweeps.Add(1)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunSweepsImmediatelyAndOnTicks(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(5*time.Millisecond, sweeper, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// One immediate sweep plus at least one tick
	assert.GreaterOrEqual(t, sweeper.flashSweeps.Load(), int32(2))
	assert.Equal(t, sweeper.flashSweeps.Load(), sweeper.couponSweeps.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(time.Hour, sweeper, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}

	// The immediate sweep still ran before the loop observed cancellation
	assert.Equal(t, int32(1), sweeper.flashSweeps.Load())
}

func TestSweepErrorDoesNotStopCouponSweep(t *testing.T) {
	sweeper := &countingSweeper{flashErr: errors.New("db down")}
	s := New(time.Hour, sweeper, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	assert.Equal(t, int32(1), sweeper.flashSweeps.Load())
	assert.Equal(t, int32(1), sweeper.couponSweeps.Load())
}
