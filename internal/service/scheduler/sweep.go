package scheduler

import (
	"context"
	"time"

	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
)

// RunSweep runs the due-alarm safety net on the provided period until the
// context is canceled. The sweep rediscovers due alarms independently of
// the per-alarm scheduled executions, covering executions the queue lost
// (broker restart, dropped submission). It shares the fire guard with the
// scheduled path, so both observing the same due minute fires once.
func (s *Scheduler) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.InfoKV(ctx, "Due-alarm sweep started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Due-alarm sweep stopped")

			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce fires every active alarm whose time of day matches the current
// minute. Per-alarm failures are logged and never abort the pass.
func (s *Scheduler) SweepOnce(ctx context.Context) {
	now := s.now().In(s.loc)

	alarms, err := s.alarms.ListActive(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Sweep failed to list active alarms", "error", err)

		return
	}

	for i := range alarms {
		a := &alarms[i]
		if !a.DueAt(now) {
			continue
		}

		logger.InfoKV(ctx, "Sweep found due alarm", "alarm_id", a.ID, "time", a.Time.String())

		if err := s.Fire(ctx, a.ID); err != nil {
			logger.ErrorKV(ctx, "Sweep fire failed", "alarm_id", a.ID, "error", err)
		}
	}
}
