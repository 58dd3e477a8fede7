package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
	alarmrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/alarm"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
)

// Fire runs when a scheduled execution (or the sweep) decides the alarm is
// due: it loads the alarm, broadcasts the control payload to the owning
// module's group as system origin, and re-arms or completes the alarm.
//
// An alarm or module that vanished between scheduling and firing was
// deleted on purpose; Fire stops silently. Both fire paths funnel through
// the guard, so the same due minute fires at most once per alarm.
func (s *Scheduler) Fire(ctx context.Context, alarmID uint) error {
	a, err := s.alarms.GetByID(ctx, alarmID)
	if err != nil {
		if errors.Is(err, alarmrepo.ErrNotFound) {
			logger.DebugKV(ctx, "Fired alarm no longer exists", "alarm_id", alarmID)

			return nil
		}

		return fmt.Errorf("load alarm %d: %w", alarmID, err)
	}

	group, err := s.devices.GetGroup(ctx, a.GroupID)
	if err != nil {
		if errors.Is(err, devicerepo.ErrNotFound) {
			logger.DebugKV(ctx, "Fired alarm's group no longer exists", "alarm_id", a.ID)

			return nil
		}

		return fmt.Errorf("load schedule group %d: %w", a.GroupID, err)
	}

	module, err := s.devices.GetModuleByID(ctx, group.ModuleID)
	if err != nil {
		if errors.Is(err, devicerepo.ErrNotFound) {
			logger.DebugKV(ctx, "Fired alarm's module no longer exists", "alarm_id", a.ID)

			return nil
		}

		return fmt.Errorf("load module %d: %w", group.ModuleID, err)
	}

	// Acquired last, once nothing else can fail: a transient load error
	// must not consume the minute's guard and lock the sweep's retry out.
	now := s.now().In(s.loc)
	if !s.guard.TryAcquire(ctx, a.ID, now) {
		logger.DebugKV(ctx, "Alarm already fired this minute", "alarm_id", a.ID)

		return nil
	}

	payload := BuildFirePayload(a.ID, group.PinNumbers(), a.Duration, group.Sequential)
	s.hub.Publish(ctx, hub.GroupName(module.SerialID), payload, "", hub.OriginSystem)

	logger.InfoKV(ctx, "Alarm fired",
		"alarm_id", a.ID, "module", module.SerialID, "label", a.Label, "time", a.Time.String())

	s.RearmOrClear(ctx, a)

	return nil
}
