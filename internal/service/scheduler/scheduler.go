package scheduler

import (
	"context"
	"strconv"
	"time"

	domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"
	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
	alarmrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/alarm"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
	"github.com/scituinsk/BE-Smart-Farming/internal/taskqueue"
)

// TaskAlarmFire is the task queue name of the alarm trigger. Its single
// argument is the alarm id in decimal.
const TaskAlarmFire = "alarm:fire"

// Scheduler owns the policy of keeping exactly one outstanding delayed
// execution per active alarm, and of firing alarms into the broadcast hub.
type Scheduler struct {
	alarms  alarmrepo.Repository
	devices devicerepo.Repository
	queue   taskqueue.Queue
	hub     *hub.Hub
	guard   FireGuard
	loc     *time.Location

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New creates a scheduler.
func New(
	alarms alarmrepo.Repository,
	devices devicerepo.Repository,
	queue taskqueue.Queue,
	h *hub.Hub,
	guard FireGuard,
	loc *time.Location,
) *Scheduler {
	return &Scheduler{
		alarms:  alarms,
		devices: devices,
		queue:   queue,
		hub:     h,
		guard:   guard,
		loc:     loc,
		now:     time.Now,
	}
}

// Arm submits a delayed execution for the alarm's next occurrence and
// records the handle, replacing (after cancelling) any prior one.
//
// Arming never fails the caller: a queue error is logged and the alarm is
// left to the due-alarm sweep.
func (s *Scheduler) Arm(ctx context.Context, a *domain.Alarm) {
	if a == nil || !a.IsActive {
		return
	}

	now := s.now().In(s.loc)
	next := a.NextOccurrence(now)

	// At most one live handle per alarm: withdraw the old execution
	// before submitting its replacement.
	s.cancelHandle(ctx, a)

	handle, err := s.queue.Submit(ctx, TaskAlarmFire, []string{formatID(a.ID)}, next)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to schedule alarm, relying on sweep",
			"alarm_id", a.ID, "error", err)

		return
	}

	a.TaskHandle = string(handle)
	if err := s.alarms.SetTaskHandle(ctx, a.ID, a.TaskHandle); err != nil {
		logger.ErrorKV(ctx, "Failed to persist task handle",
			"alarm_id", a.ID, "handle", handle, "error", err)

		return
	}

	logger.InfoKV(ctx, "Alarm armed",
		"alarm_id", a.ID, "handle", handle, "next_run", next.Format(time.RFC3339))
}

// ArmAll re-arms every active alarm. It runs once on startup so alarms
// regain a live execution after a restart, whatever happened to the
// handles recorded before it.
func (s *Scheduler) ArmAll(ctx context.Context) {
	alarms, err := s.alarms.ListActive(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list active alarms", "error", err)

		return
	}

	for i := range alarms {
		s.Arm(ctx, &alarms[i])
	}

	logger.InfoKV(ctx, "Active alarms re-armed", "count", len(alarms))
}

// Disarm withdraws the alarm's outstanding execution, if any, and clears
// the stored handle. Cancelling an already-fired handle is a no-op.
func (s *Scheduler) Disarm(ctx context.Context, a *domain.Alarm) {
	if a == nil {
		return
	}

	s.cancelHandle(ctx, a)

	if err := s.alarms.SetTaskHandle(ctx, a.ID, ""); err != nil {
		logger.WarnKV(ctx, "Failed to clear task handle", "alarm_id", a.ID, "error", err)
	}
}

// RearmOrClear is the post-fire step: repeating alarms that are still
// active get the next execution, one-shots are completed by deactivation.
func (s *Scheduler) RearmOrClear(ctx context.Context, a *domain.Alarm) {
	if a == nil {
		return
	}

	if a.IsActive && a.IsRepeating() {
		a.TaskHandle = ""
		s.Arm(ctx, a)

		return
	}

	if err := s.alarms.SetInactive(ctx, a.ID); err != nil {
		logger.WarnKV(ctx, "Failed to complete one-shot alarm", "alarm_id", a.ID, "error", err)

		return
	}

	a.IsActive = false
	a.TaskHandle = ""

	logger.InfoKV(ctx, "One-shot alarm completed", "alarm_id", a.ID)
}

// cancelHandle withdraws the alarm's stored execution without touching the
// persisted bookkeeping.
func (s *Scheduler) cancelHandle(ctx context.Context, a *domain.Alarm) {
	if a.TaskHandle == "" {
		return
	}

	if err := s.queue.Cancel(ctx, taskqueue.Handle(a.TaskHandle)); err != nil {
		// Cancellation may race with natural firing, failures degrade
		// to the claimed-task no-op on the worker side.
		logger.WarnKV(ctx, "Failed to cancel scheduled execution",
			"alarm_id", a.ID, "handle", a.TaskHandle, "error", err)
	}

	a.TaskHandle = ""
}

// HandleFireTask adapts Fire to the task queue handler signature.
func (s *Scheduler) HandleFireTask(ctx context.Context, args []string) error {
	if len(args) != 1 {
		logger.WarnKV(ctx, "Alarm fire task with malformed args", "args", args)

		return nil
	}

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		logger.WarnKV(ctx, "Alarm fire task with non-numeric id", "arg", args[0])

		return nil
	}

	return s.Fire(ctx, uint(id))
}

// formatID renders an alarm id as a task argument.
func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
