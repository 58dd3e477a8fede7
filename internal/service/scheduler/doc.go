// Package scheduler arms, fires and re-arms alarms.
//
// Arm/Disarm/RearmOrClear keep at most one outstanding task queue execution
// per alarm; Fire is what that execution runs, broadcasting the control
// payload to the module's group as system origin; RunSweep is the
// once-per-minute safety net that rediscovers due alarms when the queue
// lost an execution. A shared FireGuard keeps the two fire paths from
// firing the same alarm twice in one due minute.
package scheduler
