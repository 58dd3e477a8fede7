// Package alarm implements persistence for Alarm records.
//
// The gorm-backed repository exposes explicit update and handle-bookkeeping
// operations; rescheduling is always an explicit follow-up call by the
// caller, never a side effect of saving.
package alarm
