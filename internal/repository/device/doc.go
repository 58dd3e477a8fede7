// Package device implements persistence for modules, schedule groups and the
// rows devices report back (schedule logs, sensor readings).
package device
