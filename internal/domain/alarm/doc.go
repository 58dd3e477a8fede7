// Package alarm contains core domain types for scheduled control events.
//
// An Alarm pairs a wall-clock TimeOfDay with a weekly RepeatMask;
// NextOccurrence turns those into the next absolute fire instant.
package alarm
