// Package device models physical controllers: the Module itself, its
// actuator Pins, the ScheduleGroups alarms fan out to, and the rows devices
// report back (ScheduleLog, SensorReading).
package device
