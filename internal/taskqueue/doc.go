// Package taskqueue provides the distributed delayed-execution primitive the
// alarm scheduler submits to: submit a named task with an eta, receive a
// handle, cancel by handle. The Redis implementation stores pending handles
// in a sorted set scored by eta and claims due tasks with ZREM so each task
// executes on exactly one worker.
package taskqueue
