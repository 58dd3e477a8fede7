// Package ws serves the per-module websocket channel.
//
// Every module has one broadcast group. Logged-in member accounts join it
// on connect; devices are admitted unjoined and upgrade themselves by
// including the module's shared secret in a message. Anonymous traffic is
// silently discarded and the connection stays open, so a device with a
// stale secret can keep retrying.
package ws
