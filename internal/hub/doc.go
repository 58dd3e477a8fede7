// Package hub implements the authenticated group broadcast channel layer.
//
// Connections join flat per-device groups and published payloads fan out to
// every member except the sender; system-origin publishes bypass the
// exclusion. The hub is an injected service instance, not process globals.
package hub
