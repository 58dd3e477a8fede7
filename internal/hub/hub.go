package hub

import (
	"context"
	"sync"

	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
)

// Origin classifies who produced a published message.
type Origin string

const (
	// OriginClient marks a message relayed from a connected client.
	// Delivery excludes the sender.
	OriginClient Origin = "client"
	// OriginSystem marks a message produced by the backend itself
	// (alarm fires, bridged device status). Delivery is unconditional,
	// the sender included, so the originating device and every dashboard
	// observe the same event.
	OriginSystem Origin = "system"
)

// Sender delivers one opaque payload to a connection's peer.
// Implementations must be safe for use from multiple goroutines and must
// not call back into the hub: Send runs under the hub's read lock.
type Sender interface {
	Send(message string) error
}

// GroupName returns the broadcast group of one module's channel.
func GroupName(serialID string) string {
	return "device:" + serialID
}

// Hub tracks per-connection membership in named groups and fans out
// published messages. It performs no translation of payloads.
type Hub struct {
	mu sync.RWMutex
	// groups maps group name to connection id to sender.
	groups map[string]map[string]Sender
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		groups: make(map[string]map[string]Sender),
	}
}

// Join adds the connection to the group. Joining twice is a no-op.
func (h *Hub) Join(group, connID string, sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]Sender)
		h.groups[group] = members
	}

	members[connID] = sender
}

// Leave removes the connection from the group.
// Connections not present are a no-op.
func (h *Hub) Leave(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// MemberCount returns the number of connections currently in the group.
func (h *Hub) MemberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[group])
}

// Publish fans the message out to every connection in the group except the
// sender, unless the origin is system, in which case delivery is
// unconditional. Delivery is best effort, at most once: failures are logged
// and the member is skipped.
func (h *Hub) Publish(ctx context.Context, group, message, senderID string, origin Origin) {
	// Delivery runs under the read lock, so a Leave that has returned can
	// never be followed by a delivery to the departed connection.
	// Concurrent publishes still proceed; only joins and leaves wait.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sender := range h.groups[group] {
		if id == senderID && origin != OriginSystem {
			continue
		}

		if err := sender.Send(message); err != nil {
			logger.WarnKV(ctx, "Failed to deliver message to group member",
				"group", group, "conn_id", id, "error", err)
		}
	}
}
