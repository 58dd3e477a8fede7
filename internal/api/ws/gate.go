package ws

import (
	"crypto/subtle"

	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	"github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
)

// State classifies one connection on a module's channel.
type State int

const (
	// StateUnclassified is a connection without credentials. It is kept
	// open but its traffic is discarded until it authenticates as a device.
	StateUnclassified State = iota
	// StateAuthenticatedUser is a logged-in account that is a member of
	// the module.
	StateAuthenticatedUser
	// StateAuthenticatedDevice is a connection that presented the module's
	// shared secret.
	StateAuthenticatedDevice
	// StateRejected is a connection that must be closed.
	StateRejected
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case StateUnclassified:
		return "unclassified"
	case StateAuthenticatedUser:
		return "authenticated_user"
	case StateAuthenticatedDevice:
		return "authenticated_device"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Gate is the per-connection authentication state machine for one module's
// channel. It decides whether the connection joins the group and whether
// each inbound message may be broadcast. It is used by a single connection
// goroutine and needs no locking.
type Gate struct {
	module *device.Module
	state  State
}

// NewGate classifies a fresh connection. claims is nil when the connection
// presented no user credential; a credential for a non-member rejects the
// connection outright.
func NewGate(module *device.Module, claims *auth.Claims) *Gate {
	g := &Gate{module: module}

	switch {
	case module == nil:
		g.state = StateRejected
	case claims == nil:
		g.state = StateUnclassified
	case module.HasUser(claims.UserID):
		g.state = StateAuthenticatedUser
	default:
		g.state = StateRejected
	}

	return g
}

// State returns the connection's current classification.
func (g *Gate) State() State {
	return g.state
}

// Rejected reports whether the connection must be closed.
func (g *Gate) Rejected() bool {
	return g.state == StateRejected
}

// JoinOnConnect reports whether the connection enters the group before
// sending anything. Only authenticated users do; devices join on their
// first accepted message.
func (g *Gate) JoinOnConnect() bool {
	return g.state == StateAuthenticatedUser
}

// Admit decides one inbound message. It returns the parsed message and
// whether it may be broadcast to the group. msg is nil for an authorized
// user's opaque pass-through text, which is admitted unparsed.
//
// A message carrying the module's secret upgrades the connection to the
// device role; a wrong secret drops the message but keeps the connection
// open. Unparsable device and anonymous traffic is silently discarded.
func (g *Gate) Admit(raw []byte) (*Message, bool) {
	if g.state == StateRejected {
		return nil, false
	}

	msg, err := ParseMessage(raw)
	if err != nil {
		// Dashboards also speak a raw text protocol the backend does
		// not interpret; an authorized user's text goes out verbatim.
		if g.state == StateAuthenticatedUser {
			return nil, true
		}

		return nil, false
	}

	if msg.Device != "" {
		if subtle.ConstantTimeCompare([]byte(msg.Device), []byte(g.module.Secret)) != 1 {
			return nil, false
		}

		g.state = StateAuthenticatedDevice

		return msg, true
	}

	if g.state == StateAuthenticatedUser {
		return msg, true
	}

	return nil, false
}
