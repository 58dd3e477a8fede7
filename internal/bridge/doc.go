// Package bridge connects the broadcast hub to an MQTT broker so devices
// that speak MQTT instead of websockets stay part of their module's channel.
package bridge
