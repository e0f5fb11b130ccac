package handlers

import (
	ws "solitaire-cipher/backend/pkg/websocket"

	"github.com/rs/zerolog"
)

var logger = zerolog.Nop()

// SetLogger is called by main at startup.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// hubProvider is set by main at startup so HTTP handlers can push session
// updates to websocket observers.
var hubProvider func() (*ws.Hub, bool)

func SetHubProvider(p func() (*ws.Hub, bool)) {
	hubProvider = p
}

func sessionRoom(id string) string { return "session:" + id }

func broadcastSessionUpdate(id string, update sessionUpdate) {
	if hubProvider == nil {
		return
	}
	hub, ok := hubProvider()
	if !ok || hub == nil {
		return
	}
	hub.Broadcast(sessionRoom(id), "session_update", update)
}
