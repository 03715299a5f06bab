package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fieldrelay/internal/hub"
	"fieldrelay/internal/logger"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler upgrades an operator console connection and
// subscribes it to the push channel until it disconnects.
func ViewWebsocketHandler(h *hub.Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		subscriber := h.Subscribe(connection)
		defer h.Unsubscribe(subscriber)

		log.Info("Console subscriber connected from %s", r.RemoteAddr)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				log.Info("Console subscriber disconnected: %v", err)
				break
			}
		}
	}
}
