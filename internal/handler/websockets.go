package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trafficmonitor/internal/logger"
	hub "trafficmonitor/internal/service/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHub is the subscription side of the broadcast hub.
type LiveHub interface {
	Subscribe() *hub.Subscription
	Unsubscribe(id string)
	ClientCount() int
}

// LiveWebsocketHandler pushes every count event to the client as JSON, in
// processing order, until either side closes.
func LiveWebsocketHandler(h LiveHub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		sub := h.Subscribe()
		defer h.Unsubscribe(sub.ID)

		logger.Info("Live viewer %s connected from %s", sub.ID, r.RemoteAddr)

		// Reader: only control frames are expected; any error ends the session.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			connection.SetReadLimit(512)
			connection.SetReadDeadline(time.Now().Add(pongWait))
			connection.SetPongHandler(func(appData string) error {
				connection.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						logger.Warning("Live viewer %s disconnected with error: %v", sub.ID, err)
					}
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				logger.Info("Live viewer %s disconnected", sub.ID)
				return

			case ev, ok := <-sub.C:
				connection.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					connection.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
					return
				}
				if err := connection.WriteJSON(ev); err != nil {
					logger.Error("Error sending event to %s: %v", sub.ID, err)
					return
				}

			case <-ticker.C:
				connection.SetWriteDeadline(time.Now().Add(writeWait))
				if err := connection.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
