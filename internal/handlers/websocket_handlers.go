package handlers

import (
	"net/http"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"marsh-chat/internal/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and starts the pumps. There is no
// transport-level auth: the session begins when the client sends an
// authenticate event over the socket.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.Logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := &websocket.Client{
			Hub:     s.Hub,
			ConnID:  uuid.NewString(),
			Conn:    conn,
			Send:    make(chan []byte, 256),
			Gateway: s.Gateway,
			Logger:  s.Logger,
		}
		s.Hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
