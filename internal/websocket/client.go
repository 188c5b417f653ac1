package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Media travels over the upload
	// endpoint, so realtime frames stay small.
	maxMessageSize = 16 * 1024
)

// Dispatcher receives decoded frames and disconnect notifications from the
// read pump. The gateway implements it.
type Dispatcher interface {
	Dispatch(connID string, raw []byte)
	Disconnect(connID string)
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// ConnID identifies this connection in the hub and the presence map.
	ConnID string

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound payloads.
	Send chan []byte

	// Gateway handles inbound frames and the disconnect flow.
	Gateway Dispatcher

	Logger *slog.Logger
}

// ReadPump pumps frames from the websocket connection to the gateway.
func (c *Client) ReadPump() {
	defer func() {
		c.Gateway.Disconnect(c.ConnID)
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Warn("websocket read error", "conn", c.ConnID, "error", err)
			}
			break
		}
		c.Gateway.Dispatch(c.ConnID, raw)
	}
}

// WritePump pumps payloads from the hub to the websocket connection. One
// writer per connection; payloads leave in the order they were queued.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Logger.Warn("websocket write error", "conn", c.ConnID, "error", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
