package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live websocket connection. roomID/sessionID are set by the
// core after a successful bind and are only ever touched from the core's
// Run goroutine.
type Client struct {
	ID   string
	conn *connWrapper
	send chan *Event

	roomID    string
	sessionID string
}

func NewClient(conn *websocket.Conn, cfg Config) *Client {
	return &Client{
		ID:   uuid.NewString(),
		conn: newConnWrapper(conn, cfg.WriteWait),
		send: make(chan *Event, cfg.SendBuffer),
	}
}

// ReadPump decodes inbound frames and feeds them to the core. Malformed
// frames are dropped; the protocol never crashes the event loop. Exits on
// any read error and triggers disconnect cleanup via unregister.
func (c *Client) ReadPump(core *Core) {
	defer func() {
		core.Unregister() <- c
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadLimit(core.cfg.MaxMessageSize)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(core.cfg.PongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(core.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				core.logger.Warnw("websocket read error", "conn", c.ID, "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			core.logger.Debugw("dropping malformed frame", "conn", c.ID, "error", err)
			continue
		}

		core.inbound <- inbound{client: c, env: env}
	}
}

// WritePump drains the send channel and keeps the connection alive with
// pings. A closed send channel means the core dropped us.
func (c *Client) WritePump(core *Core) {
	ticker := time.NewTicker(core.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteClose()
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				core.logger.Warnw("websocket write error", "conn", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WritePing(); err != nil {
				return
			}
		}
	}
}
