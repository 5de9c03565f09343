package ws

import (
	"encoding/json"
	"time"

	"github.com/vaporchat/vapor/internal/infrastructure/registry"
	"go.uber.org/zap"
)

type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (cfg Config) withDefaults() Config {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return cfg
}

// Pings must fit inside the pong deadline.
func (cfg Config) pingPeriod() time.Duration {
	return cfg.PongWait * 9 / 10
}

type inbound struct {
	client *Client
	env    Envelope
}

// Core is the connection gateway and fan-out hub. A single Run goroutine
// owns the room membership maps and performs every registry mutation
// triggered by socket events, so events within one room are processed and
// delivered in arrival order.
type Core struct {
	registry *registry.Registry
	logger   *zap.SugaredLogger
	cfg      Config

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	done       chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewCore(reg *registry.Registry, logger *zap.SugaredLogger, cfg Config) *Core {
	return &Core{
		registry:   reg,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

func (c *Core) Register() chan<- *Client   { return c.register }
func (c *Core) Unregister() chan<- *Client { return c.unregister }

// Config returns the effective gateway settings, for constructing clients.
func (c *Core) Config() Config { return c.cfg }

// Run processes gateway events. It must be launched as a goroutine.
func (c *Core) Run() {
	for {
		select {
		case cl := <-c.register:
			// No registry interaction until an explicit join-room arrives.
			c.clients[cl] = struct{}{}

		case cl := <-c.unregister:
			c.dropClient(cl)

		case in := <-c.inbound:
			c.dispatch(in.client, in.env)

		case <-c.done:
			for cl := range c.clients {
				close(cl.send)
			}
			return
		}
	}
}

// Stop signals the hub to shut down and release every client.
func (c *Core) Stop() { close(c.done) }

func (c *Core) dispatch(cl *Client, env Envelope) {
	switch env.Type {
	case EventJoinRoom:
		c.handleJoin(cl, env.Data)
	case EventSendMessage:
		c.handleSendMessage(cl, env.Data)
	case EventVaporizeHistory:
		c.handleVaporize(cl)
	case EventExitRoom:
		c.handleExit(cl)
	default:
		c.logger.Debugw("dropping unknown event", "conn", cl.ID, "type", env.Type)
	}
}

func (c *Core) handleJoin(cl *Client, data json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.deliver(cl, NewJoinError("Invalid join payload"))
		return
	}

	roomName, history, err := c.registry.Bind(cl.ID, p.RoomID, p.SessionID)
	if err != nil {
		c.deliver(cl, NewJoinError("Invalid room or session"))
		return
	}

	if cl.roomID != "" && cl.roomID != p.RoomID {
		c.removeFromRoom(cl)
	}
	cl.roomID, cl.sessionID = p.RoomID, p.SessionID

	members, ok := c.rooms[p.RoomID]
	if !ok {
		members = make(map[*Client]struct{})
		c.rooms[p.RoomID] = members
	}
	members[cl] = struct{}{}

	c.deliver(cl, NewJoinOK(p.RoomID, roomName, history))
	c.logger.Infow("connection bound", "conn", cl.ID, "room", p.RoomID, "session", p.SessionID)
}

func (c *Core) handleSendMessage(cl *Client, data json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	msg, roomID, err := c.registry.PostMessage(cl.ID, p.Content)
	if err != nil || msg == nil {
		// Unbound connection or empty content; ignored by design.
		return
	}

	c.broadcast(roomID, NewMessage(msg))
}

func (c *Core) handleVaporize(cl *Client) {
	if cl.roomID == "" {
		return
	}
	c.registry.Vaporize(cl.roomID)
	c.broadcast(cl.roomID, NewMessagesCleared())
	c.logger.Infow("history vaporized", "room", cl.roomID, "by", cl.sessionID)
}

func (c *Core) handleExit(cl *Client) {
	dep, ok := c.registry.ExitRoom(cl.ID)
	if !ok {
		return
	}

	// Everyone still attached hears the departure, the leaver included;
	// the leaver is detached only after the fan-out.
	c.broadcast(dep.RoomID, NewUserLeft(dep.SessionID))
	if dep.HistoryWiped {
		c.broadcast(dep.RoomID, NewMessagesCleared())
	}

	c.removeFromRoom(cl)
	cl.roomID, cl.sessionID = "", ""
	c.deliver(cl, NewExitOK())
	c.logger.Infow("participant exited", "room", dep.RoomID, "session", dep.SessionID, "roomDeleted", dep.RoomDeleted)
}

// dropClient runs full disconnect cleanup. Idempotent: a client can hit the
// unregister channel at most once per ReadPump, but the registry side
// tolerates repeats regardless.
func (c *Core) dropClient(cl *Client) {
	if _, ok := c.clients[cl]; !ok {
		return
	}
	delete(c.clients, cl)
	c.removeFromRoom(cl)

	if dep, ok := c.registry.HandleDisconnect(cl.ID); ok {
		c.broadcast(dep.RoomID, NewUserLeft(dep.SessionID))
		if dep.HistoryWiped {
			c.broadcast(dep.RoomID, NewMessagesCleared())
		}
		c.logger.Infow("connection dropped", "conn", cl.ID, "room", dep.RoomID, "roomDeleted", dep.RoomDeleted)
	}

	close(cl.send)
}

// broadcast delivers an event to every connection bound to the room.
// Best-effort, at-most-once: a client with a full send buffer misses the
// event rather than stalling the room.
func (c *Core) broadcast(roomID string, ev *Event) {
	for cl := range c.rooms[roomID] {
		c.deliver(cl, ev)
	}
}

func (c *Core) deliver(cl *Client, ev *Event) {
	select {
	case cl.send <- ev:
	default:
		c.logger.Warnw("send buffer full, dropping event", "conn", cl.ID, "event", ev.Type)
	}
}

func (c *Core) removeFromRoom(cl *Client) {
	if cl.roomID == "" {
		return
	}
	if members, ok := c.rooms[cl.roomID]; ok {
		delete(members, cl)
		if len(members) == 0 {
			delete(c.rooms, cl.roomID)
		}
	}
}
