package chat

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vaporchat/vapor/internal/infrastructure/ws"
	"go.uber.org/zap"
)

type Handler struct {
	core     *ws.Core
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewHandler(core *ws.Core, logger *zap.SugaredLogger, allowedOrigins []string) *Handler {
	return &Handler{
		core:   core,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS handles GET /ws: upgrades the connection and hands it to the hub.
// Nothing touches the registry until the client sends join-room.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(conn, h.core.Config())
	h.core.Register() <- client

	go client.WritePump(h.core)
	go client.ReadPump(h.core)

	h.logger.Debugw("connection opened", "conn", client.ID, "remote", r.RemoteAddr)
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		return origin == "" || set[origin]
	}
}
