package rooms

import (
	"errors"
	"net/http"

	"github.com/vaporchat/vapor/internal/domain"
	"github.com/vaporchat/vapor/internal/infrastructure/json"
	"github.com/vaporchat/vapor/internal/infrastructure/registry"
	"go.uber.org/zap"
)

type Handler struct {
	registry *registry.Registry
	logger   *zap.SugaredLogger
}

func NewHandler(reg *registry.Registry, logger *zap.SugaredLogger) *Handler {
	return &Handler{registry: reg, logger: logger}
}

// CreateRoomHandler handles POST /api/rooms. The creator becomes the room's
// first participant and gets a session id for the websocket bind.
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	res, err := h.registry.CreateRoom(req.Name, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			json.WriteValidationError(w, err)
			return
		}
		h.logger.Errorw("failed to create room", "error", err)
		json.WriteInternalError(w)
		return
	}

	h.logger.Infow("room created", "room", res.RoomID, "name", res.RoomName)

	json.Write(w, http.StatusOK, joinResponse{
		RoomID:    res.RoomID,
		RoomName:  res.RoomName,
		SessionID: res.SessionID,
	})
}

// JoinRoomHandler handles POST /api/rooms/join. Accepts a room id or a room
// name; id wins when both are present.
func (h *Handler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	res, err := h.registry.JoinRoom(req.RoomID, req.RoomName, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			json.WriteValidationError(w, err)
		case errors.Is(err, domain.ErrRoomNotFound):
			json.WriteNotFoundError(w, "Room not found")
		case errors.Is(err, domain.ErrUnauthorized):
			json.WriteUnauthorizedError(w, "Invalid password")
		default:
			h.logger.Errorw("failed to join room", "error", err)
			json.WriteInternalError(w)
		}
		return
	}

	h.logger.Infow("participant joined", "room", res.RoomID, "session", res.SessionID)

	json.Write(w, http.StatusOK, joinResponse{
		RoomID:    res.RoomID,
		RoomName:  res.RoomName,
		SessionID: res.SessionID,
	})
}
