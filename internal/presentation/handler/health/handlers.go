package health

import (
	"net/http"
	"time"

	"github.com/vaporchat/vapor/internal/infrastructure/json"
)

type Handler struct {
	startTime time.Time
}

func NewHandler() *Handler {
	return &Handler{startTime: time.Now()}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
