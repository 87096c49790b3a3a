package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is implemented by the blob store connection pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	sessions func() int
	store    Pinger
}

// NewHealthHandler reports liveness. store may be nil when the file host is
// disabled.
func NewHealthHandler(sessions func() int, store Pinger) *HealthHandler {
	return &HealthHandler{sessions: sessions, store: store}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.sessions != nil {
		body["sessions"] = h.sessions()
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["fileStore"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["fileStore"] = "ok"
	}
	writeJSON(w, http.StatusOK, body)
}
